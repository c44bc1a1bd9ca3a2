// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/config"
	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/utils"
)

var (
	ErrMissingRootURL    = errors.New("target root url is required")
	ErrUnsupportedScheme = errors.New("unsupported target scheme")
)

type PublishService struct {
	conf     config.Config
	uploader Uploader
	logger   zerolog.Logger
}

// NewPublishService picks the uploader from the target root URL scheme:
// http(s) for repository servers, s3 for buckets.
func NewPublishService(ctx context.Context, conf config.Config, logger zerolog.Logger) (*PublishService, error) {
	if conf.Target.RootURL == "" {
		return nil, ErrMissingRootURL
	}
	pp, err := utils.ParsePath(conf.Target.RootURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target root url: %w", err)
	}

	var uploader Uploader
	switch pp.Scheme {
	case "http", "https":
		uploader = NewHTTPUploader(config.NewHTTPCore(nil))
	case "s3":
		s3c, err := config.NewS3Client(ctx, conf.S3)
		if err != nil {
			return nil, fmt.Errorf("S3 init failed: %w", err)
		}
		uploader = NewS3Uploader(s3c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, pp.Scheme)
	}

	return &PublishService{conf: conf, uploader: uploader, logger: logger}, nil
}

func (s *PublishService) Publish(ctx context.Context, req PublishRequest) (*Report, error) {
	mirrorPath := req.MirrorPath
	if mirrorPath == "" {
		mirrorPath = s.conf.Mirror.Path
	}
	if mirrorPath == "" {
		mirrorPath = config.DefaultMirrorPath
	}

	threads := req.PublisherThreads
	if threads == 0 {
		threads = s.conf.Target.PublisherThreads
	}
	if threads == 0 {
		threads = config.DefaultPublisherThreads
	}

	engine, err := NewEngine(s.uploader, threads,
		WithLogger(s.logger),
		WithDrainTimeout(req.DrainTimeout),
	)
	if err != nil {
		return nil, err
	}
	return engine.Publish(ctx, mirrorPath, s.conf.Target.RootURL, s.conf.Target.Credentials)
}
