// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"fmt"
	"os"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/config"
	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/utils"
)

// ChecksumMetadataKey is the object metadata key holding the SHA-1 digest.
const ChecksumMetadataKey = "checksum-sha1"

// objectStore is the part of config.S3Client the uploader needs.
type objectStore interface {
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	UploadFile(ctx context.Context, bucket, key string, file *os.File, metadata map[string]string) error
}

// s3Uploader gives S3 targets the repository semantics of the HTTP target:
// an object already present is reported as AlreadyExists and not rewritten.
type s3Uploader struct {
	store    objectStore
	checksum func(path string) (string, error)
}

func NewS3Uploader(client *config.S3Client) Uploader {
	return &s3Uploader{store: client, checksum: utils.ComputeFileSHA1}
}

func (u *s3Uploader) Upload(ctx context.Context, task UploadTask) UploadOutcome {
	pp, err := utils.ParsePath(task.TargetURL())
	if err != nil {
		return UploadOutcome{Kind: OutcomeTransportError, Err: err}
	}
	if pp.Scheme != "s3" {
		return UploadOutcome{Kind: OutcomeTransportError, Err: fmt.Errorf("%w: %s", ErrUnsupportedScheme, pp.Scheme)}
	}

	digest, err := u.checksum(task.LocalPath)
	if err != nil {
		return UploadOutcome{Kind: OutcomeDigestError, Err: err}
	}

	exists, err := u.store.ObjectExists(ctx, pp.Host, pp.Path)
	if err != nil {
		return classifyS3Error(err)
	}
	if exists {
		return UploadOutcome{Kind: OutcomeAlreadyExists}
	}

	file, err := os.Open(task.LocalPath)
	if err != nil {
		return UploadOutcome{Kind: OutcomeTransportError, Err: fmt.Errorf("failed to open local file: %w", err)}
	}
	defer file.Close()

	if err := u.store.UploadFile(ctx, pp.Host, pp.Path, file, map[string]string{ChecksumMetadataKey: digest}); err != nil {
		return classifyS3Error(err)
	}
	return UploadOutcome{Kind: OutcomeSuccess}
}

// classifyS3Error turns service responses into Failed outcomes with their
// status; anything without a response is a transport error.
func classifyS3Error(err error) UploadOutcome {
	var respErr *awshttp.ResponseError
	if !errors.As(err, &respErr) {
		return UploadOutcome{Kind: OutcomeTransportError, Err: err}
	}
	body := respErr.Error()
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		body = apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()
	}
	return UploadOutcome{Kind: OutcomeFailed, StatusCode: respErr.HTTPStatusCode(), Body: body, Err: err}
}
