// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/config"
	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/utils"
)

var ErrInvalidPoolSize = errors.New("pool size must be at least 1")

// Uploader performs exactly one transfer attempt for a task.
type Uploader interface {
	Upload(ctx context.Context, task UploadTask) UploadOutcome
}

// Engine walks a mirror tree and uploads every file through one shared,
// fixed-size pool.
type Engine struct {
	uploader     Uploader
	poolSize     int
	drainTimeout time.Duration
	logger       zerolog.Logger
	newPool      func(size int) Pool
	readDir      func(dir string) ([]os.DirEntry, error)
}

type Option func(*Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithDrainTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.drainTimeout = timeout
		}
	}
}

// WithPoolFactory replaces the worker pool implementation.
func WithPoolFactory(newPool func(size int) Pool) Option {
	return func(e *Engine) { e.newPool = newPool }
}

func withReadDir(readDir func(dir string) ([]os.DirEntry, error)) Option {
	return func(e *Engine) { e.readDir = readDir }
}

func NewEngine(uploader Uploader, poolSize int, opts ...Option) (*Engine, error) {
	if poolSize < 1 {
		return nil, ErrInvalidPoolSize
	}
	e := &Engine{
		uploader:     uploader,
		poolSize:     poolSize,
		drainTimeout: config.DefaultDrainTimeout,
		logger:       zerolog.Nop(),
		newPool:      func(size int) Pool { return NewWorkerPool(size) },
		readDir:      readDirUnsorted,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Publish uploads the tree under rootMirrorPath to targetBaseURL. Only a
// directory listing failure is returned as an error; per-file outcomes are
// logged and counted in the report. Tasks already submitted are drained
// even when the walk fails.
func (e *Engine) Publish(ctx context.Context, rootMirrorPath, targetBaseURL string, creds *config.Credentials) (*Report, error) {
	start := time.Now()
	report := &Report{Run: utils.UUIDv4NoDash(), Target: targetBaseURL}
	logger := e.logger.With().Str("run", report.Run).Logger()
	logger.Info().Msgf("Publishing to %s ...", targetBaseURL)

	var counts tally
	pool := e.newPool(e.poolSize)
	walker := &treeWalker{
		exec:    pool,
		logger:  logger,
		readDir: e.readDir,
		newTask: func(location, localPath string) func() {
			counts.submitted.Add(1)
			task := UploadTask{Location: location, LocalPath: localPath, Credentials: creds}
			return func() { e.runTask(ctx, logger, &counts, task) }
		},
	}
	walkErr := walker.publishDirectory(targetBaseURL, filepath.Clean(rootMirrorPath))

	pool.Shutdown()
	unfinished, drained := pool.AwaitTermination(e.drainTimeout)
	if !drained {
		logger.Warn().Int("unfinished", unfinished).Dur("timeout", e.drainTimeout).
			Msg("Drain timeout elapsed, outstanding uploads abandoned")
	}

	counts.snapshot(report)
	report.Unfinished = unfinished
	report.Duration = time.Since(start).Truncate(time.Millisecond).String()

	if walkErr != nil {
		logger.Error().Err(walkErr).Msg("Publishing aborted")
		return report, walkErr
	}
	logger.Info().Msg("Publishing complete.")
	return report, nil
}

func (e *Engine) runTask(ctx context.Context, logger zerolog.Logger, counts *tally, task UploadTask) {
	targetURL := task.TargetURL()
	logger.Info().Msgf("Uploading %s", targetURL)
	outcome := e.uploader.Upload(ctx, task)
	counts.record(outcome)
	logOutcome(logger, targetURL, outcome)
}
