// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"net/http"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeAlreadyExists
	OutcomeFailed
	// the task aborted before a response was classified
	OutcomeDigestError
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeFailed:
		return "failed"
	case OutcomeDigestError:
		return "digest_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

type UploadOutcome struct {
	Kind       OutcomeKind
	StatusCode int
	Body       string
	Err        error
}

// ClassifyStatus maps a remote response to an outcome. 403 means the
// artifact is already published and is not an error.
func ClassifyStatus(statusCode int, body string) UploadOutcome {
	outcome := UploadOutcome{StatusCode: statusCode, Body: body}
	switch {
	case statusCode >= 200 && statusCode <= 299:
		outcome.Kind = OutcomeSuccess
	case statusCode == http.StatusForbidden:
		outcome.Kind = OutcomeAlreadyExists
	default:
		outcome.Kind = OutcomeFailed
	}
	return outcome
}

func logOutcome(logger zerolog.Logger, targetURL string, outcome UploadOutcome) {
	switch outcome.Kind {
	case OutcomeSuccess:
		logger.Info().Str("url", targetURL).Msg("Uploaded successfully")
	case OutcomeAlreadyExists:
		logger.Info().Str("url", targetURL).Msg("Already uploaded")
	case OutcomeFailed:
		logger.Error().Str("url", targetURL).Int("status", outcome.StatusCode).Str("body", outcome.Body).
			Msg("Upload rejected")
	case OutcomeDigestError:
		logger.Error().Str("url", targetURL).Err(outcome.Err).Msg("Checksum failed, upload skipped")
	case OutcomeTransportError:
		logger.Error().Str("url", targetURL).Err(outcome.Err).Msg("Upload failed")
	}
	if outcome.StatusCode != 0 {
		logger.Debug().Str("url", targetURL).Int("status", outcome.StatusCode).Str("body", outcome.Body).Msg("Response")
	}
}

type tally struct {
	submitted, succeeded, alreadyExists, failed, digestErrors, transportErrors atomic.Int64
}

func (t *tally) record(outcome UploadOutcome) {
	switch outcome.Kind {
	case OutcomeSuccess:
		t.succeeded.Add(1)
	case OutcomeAlreadyExists:
		t.alreadyExists.Add(1)
	case OutcomeFailed:
		t.failed.Add(1)
	case OutcomeDigestError:
		t.digestErrors.Add(1)
	case OutcomeTransportError:
		t.transportErrors.Add(1)
	}
}

func (t *tally) snapshot(report *Report) {
	report.Submitted = t.submitted.Load()
	report.Succeeded = t.succeeded.Load()
	report.AlreadyExists = t.alreadyExists.Load()
	report.Failed = t.failed.Load()
	report.DigestErrors = t.digestErrors.Load()
	report.TransportErrors = t.transportErrors.Load()
}
