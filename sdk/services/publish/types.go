// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/config"
	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/utils"
)

// ChecksumHeader carries the SHA-1 of the uploaded file.
const ChecksumHeader = "X-Checksum-Sha1"

type PublishRequest struct {
	// Optional overrides; zero values fall back to the service config.
	MirrorPath       string
	PublisherThreads int
	DrainTimeout     time.Duration
}

// UploadTask is one file to be sent to Location (a directory-shaped remote prefix).
type UploadTask struct {
	Location    string
	LocalPath   string
	Credentials *config.Credentials
}

func (t UploadTask) TargetURL() string {
	return utils.FileURL(t.Location, filepath.Base(t.LocalPath))
}

// Report summarizes a publish run. It is informational only: per-file
// failures are counted here, never returned as an error.
type Report struct {
	Run             string `json:"run"             yaml:"run"`
	Target          string `json:"target"          yaml:"target"`
	Submitted       int64  `json:"submitted"       yaml:"submitted"`
	Succeeded       int64  `json:"succeeded"       yaml:"succeeded"`
	AlreadyExists   int64  `json:"already_exists"  yaml:"already_exists"`
	Failed          int64  `json:"failed"          yaml:"failed"`
	DigestErrors    int64  `json:"digest_errors"   yaml:"digest_errors"`
	TransportErrors int64  `json:"transport_errors" yaml:"transport_errors"`
	Unfinished      int    `json:"unfinished"      yaml:"unfinished"`
	Duration        string `json:"duration"        yaml:"duration"`
}

func (r *Report) Short() string {
	return fmt.Sprintf("submitted=%d succeeded=%d already_exists=%d failed=%d digest_errors=%d transport_errors=%d unfinished=%d",
		r.Submitted, r.Succeeded, r.AlreadyExists, r.Failed, r.DigestErrors, r.TransportErrors, r.Unfinished)
}
