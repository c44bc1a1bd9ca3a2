// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"net/http"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/config"
	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/utils"
)

type httpUploader struct {
	http     config.PublishHTTP
	checksum func(path string) (string, error)
}

func NewHTTPUploader(httpCore config.PublishHTTP) Uploader {
	return &httpUploader{http: httpCore, checksum: utils.ComputeFileSHA1}
}

func (u *httpUploader) Upload(ctx context.Context, task UploadTask) UploadOutcome {
	digest, err := u.checksum(task.LocalPath)
	if err != nil {
		return UploadOutcome{Kind: OutcomeDigestError, Err: err}
	}

	header := http.Header{}
	header.Set(ChecksumHeader, digest)
	body, status, err := u.http.Put(ctx, config.PutRequest{
		URL:         task.TargetURL(),
		LocalPath:   task.LocalPath,
		Credentials: task.Credentials,
		Header:      header,
	})
	if err != nil {
		return UploadOutcome{Kind: OutcomeTransportError, StatusCode: status, Err: err}
	}
	return ClassifyStatus(status, string(body))
}
