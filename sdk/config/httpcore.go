// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const maxRedirects = 10

var ErrTooManyRedirects = errors.New("stopped after 10 redirects")

// PutRequest describes one file transfer. Credentials may be nil.
type PutRequest struct {
	URL         string
	LocalPath   string
	Credentials *Credentials
	Header      http.Header
}

// PublishHTTP sends one file to the target repository. Non-2xx responses
// are not errors: the status and body are returned for the caller to classify.
type PublishHTTP interface {
	Put(ctx context.Context, req PutRequest) ([]byte, int, error)
}

type httpCore struct {
	httpClient *http.Client
}

// NewHTTPCore wraps httpClient. Redirects are always followed by Put itself,
// so any CheckRedirect set on the client is replaced on a private copy.
func NewHTTPCore(httpClient *http.Client) PublishHTTP {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultRequestTimeout)
	}
	client := *httpClient
	client.CheckRedirect = stopRedirect
	return &httpCore{httpClient: &client}
}

// NewHTTPClient builds an HTTP/1.1-only client with an absolute timeout.
// The client never follows redirects; PublishHTTP.Put handles them so a
// PUT keeps its method and body across 301 and 302.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ForceAttemptHTTP2 = false
	// non-nil empty map disables h2 negotiation over TLS
	transport.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}

	return &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: stopRedirect,
	}
}

func stopRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// redirectRequest builds the follow-up request for a redirect response.
// 303 becomes a bodiless GET; every other code replays the original method
// and body. Credentials only travel to the same host.
func redirectRequest(prev *http.Request, code int, target *url.URL) (*http.Request, error) {
	method := prev.Method
	var body io.ReadCloser
	contentLength := prev.ContentLength
	if code == http.StatusSeeOther && method != http.MethodHead {
		method = http.MethodGet
		contentLength = 0
	} else if prev.GetBody != nil {
		b, err := prev.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to replay request body: %w", err)
		}
		body = b
	}

	next, err := http.NewRequestWithContext(prev.Context(), method, target.String(), body)
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		return nil, err
	}
	if method == prev.Method {
		next.ContentLength = contentLength
		next.GetBody = prev.GetBody
		if contentLength == 0 {
			next.Body = http.NoBody
		}
	}
	next.Header = prev.Header.Clone()
	if method != prev.Method {
		next.Header.Del("Content-Length")
		next.Header.Del("Content-Type")
	}
	if next.URL.Host != prev.URL.Host {
		next.Header.Del("Authorization")
	}
	return next, nil
}

func (httpCore *httpCore) Put(ctx context.Context, put PutRequest) ([]byte, int, error) {
	localPath := put.LocalPath
	file, err := os.Open(localPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open local file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, fmt.Errorf("stat error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, put.URL, file)
	if err != nil {
		_ = file.Close()
		return nil, 0, err
	}
	if info.Size() == 0 {
		_ = file.Close()
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
	} else {
		// stream from disk; GetBody replays the file on redirects
		req.ContentLength = info.Size()
		req.GetBody = func() (io.ReadCloser, error) { return os.Open(localPath) }
	}

	for k, vs := range put.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	// If credentials are set, add Basic Auth header
	if creds := put.Credentials; creds != nil {
		req.SetBasicAuth(creds.Username(), creds.Password())
	}

	for hops := 0; ; hops++ {
		resp, err := httpCore.httpClient.Do(req)
		if err != nil {
			return nil, 0, err
		}

		target, locErr := resp.Location()
		follow := isRedirect(resp.StatusCode) && locErr == nil &&
			!(req.URL.Scheme == "https" && target.Scheme == "http")
		if !follow {
			return readResponse(resp)
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2<<10))
		_ = resp.Body.Close()

		if hops+1 > maxRedirects {
			return nil, 0, ErrTooManyRedirects
		}
		if req, err = redirectRequest(req, resp.StatusCode, target); err != nil {
			return nil, 0, err
		}
	}
}

func readResponse(resp *http.Response) ([]byte, int, error) {
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return b, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return b, resp.StatusCode, nil
}
