// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/config"
)

// fakeRepository accepts each path once and answers 403 for repeats.
type fakeRepository struct {
	mu      sync.Mutex
	stored  map[string]string
	puts    []string
	badSums []string
}

func (f *fakeRepository) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if user, pass, ok := r.BasicAuth(); !ok || user != "deployer" || pass != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, _ := io.ReadAll(r.Body)
	sum := sha1.Sum(body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, r.URL.Path)
	if r.Header.Get(ChecksumHeader) != hex.EncodeToString(sum[:]) {
		f.badSums = append(f.badSums, r.URL.Path)
	}
	if _, ok := f.stored[r.URL.Path]; ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	f.stored[r.URL.Path] = string(body)
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeRepository) snapshot() (map[string]string, []string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make(map[string]string, len(f.stored))
	for k, v := range f.stored {
		stored[k] = v
	}
	return stored, append([]string(nil), f.puts...), append([]string(nil), f.badSums...)
}

func TestPublishServiceIsIdempotentUnderRerun(t *testing.T) {
	repo := &fakeRepository{stored: map[string]string{}}
	srv := httptest.NewServer(repo)
	defer srv.Close()

	root := writeTree(t, map[string]string{"a.jar": "a", "b.jar": "b", "sub/c.jar": "c"})
	logger, buf := newTestLogger()
	svc, err := NewPublishService(context.Background(), config.Config{
		Target: config.TargetConfig{
			RootURL:          srv.URL + "/x",
			Credentials:      config.NewCredentials("deployer", "secret"),
			PublisherThreads: 2,
		},
		Mirror: config.MirrorConfig{Path: root},
	}, logger)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}

	first, err := svc.Publish(context.Background(), PublishRequest{})
	if err != nil {
		t.Fatalf("first publish failed: %v", err)
	}
	if first.Succeeded != 3 || first.Failed != 0 {
		t.Fatalf("unexpected first report: %+v", first)
	}
	stored, puts, _ := repo.snapshot()
	for _, p := range []string{"/x/a.jar", "/x/b.jar", "/x/sub/c.jar"} {
		if _, ok := stored[p]; !ok {
			t.Fatalf("missing upload %s; got %v", p, puts)
		}
	}
	if stored["/x/sub/c.jar"] != "c" {
		t.Fatalf("unexpected content: %q", stored["/x/sub/c.jar"])
	}

	second, err := svc.Publish(context.Background(), PublishRequest{})
	if err != nil {
		t.Fatalf("second publish failed: %v", err)
	}
	if second.AlreadyExists != 3 || second.Failed != 0 || second.Succeeded != 0 {
		t.Fatalf("unexpected rerun report: %+v", second)
	}
	if _, _, badSums := repo.snapshot(); len(badSums) != 0 {
		t.Fatalf("checksum mismatch for %v", badSums)
	}
	if lines := buf.errorLines(); len(lines) != 0 {
		t.Fatalf("unexpected error logs: %v", lines)
	}
}

func TestPublishServiceRequestOverrides(t *testing.T) {
	repo := &fakeRepository{stored: map[string]string{}}
	srv := httptest.NewServer(repo)
	defer srv.Close()

	configured := writeTree(t, map[string]string{"ignored.jar": "i"})
	override := writeTree(t, map[string]string{"used.jar": "u"})

	svc, err := NewPublishService(context.Background(), config.Config{
		Target: config.TargetConfig{RootURL: srv.URL + "/x/", Credentials: config.NewCredentials("deployer", "secret")},
		Mirror: config.MirrorConfig{Path: configured},
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	report, err := svc.Publish(context.Background(), PublishRequest{MirrorPath: override, PublisherThreads: 1})
	if err != nil {
		t.Fatal(err)
	}
	_, puts, _ := repo.snapshot()
	if report.Succeeded != 1 || len(puts) != 1 || puts[0] != "/x/used.jar" {
		t.Fatalf("report=%+v puts=%v", report, puts)
	}
}

func TestPublishServiceUnauthorizedIsLoggedNotReturned(t *testing.T) {
	repo := &fakeRepository{stored: map[string]string{}}
	srv := httptest.NewServer(repo)
	defer srv.Close()

	root := writeTree(t, map[string]string{"a.jar": "a"})
	logger, buf := newTestLogger()
	svc, err := NewPublishService(context.Background(), config.Config{
		Target: config.TargetConfig{RootURL: srv.URL},
		Mirror: config.MirrorConfig{Path: root},
	}, logger)
	if err != nil {
		t.Fatal(err)
	}

	report, err := svc.Publish(context.Background(), PublishRequest{})
	if err != nil {
		t.Fatalf("rejection must not be returned: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if lines := buf.errorLines(); len(lines) != 1 {
		t.Fatalf("expected one error log, got %v", lines)
	}
}

func TestNewPublishServiceValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewPublishService(ctx, config.Config{}, zerolog.Nop()); !errors.Is(err, ErrMissingRootURL) {
		t.Fatalf("expected ErrMissingRootURL, got %v", err)
	}
	_, err := NewPublishService(ctx, config.Config{Target: config.TargetConfig{RootURL: "ftp://repo/x"}}, zerolog.Nop())
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestPublishServiceS3Integration(t *testing.T) {
	bucketURL := os.Getenv("MIRROR_PUBLISH_TEST_S3_URL")
	endpoint := os.Getenv("AWS_ENDPOINT_URL")
	if bucketURL == "" || endpoint == "" {
		t.Skip("Missing env vars (MIRROR_PUBLISH_TEST_S3_URL, AWS_ENDPOINT_URL), skipping integration test.")
	}

	root := writeTree(t, map[string]string{"org/a/1.0/a-1.0.jar": "a"})
	svc, err := NewPublishService(context.Background(), config.Config{
		Target: config.TargetConfig{RootURL: bucketURL},
		Mirror: config.MirrorConfig{Path: root},
		S3: config.S3Config{
			AccessKey:   os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey:   os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:      os.Getenv("AWS_REGION"),
			EndpointURL: endpoint,
		},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to init sdk: %v", err)
	}

	if _, err := svc.Publish(context.Background(), PublishRequest{}); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}
	report, err := svc.Publish(context.Background(), PublishRequest{})
	if err != nil {
		t.Fatalf("second publish failed: %v", err)
	}
	if report.Failed != 0 || report.AlreadyExists != 1 {
		t.Fatalf("unexpected rerun report: %+v", report)
	}
}
