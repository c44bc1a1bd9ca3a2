// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"sigs.k8s.io/yaml"
)

// ParsedPath is a target location split into its parts.
// For s3://bucket/prefix/key, Host is the bucket and Path the key with no leading "/".
type ParsedPath struct {
	Scheme string
	Host   string
	Path   string
}

func ParsePath(raw string) (*ParsedPath, error) {
	if raw == "" {
		return nil, errors.New("empty path")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return nil, fmt.Errorf("missing scheme in %q", raw)
	}

	pp := &ParsedPath{Scheme: scheme, Host: u.Host, Path: u.Path}
	if scheme == "s3" {
		if u.Host == "" {
			return nil, fmt.Errorf("missing bucket in %q", raw)
		}
		pp.Path = strings.TrimPrefix(u.Path, "/")
	}
	return pp, nil
}

func TranslateFormat(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	default:
		return "short"
	}
}

// PrintOutput writes v as JSON or YAML. The short format uses short,
// which callers pass to render a one-line summary.
func PrintOutput(w io.Writer, v any, format string, short func() string) error {
	switch TranslateFormat(format) {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		_, err := fmt.Fprintln(w, short())
		return err
	}
}
