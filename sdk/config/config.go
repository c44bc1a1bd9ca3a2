// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package config

import "time"

const (
	DefaultMirrorPath       = "./mirror/"
	DefaultPublisherThreads = 10
	DefaultDrainTimeout     = 600 * time.Second
	DefaultRequestTimeout   = 10 * time.Minute
)

// Config complessiva passata all’SDK (niente viper/INI qui)
type Config struct {
	Target TargetConfig
	Mirror MirrorConfig
	S3     S3Config
}

type TargetConfig struct {
	RootURL          string
	Credentials      *Credentials
	PublisherThreads int
}

type MirrorConfig struct {
	Path string
}

type S3Config struct {
	AccessKey   string
	SecretKey   string
	AccessToken string
	Region      string
	EndpointURL string
}

// Credentials for Basic authentication against the target repository.
// A nil *Credentials means no Authorization header is sent.
type Credentials struct {
	username string
	password string
}

// NewCredentials returns nil unless both username and password are set,
// so partial credentials can never reach the wire.
func NewCredentials(username, password string) *Credentials {
	if username == "" || password == "" {
		return nil
	}
	return &Credentials{username: username, password: password}
}

func (c *Credentials) Username() string {
	if c == nil {
		return ""
	}
	return c.username
}

func (c *Credentials) Password() string {
	if c == nil {
		return ""
	}
	return c.password
}
