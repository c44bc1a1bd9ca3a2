// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

const testIni = `[DEFAULT]
current_environment = staging
mirror_path = /srv/mirror

[staging]
target_root_url = https://repo.example.org/releases
target_user = deployer
target_password = secret
target_publisher_threads = 6
`

func setupHome(t *testing.T, iniContent string) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{"TARGET_ROOT_URL", "TARGET_USER", "TARGET_PASSWORD", "TARGET_PUBLISHER_THREADS", "MIRROR_PATH"} {
		t.Setenv(name, "")
	}
	if iniContent != "" {
		if err := os.WriteFile(filepath.Join(home, IniName), []byte(iniContent), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return home
}

func TestRegisterIniCfgWithViperLoadsActiveSection(t *testing.T) {
	setupHome(t, testIni)

	if err := RegisterIniCfgWithViper(); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if env := viper.GetString(CurrentEnvironment); env != "staging" {
		t.Fatalf("current environment = %q", env)
	}

	cfg, err := BuildConfig()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if cfg.Target.RootURL != "https://repo.example.org/releases" {
		t.Fatalf("root url = %q", cfg.Target.RootURL)
	}
	if cfg.Target.Credentials == nil || cfg.Target.Credentials.Username() != "deployer" {
		t.Fatalf("credentials not loaded: %+v", cfg.Target.Credentials)
	}
	if cfg.Target.PublisherThreads != 6 {
		t.Fatalf("threads = %d", cfg.Target.PublisherThreads)
	}
	if cfg.Mirror.Path != "/srv/mirror" {
		t.Fatalf("mirror path = %q", cfg.Mirror.Path)
	}
}

func TestEnvOverridesIni(t *testing.T) {
	setupHome(t, testIni)
	t.Setenv("TARGET_PUBLISHER_THREADS", "3")
	t.Setenv("MIRROR_PUBLISH_TARGET_USER", "ci-bot")

	if err := RegisterIniCfgWithViper(); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	cfg, err := BuildConfig()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if cfg.Target.PublisherThreads != 3 {
		t.Fatalf("threads = %d, want env override", cfg.Target.PublisherThreads)
	}
	if cfg.Target.Credentials.Username() != "ci-bot" {
		t.Fatalf("user = %q, want prefixed env override", cfg.Target.Credentials.Username())
	}
}

func TestEnvOnlyModeUsesDefaults(t *testing.T) {
	setupHome(t, "")
	t.Setenv("TARGET_ROOT_URL", "https://repo/x")

	if err := RegisterIniCfgWithViper("prod"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	cfg, err := BuildConfig()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if cfg.Target.RootURL != "https://repo/x" || cfg.Target.PublisherThreads != 10 || cfg.Mirror.Path != "./mirror/" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Target.Credentials != nil {
		t.Fatal("credentials must be absent")
	}
	if viper.GetString(CurrentEnvironment) != "prod" {
		t.Fatalf("env = %q", viper.GetString(CurrentEnvironment))
	}
}

func TestNonNumericThreadsIsConfigError(t *testing.T) {
	setupHome(t, testIni)
	t.Setenv("TARGET_PUBLISHER_THREADS", "many")

	if err := RegisterIniCfgWithViper(); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := BuildConfig(); err == nil || !strings.Contains(err.Error(), TargetPublisherThreads) {
		t.Fatalf("expected error naming %s, got %v", TargetPublisherThreads, err)
	}
}

func TestFlagsOverrideWhenSet(t *testing.T) {
	setupHome(t, testIni)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("root-url", "", "")
	fs.Int("threads", 10, "")
	if err := fs.Parse([]string{"--threads", "2"}); err != nil {
		t.Fatal(err)
	}
	if err := RegisterIniCfgWithViper(); err != nil {
		t.Fatal(err)
	}
	if err := BindFlagsFromStruct(fs); err != nil {
		t.Fatal(err)
	}

	cfg, err := BuildConfig()
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if cfg.Target.PublisherThreads != 2 {
		t.Fatalf("threads = %d, want flag value", cfg.Target.PublisherThreads)
	}
	if cfg.Target.RootURL != "https://repo.example.org/releases" {
		t.Fatalf("unset flag must not shadow ini: %q", cfg.Target.RootURL)
	}
}

func TestPersistCurrentEnvironment(t *testing.T) {
	home := setupHome(t, "")
	t.Setenv("TARGET_ROOT_URL", "https://repo/x")
	t.Setenv("TARGET_PASSWORD", "pw")

	if err := RegisterIniCfgWithViper("ci"); err != nil {
		t.Fatal(err)
	}
	if err := PersistCurrentEnvironment(); err != nil {
		t.Fatalf("persist failed: %v", err)
	}

	cfg, err := ini.Load(filepath.Join(home, IniName))
	if err != nil {
		t.Fatalf("reload ini: %v", err)
	}
	if got := cfg.Section("DEFAULT").Key(CurrentEnvironment).String(); got != "ci" {
		t.Fatalf("current_environment = %q", got)
	}
	sec := cfg.Section("ci")
	if sec.Key(TargetRootURL).String() != "https://repo/x" || sec.Key(MirrorPath).String() != "./mirror/" {
		t.Fatalf("unexpected section: %v", sec.KeysHash())
	}
	if sec.HasKey(LogLevel) {
		t.Fatal("non-persisted key written")
	}

	redacted := RedactedSettings()
	if redacted[TargetPassword] != "****" || redacted[TargetRootURL] != "https://repo/x" {
		t.Fatalf("unexpected redaction: %v", redacted)
	}
}
