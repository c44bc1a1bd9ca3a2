// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scc-digitalhub/mirror-publisher-sdk/sdk/config"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// EnvDumpPrefix: prefixed variables (MIRROR_PUBLISH_TARGET_USER) are mirrored to the bare name
const EnvDumpPrefix = "MIRROR_PUBLISH"

// Settings holds all logical keys. Tags:
// - vkey: Viper key
// - env: canonical env name (UPPER_SNAKE). If empty, derived from vkey
// - persist: "true" to write the key into the INI
// - default: optional default to set if key is unset
// - secret: "true" if sensitive (redacted by RedactedSettings)
// - flag: name of the CLI flag bound to the key, if any
type Settings struct {
	TargetRootURL          string `vkey:"target_root_url"          env:"TARGET_ROOT_URL"          persist:"true" flag:"root-url"`
	TargetUser             string `vkey:"target_user"              env:"TARGET_USER"              persist:"true" flag:"user"`
	TargetPassword         string `vkey:"target_password"          env:"TARGET_PASSWORD"          persist:"true" flag:"password" secret:"true"`
	TargetPublisherThreads string `vkey:"target_publisher_threads" env:"TARGET_PUBLISHER_THREADS" persist:"true" flag:"threads"  default:"10"`
	MirrorPath             string `vkey:"mirror_path"              env:"MIRROR_PATH"              persist:"true" flag:"mirror-path" default:"./mirror/"`
	LogLevel               string `vkey:"log_level"                env:"LOG_LEVEL"                persist:"false" flag:"log-level" default:"info"`
	AwsAccessKeyID         string `vkey:"aws_access_key_id"        env:"AWS_ACCESS_KEY_ID"        persist:"true" secret:"true"`
	AwsSecretAccessKey     string `vkey:"aws_secret_access_key"    env:"AWS_SECRET_ACCESS_KEY"    persist:"true" secret:"true"`
	AwsSessionToken        string `vkey:"aws_session_token"        env:"AWS_SESSION_TOKEN"        persist:"true" secret:"true"`
	AwsRegion              string `vkey:"aws_region"               env:"AWS_REGION"               persist:"true"`
	AwsEndpointURL         string `vkey:"aws_endpoint_url"         env:"AWS_ENDPOINT_URL"         persist:"true"`
	CurrentEnvironment     string `vkey:"current_environment"      env:"CURRENT_ENVIRONMENT"      persist:"false"`
}

func getIniPath() string {
	iniPath, err := os.UserHomeDir()
	if err != nil {
		iniPath = "."
	}
	return iniPath + string(os.PathSeparator) + IniName
}

// resolveEnvName: --env > "default"
func resolveEnvName(optionalEnv ...string) string {
	if len(optionalEnv) > 0 && optionalEnv[0] != "" && strings.ToLower(optionalEnv[0]) != "null" {
		return optionalEnv[0]
	}
	return "default"
}

// mirror PREFIX_FOO -> FOO (optional)
func mirrorPrefix(prefix string) {
	if prefix == "" {
		return
	}
	upPrefix := strings.ToUpper(prefix) + "_"
	for _, e := range os.Environ() {
		kv := strings.SplitN(e, "=", 2)
		if len(kv) != 2 {
			continue
		}
		name, val := kv[0], kv[1]
		if strings.HasPrefix(name, upPrefix) {
			unpref := strings.TrimPrefix(name, upPrefix)
			if os.Getenv(unpref) == "" {
				_ = os.Setenv(unpref, val)
			}
		}
	}
}

func forEachSetting(fn func(f reflect.StructField, key string)) {
	rt := reflect.TypeOf(Settings{})
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		key := f.Tag.Get("vkey")
		if key == "" {
			continue
		}
		fn(f, key)
	}
}

// Bind env for all fields of Settings using struct tags.
func BindEnvFromStruct(prefix string) {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	mirrorPrefix(prefix)

	forEachSetting(func(f reflect.StructField, key string) {
		env := f.Tag.Get("env")
		if env == "" {
			env = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		}
		_ = viper.BindEnv(key, env)

		if def := f.Tag.Get("default"); def != "" && !viper.IsSet(key) {
			viper.SetDefault(key, def)
		}
	})
}

// BindFlagsFromStruct binds every flag named by a `flag` tag into Viper.
// Flags only win over INI/env values when explicitly set on the command line.
func BindFlagsFromStruct(fs *pflag.FlagSet) error {
	var bindErr error
	forEachSetting(func(f reflect.StructField, key string) {
		name := f.Tag.Get("flag")
		if name == "" || bindErr != nil {
			return
		}
		flag := fs.Lookup(name)
		if flag == nil {
			return
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			bindErr = fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	})
	return bindErr
}

func writePersisted(sec *ini.Section) {
	forEachSetting(func(f reflect.StructField, key string) {
		if f.Tag.Get("persist") != "true" {
			return
		}
		val := viper.GetString(key)
		if val == "" {
			return
		}
		sec.Key(key).SetValue(val)
	})
}

// Write a new INI with only fields marked persist:"true".
func WriteIniFromStruct(iniPath, envName string) error {
	cfg := ini.Empty()
	cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	writePersisted(cfg.Section(envName))
	return cfg.SaveTo(iniPath)
}

// Update or create INI section from current Viper values (persist:"true" only).
func UpdateIniFromStruct(iniPath, envName string) error {
	cfg, err := ini.Load(iniPath)
	if err != nil {
		return WriteIniFromStruct(iniPath, envName)
	}
	sec := cfg.Section(envName)
	writePersisted(sec)

	if !cfg.Section("DEFAULT").HasKey(CurrentEnvironment) {
		cfg.Section("DEFAULT").Key(CurrentEnvironment).SetValue(envName)
	}
	sec.Key(UpdatedEnvKey).SetValue(time.Now().UTC().Format(time.RFC3339))
	return cfg.SaveTo(iniPath)
}

// PersistCurrentEnvironment saves the effective configuration into the active INI section.
func PersistCurrentEnvironment() error {
	env := viper.GetString(CurrentEnvironment)
	if env == "" {
		env = resolveEnvName()
	}
	if err := UpdateIniFromStruct(getIniPath(), env); err != nil {
		return fmt.Errorf("failed to save ini: %w", err)
	}
	log.Info().Str("env", env).Str("path", getIniPath()).Msg("Updated ini section")
	return nil
}

// Load [DEFAULT] + [env] into Viper (TOML in-memory). ENV can still override on Get().
func loadIniSectionIntoViper(cfg *ini.File, env string) error {
	def := cfg.Section("DEFAULT")
	selected := def
	if env != "" && cfg.HasSection(env) {
		selected = cfg.Section(env)
		log.Debug().Str("env", env).Msg("Using env")
	} else if env == "" || strings.EqualFold(env, "DEFAULT") {
		log.Debug().Str("env", "DEFAULT").Msg("Using env")
	} else {
		log.Warn().Str("env", env).Msg("Env not found, falling back to [DEFAULT]")
	}

	merged := make(map[string]string)
	for _, k := range def.Keys() {
		merged[k.Name()] = k.Value()
	}
	if selected != nil && selected != def {
		for _, k := range selected.Keys() {
			merged[k.Name()] = k.Value()
		}
	}

	var buf bytes.Buffer
	for k, v := range merged {
		vSafe := strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`)
		_, _ = fmt.Fprintf(&buf, "%s = \"%s\"\n", k, vSafe)
	}
	viper.SetConfigType("toml")
	return viper.ReadConfig(&buf)
}

// RegisterIniCfgWithViper:
// 1) bind ENV from struct (live)
// 2) load INI if present, otherwise run in ENV-only mode
// 3) load active section into Viper and set current_environment
func RegisterIniCfgWithViper(optionalEnv ...string) error {
	BindEnvFromStruct(EnvDumpPrefix)

	cfg, err := ini.Load(getIniPath())
	if err != nil {
		log.Debug().Err(err).Msg("INI not found; using environment variables only")
		viper.Set(IniSource, "env")
		viper.Set(CurrentEnvironment, resolveEnvName(optionalEnv...))
		return nil
	}

	// active env: --env > DEFAULT.current_environment > default
	env := resolveEnvName(optionalEnv...)
	if env == "default" {
		if v := cfg.Section("DEFAULT").Key(CurrentEnvironment).String(); v != "" {
			env = v
		}
	}

	if err := loadIniSectionIntoViper(cfg, env); err != nil {
		return fmt.Errorf("failed to load INI into viper: %w", err)
	}
	viper.Set(IniSource, "ini")
	viper.Set(CurrentEnvironment, env)
	return nil
}

// BuildConfig assembles the SDK configuration from the current Viper state.
func BuildConfig() (config.Config, error) {
	threads, err := intSetting(TargetPublisherThreads)
	if err != nil {
		return config.Config{}, err
	}
	return config.Config{
		Target: config.TargetConfig{
			RootURL:          viper.GetString(TargetRootURL),
			Credentials:      config.NewCredentials(viper.GetString(TargetUser), viper.GetString(TargetPassword)),
			PublisherThreads: threads,
		},
		Mirror: config.MirrorConfig{
			Path: viper.GetString(MirrorPath),
		},
		S3: config.S3Config{
			AccessKey:   viper.GetString(AwsAccessKeyID),
			SecretKey:   viper.GetString(AwsSecretAccessKey),
			AccessToken: viper.GetString(AwsSessionToken),
			Region:      viper.GetString(AwsRegion),
			EndpointURL: viper.GetString(AwsEndpointURL),
		},
	}, nil
}

// intSetting reads key as an integer; unset or blank means 0.
func intSetting(key string) (int, error) {
	raw := viper.Get(key)
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	if raw == nil {
		return 0, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return n, nil
}

// RedactedSettings returns the effective settings with secret values masked.
func RedactedSettings() map[string]string {
	out := map[string]string{}
	forEachSetting(func(f reflect.StructField, key string) {
		val := viper.GetString(key)
		if val != "" && f.Tag.Get("secret") == "true" {
			val = "****"
		}
		out[key] = val
	})
	return out
}
