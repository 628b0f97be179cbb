/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables (and a .env file in the working directory) are read-only overrides.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// BackendConfig points at the hosted backend-as-a-service that owns projects,
// profiles, collaborators, notifications and analytics.
type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"` // public anon key; user tokens live in the keyring
	TimeoutMs int    `yaml:"timeout_ms"`
	Retries   int    `yaml:"retries"`
}

// StorageConfig selects the project store adapter.
type StorageConfig struct {
	Driver string `yaml:"driver"` // "sqlite" | "postgres" | "rest"
	DSN    string `yaml:"dsn"`    // postgres connection string
	Path   string `yaml:"path"`   // sqlite database file
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	AllowAllOrigins bool   `yaml:"allow_all_origins"`
	SessionCache    int    `yaml:"session_cache"`
	PruneSchedule   string `yaml:"prune_schedule"`
	KeepRevisions   int    `yaml:"keep_revisions"`
	AuthSecret      string `yaml:"-"` // env only
}

// PublishConfig configures the S3-compatible bucket published pages go to.
// An empty endpoint disables artifact upload; publishing then only flips status.
type PublishConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Bucket     string `yaml:"bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"-"` // env only
	UseSSL     bool   `yaml:"use_ssl"`
	BaseDomain string `yaml:"base_domain"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Storage       StorageConfig `yaml:"storage"`
	Server        ServerConfig  `yaml:"server"`
	Publish       PublishConfig `yaml:"publish"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Backend:       BackendConfig{BaseURL: "http://localhost:54321", TimeoutMs: 15000, Retries: 3},
		Storage:       StorageConfig{Driver: "sqlite", Path: "buildify.sqlite"},
		Server:        ServerConfig{Addr: ":8080", SessionCache: 256, PruneSchedule: "@every 30m", KeepRevisions: 20},
		Publish:       PublishConfig{Bucket: "sites", UseSSL: true, BaseDomain: "buildify.app"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "BFY_CONFIG"
	EnvBackendURL       = "BFY_BACKEND_URL"
	EnvBackendAPIKey    = "BFY_BACKEND_API_KEY"
	EnvBackendTimeoutMs = "BFY_BACKEND_TIMEOUT_MS"
	EnvBackendRetries   = "BFY_BACKEND_RETRIES"
	EnvStorageDriver    = "BFY_STORAGE_DRIVER"
	EnvStorageDSN       = "BFY_PG_DSN"
	EnvStoragePath      = "BFY_SQLITE_PATH"
	EnvServerAddr       = "BFY_ADDR"
	EnvAllowAllOrigins  = "BFY_ALLOW_ALL_ORIGINS"
	EnvAuthSecret       = "BFY_AUTH_SECRET"
	EnvPublishEndpoint  = "BFY_PUBLISH_ENDPOINT"
	EnvPublishBucket    = "BFY_PUBLISH_BUCKET"
	EnvPublishAccessKey = "BFY_PUBLISH_ACCESS_KEY"
	EnvPublishSecretKey = "BFY_PUBLISH_SECRET_KEY"
	EnvTelemetryOptIn   = "BFY_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "BFY_LOG_LEVEL"
	EnvLogFormat = "BFY_LOG_FORMAT"
	EnvLogSource = "BFY_LOG_SOURCE"
	EnvLogFile   = "BFY_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Buildify")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Buildify")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "buildify")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "buildify")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The session token is read from the keyring and returned separately; it is never kept in the struct.
func Load() (AppConfig, string, error) {
	_ = godotenv.Load()
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := LoadToken()
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return SaveToken(token)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if s := strings.TrimSpace(src.Backend.BaseURL); s != "" {
		dst.Backend.BaseURL = s
	}
	if s := strings.TrimSpace(src.Backend.APIKey); s != "" {
		dst.Backend.APIKey = s
	}
	if src.Backend.TimeoutMs > 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	if src.Backend.Retries > 0 {
		dst.Backend.Retries = src.Backend.Retries
	}

	if s := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); s != "" {
		dst.Storage.Driver = s
	}
	if s := strings.TrimSpace(src.Storage.DSN); s != "" {
		dst.Storage.DSN = s
	}
	if s := strings.TrimSpace(src.Storage.Path); s != "" {
		dst.Storage.Path = s
	}

	if s := strings.TrimSpace(src.Server.Addr); s != "" {
		dst.Server.Addr = s
	}
	dst.Server.AllowAllOrigins = src.Server.AllowAllOrigins
	if src.Server.SessionCache > 0 {
		dst.Server.SessionCache = src.Server.SessionCache
	}
	if s := strings.TrimSpace(src.Server.PruneSchedule); s != "" {
		dst.Server.PruneSchedule = s
	}
	if src.Server.KeepRevisions > 0 {
		dst.Server.KeepRevisions = src.Server.KeepRevisions
	}

	if s := strings.TrimSpace(src.Publish.Endpoint); s != "" {
		dst.Publish.Endpoint = s
	}
	if s := strings.TrimSpace(src.Publish.Bucket); s != "" {
		dst.Publish.Bucket = s
	}
	if s := strings.TrimSpace(src.Publish.AccessKey); s != "" {
		dst.Publish.AccessKey = s
	}
	if s := strings.TrimSpace(src.Publish.BaseDomain); s != "" {
		dst.Publish.BaseDomain = s
	}
	// booleans: copy from file so the user's choice persists
	dst.Publish.UseSSL = src.Publish.UseSSL

	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	envInt := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = parseBool(v)
		}
	}

	envString(EnvBackendURL, &cfg.Backend.BaseURL)
	envString(EnvBackendAPIKey, &cfg.Backend.APIKey)
	envInt(EnvBackendTimeoutMs, &cfg.Backend.TimeoutMs)
	envInt(EnvBackendRetries, &cfg.Backend.Retries)
	envString(EnvStorageDriver, &cfg.Storage.Driver)
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	envString(EnvStorageDSN, &cfg.Storage.DSN)
	envString(EnvStoragePath, &cfg.Storage.Path)
	envString(EnvServerAddr, &cfg.Server.Addr)
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" && os.Getenv(EnvServerAddr) == "" {
		cfg.Server.Addr = ":" + v
	}
	envBool(EnvAllowAllOrigins, &cfg.Server.AllowAllOrigins)
	envString(EnvAuthSecret, &cfg.Server.AuthSecret)
	envString(EnvPublishEndpoint, &cfg.Publish.Endpoint)
	envString(EnvPublishBucket, &cfg.Publish.Bucket)
	envString(EnvPublishAccessKey, &cfg.Publish.AccessKey)
	envString(EnvPublishSecretKey, &cfg.Publish.SecretKey)
	envBool(EnvTelemetryOptIn, &cfg.General.TelemetryOptIn)
	envString(EnvLogLevel, &cfg.Logging.Level)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	envString(EnvLogFormat, &cfg.Logging.Format)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
	envBool(EnvLogSource, &cfg.Logging.Source)
	envString(EnvLogFile, &cfg.Logging.File)
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"backend.base_url":         EnvBackendURL,
		"backend.api_key":          EnvBackendAPIKey,
		"backend.timeout_ms":       EnvBackendTimeoutMs,
		"backend.retries":          EnvBackendRetries,
		"storage.driver":           EnvStorageDriver,
		"storage.dsn":              EnvStorageDSN,
		"storage.path":             EnvStoragePath,
		"server.addr":              EnvServerAddr,
		"server.allow_all_origins": EnvAllowAllOrigins,
		"publish.endpoint":         EnvPublishEndpoint,
		"publish.bucket":           EnvPublishBucket,
		"publish.access_key":       EnvPublishAccessKey,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	env, ok := names[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Timeout returns the per-attempt backend timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Attempts returns how many times a persistence call is tried before giving up.
func (b BackendConfig) Attempts() int {
	if b.Retries <= 0 {
		return 1
	}
	return b.Retries
}
