// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UEAdmission Contributors

// Package config loads UEAdmission configuration. Values are layered, each
// overriding the previous: built-in defaults, the YAML config file,
// environment variables (optionally from .env), then command-line flags.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/ueadmission/ueadmission/internal/logging"
	"github.com/ueadmission/ueadmission/internal/xdg"
)

// Session backends for the key/value channel.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" json:"log,omitempty" jsonschema:"description=Logging output"`
	Session  SessionConfig  `koanf:"session" json:"session,omitempty" jsonschema:"description=Session persistence"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty" jsonschema:"description=User directory database"`
	Redis    RedisConfig    `koanf:"redis" json:"redis,omitempty" jsonschema:"description=Redis preferences backend"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" jsonschema:"description=Prometheus endpoint"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	// File receives logs from interactive commands. Empty means the XDG
	// state directory.
	File string `koanf:"file" json:"file,omitempty"`
}

// SessionConfig controls where sessions are persisted.
type SessionConfig struct {
	Backend         string `koanf:"backend" json:"backend,omitempty" jsonschema:"enum=file,enum=redis"`
	PreferencesFile string `koanf:"preferences_file" json:"preferences_file,omitempty"`
	BlobFile        string `koanf:"blob_file" json:"blob_file,omitempty"`
	LogoutTimeout   string `koanf:"logout_timeout" json:"logout_timeout,omitempty" jsonschema:"pattern=^[0-9]+(ms|s|m)$"`
}

// DatabaseConfig locates the user directory.
type DatabaseConfig struct {
	URL        string `koanf:"url" json:"url,omitempty"`
	MaxRetries uint64 `koanf:"max_retries" json:"max_retries,omitempty" jsonschema:"maximum=10"`
	RetryDelay string `koanf:"retry_delay" json:"retry_delay,omitempty" jsonschema:"pattern=^[0-9]+(ms|s)$"`
}

// RedisConfig configures the Redis preferences backend.
type RedisConfig struct {
	Addr     string `koanf:"addr" json:"addr,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
	DB       int    `koanf:"db" json:"db,omitempty" jsonschema:"minimum=0,maximum=15"`
	Prefix   string `koanf:"prefix" json:"prefix,omitempty"`
}

// MetricsConfig configures the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log: LogConfig{
			Format: "json",
			Level:  "info",
		},
		Session: SessionConfig{
			Backend:       BackendFile,
			LogoutTimeout: "5s",
		},
		Database: DatabaseConfig{
			MaxRetries: 3,
			RetryDelay: "100ms",
		},
		Redis: RedisConfig{
			Prefix: "ueadmission",
		},
	}
}

// envKeys maps environment variables to config keys.
var envKeys = map[string]string{
	"DATABASE_URL":          "database.url",
	"REDIS_ADDR":            "redis.addr",
	"REDIS_PASSWORD":        "redis.password",
	"UEADMISSION_LOG_LEVEL": "log.level",
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-format":      "log.format",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"session-backend": "session.backend",
	"database-url":    "database.url",
	"redis-addr":      "redis.addr",
	"metrics-addr":    "metrics.addr",
}

// Options tells Load where to look.
type Options struct {
	// Path is the config file. Empty means the XDG config file, which may
	// be absent.
	Path string
	// EnvFile is loaded into the environment when present. Empty means ".env".
	EnvFile string
	// Flags override every other source when changed.
	Flags *pflag.FlagSet
}

// Load builds the configuration from all sources and validates it.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Code("CONFIG_ENV_FAILED").With("path", envFile).Wrap(err)
	}

	k := koanf.New(".")

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		p, err := xdg.ConfigFile()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if err := loadFile(k, path, explicit); err != nil {
		return nil, err
	}

	for env, key := range envKeys {
		if v := os.Getenv(env); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code("CONFIG_ENV_FAILED").With("env", env).Wrap(err)
			}
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, f.Value.String()
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").With("path", path).Wrap(err)
	}
	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return nil
	case err != nil:
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateSchema(data); err != nil {
		return oops.Code("CONFIG_INVALID").With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func (c *Config) resolvePaths() error {
	if c.Session.PreferencesFile == "" {
		p, err := xdg.PreferencesFile()
		if err != nil {
			return err
		}
		c.Session.PreferencesFile = p
	}
	if c.Session.BlobFile == "" {
		p, err := xdg.SessionFile()
		if err != nil {
			return err
		}
		c.Session.BlobFile = p
	}
	if c.Log.File == "" {
		p, err := xdg.LogFile()
		if err != nil {
			return err
		}
		c.Log.File = p
	}
	return nil
}

// Validate checks values the schema cannot express.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("log.format", c.Log.Format).
			Errorf("log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("log.level", c.Log.Level).Wrap(err)
	}
	switch c.Session.Backend {
	case BackendFile:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return oops.Code("CONFIG_INVALID").Errorf("redis.addr is required for the redis session backend")
		}
	default:
		return oops.Code("CONFIG_INVALID").With("session.backend", c.Session.Backend).
			Errorf("session backend must be 'file' or 'redis', got %q", c.Session.Backend)
	}
	if _, err := c.LogoutTimeout(); err != nil {
		return err
	}
	if _, err := c.RetryDelay(); err != nil {
		return err
	}
	return nil
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}

// LogoutTimeout bounds the directory update made on logout.
func (c *Config) LogoutTimeout() (time.Duration, error) {
	return positiveDuration("session.logout_timeout", c.Session.LogoutTimeout)
}

// RetryDelay is the initial backoff between directory retries.
func (c *Config) RetryDelay() (time.Duration, error) {
	return positiveDuration("database.retry_delay", c.Database.RetryDelay)
}

func positiveDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, oops.Code("CONFIG_INVALID").With(key, value).Wrap(err)
	}
	if d <= 0 {
		return 0, oops.Code("CONFIG_INVALID").With(key, value).Errorf("%s must be positive", key)
	}
	return d, nil
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-format", "", "log format (json, text)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-file", "", "log file for interactive commands")
	fs.String("session-backend", "", "preferences backend (file, redis)")
	fs.String("database-url", "", "user directory PostgreSQL URL")
	fs.String("redis-addr", "", "Redis address for the redis session backend")
	fs.String("metrics-addr", "", "observability server address (empty disables)")
}
