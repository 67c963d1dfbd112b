// Package config loads the application configuration.
//
// Sources are applied in order: built-in defaults, an optional YAML file,
// an optional .env file, then TENDRIL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TENDRIL_"

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig   `yaml:"server"`
	Store      string         `yaml:"store"`      // memory | redis | file
	Repository string         `yaml:"repository"` // memory | postgres | file
	File       FileConfig     `yaml:"file"`
	Redis      RedisConfig    `yaml:"redis"`
	Postgres   PostgresConfig `yaml:"postgres"`
	Auth       AuthConfig     `yaml:"auth"`
	Privacy    PrivacyConfig  `yaml:"privacy"`
	Runtime    RuntimeConfig  `yaml:"runtime"`
	Janitor    JanitorConfig  `yaml:"janitor"`
	Log        LogConfig      `yaml:"log"`
	Seed       SeedConfig     `yaml:"seed"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// FileConfig locates the directories used by the file store and repository.
type FileConfig struct {
	SessionsDir string `yaml:"sessions_dir"`
	BotsDir     string `yaml:"bots_dir"`
}

type RedisConfig struct {
	URL    string        `yaml:"url"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
}

type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

type AuthConfig struct {
	// Secret signs and verifies the HS256 api keys of the chat endpoint.
	// Empty disables authentication.
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// PrivacyConfig protects captured answers at rest.
type PrivacyConfig struct {
	// EncryptionKey is a base64 AES-256 key sealing stored sessions. Empty disables encryption.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	// RedactKeys are regular expressions; matching context keys are masked before storage.
	RedactKeys []string `yaml:"redact_keys"`
}

type RuntimeConfig struct {
	RetryPolicy  string        `yaml:"retry_policy"` // end | reprompt | fallback
	FallbackNode string        `yaml:"fallback_node"`
	APITimeout   time.Duration `yaml:"api_timeout"`
}

type JanitorConfig struct {
	Schedule string        `yaml:"schedule"`
	IdleTTL  time.Duration `yaml:"idle_ttl"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Backend string `yaml:"backend"`
	Format  string `yaml:"format"`
}

// SeedConfig lists bot documents (JSON or YAML) loaded into the repository at startup.
type SeedConfig struct {
	Bots []string `yaml:"bots"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store:      "memory",
		Repository: "memory",
		File:       FileConfig{SessionsDir: ".tendril/sessions", BotsDir: "bots"},
		Redis: RedisConfig{
			URL:    "redis://localhost:6379/0",
			Prefix: "tendril:",
			TTL:    24 * time.Hour,
		},
		Postgres: PostgresConfig{MaxOpenConns: 10},
		Auth:     AuthConfig{Issuer: "tendril"},
		Runtime: RuntimeConfig{
			RetryPolicy: "end",
			APITimeout:  10 * time.Second,
		},
		Janitor: JanitorConfig{
			Schedule: "@every 5m",
			IdleTTL:  30 * time.Minute,
		},
		Log: LogConfig{Level: "info", Backend: "slog", Format: "text"},
	}
}

// Load builds the configuration. path may be empty; a missing .env is ignored.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	applyString("ADDR", &c.Server.Addr)
	collect(applyDuration("READ_TIMEOUT", &c.Server.ReadTimeout))
	collect(applyDuration("WRITE_TIMEOUT", &c.Server.WriteTimeout))

	applyString("STORE", &c.Store)
	applyString("REPOSITORY", &c.Repository)
	applyString("SESSIONS_DIR", &c.File.SessionsDir)
	applyString("BOTS_DIR", &c.File.BotsDir)

	applyString("REDIS_URL", &c.Redis.URL)
	applyString("REDIS_PREFIX", &c.Redis.Prefix)
	collect(applyDuration("REDIS_TTL", &c.Redis.TTL))

	applyString("POSTGRES_DSN", &c.Postgres.DSN)
	collect(applyInt("POSTGRES_MAX_OPEN_CONNS", &c.Postgres.MaxOpenConns))

	applyString("AUTH_SECRET", &c.Auth.Secret)
	applyString("AUTH_ISSUER", &c.Auth.Issuer)

	applyString("ENCRYPTION_KEY", &c.Privacy.EncryptionKey)
	applyList("ENCRYPTION_FALLBACK_KEYS", &c.Privacy.FallbackKeys)
	applyList("REDACT_KEYS", &c.Privacy.RedactKeys)

	applyString("RETRY_POLICY", &c.Runtime.RetryPolicy)
	applyString("FALLBACK_NODE", &c.Runtime.FallbackNode)
	collect(applyDuration("API_TIMEOUT", &c.Runtime.APITimeout))

	applyString("JANITOR_SCHEDULE", &c.Janitor.Schedule)
	collect(applyDuration("JANITOR_IDLE_TTL", &c.Janitor.IdleTTL))

	applyString("LOG_LEVEL", &c.Log.Level)
	applyString("LOG_BACKEND", &c.Log.Backend)
	applyString("LOG_FORMAT", &c.Log.Format)

	applyList("SEED_BOTS", &c.Seed.Bots)

	return errors.Join(errs...)
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "redis", "file":
	default:
		return fmt.Errorf("unknown store %q (memory|redis|file)", c.Store)
	}
	switch c.Repository {
	case "memory", "file":
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return fmt.Errorf("postgres repository requires postgres.dsn")
		}
	default:
		return fmt.Errorf("unknown repository %q (memory|postgres|file)", c.Repository)
	}
	switch c.Runtime.RetryPolicy {
	case "end", "reprompt":
	case "fallback":
		if c.Runtime.FallbackNode == "" {
			return fmt.Errorf("fallback retry policy requires runtime.fallback_node")
		}
	default:
		return fmt.Errorf("unknown retry policy %q (end|reprompt|fallback)", c.Runtime.RetryPolicy)
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*target = v
	}
}

func applyList(key string, target *[]string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*target = strings.Split(v, ",")
	}
}

func applyInt(key string, target *int) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*target = n
	return nil
}

func applyDuration(key string, target *time.Duration) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*target = d
	return nil
}
