package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"sentra.org/internal/token"
)

// Config is the root configuration for the sentra API. It is loaded once at
// startup from YAML, overridden by environment variables, validated, and then
// treated as immutable: components receive the values they need at
// construction instead of reading ambient process state.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	LoginRateBurst  int           `yaml:"login_rate_burst"`
	LoginRatePerSec int           `yaml:"login_rate_per_sec"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// AuthConfig contains token signing parameters and lifetimes.
type AuthConfig struct {
	Secret     string        `yaml:"secret"`
	Algorithm  string        `yaml:"algorithm"`
	Issuer     string        `yaml:"issuer"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
	Leeway     time.Duration `yaml:"leeway"`
}

// Codec builds the token codec described by this section. Validate must have
// accepted the config first, so the secret is known to be non-empty.
func (a AuthConfig) Codec() (*token.Codec, error) {
	return token.NewCodec(a.Secret, a.Issuer, token.WithLeeway(a.Leeway))
}

// Default returns the configuration used when no file or environment
// overrides are present. The auth secret intentionally has no default.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxBodyBytes:    1 << 20,
			LoginRateBurst:  10,
			LoginRatePerSec: 5,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 10,
		},
		Auth: AuthConfig{
			Algorithm:  "HS256",
			Issuer:     "sentra",
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Leeway:     5 * time.Second,
		},
	}
}

// Load reads configuration from path (optional, "" skips the file), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and sane.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("config: server.addr is required")
	}
	if c.Auth.Secret == "" {
		return errors.New("config: auth.secret is required (SENTRA_AUTH_SECRET)")
	}
	if c.Auth.Algorithm != "HS256" {
		return fmt.Errorf("config: unsupported auth.algorithm %q", c.Auth.Algorithm)
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.Auth.RefreshTTL <= c.Auth.AccessTTL {
		return errors.New("config: refresh TTL must exceed access TTL")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SENTRA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SENTRA_PG_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("SENTRA_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("SENTRA_AUTH_ISSUER"); v != "" {
		cfg.Auth.Issuer = v
	}
	if v := os.Getenv("SENTRA_ACCESS_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.AccessTTL = d
		}
	}
	if v := os.Getenv("SENTRA_REFRESH_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.RefreshTTL = d
		}
	}
	if v := os.Getenv("SENTRA_MAX_OPEN_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Database.MaxOpenConns = n
		}
	}
}
