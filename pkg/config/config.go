// Package config holds the server and CLI configuration, loaded from
// defaults, an optional YAML file, and ENTROPIC_* environment variables, in
// that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can use the familiar
// "30s" / "1m" syntax. Bare integers are read as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("parsing duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tree      TreeConfig      `yaml:"tree"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	RequestTimeout  Duration `yaml:"request_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// TreeConfig holds partition-strategy defaults for trees built by the
// service.
type TreeConfig struct {
	SqrtThresh  int     `yaml:"sqrt_thresh"`
	Log2Thresh  int     `yaml:"log2_thresh"`
	MinSplit    float64 `yaml:"min_split"`
	MaxSplit    float64 `yaml:"max_split"`
	DepthStride int     `yaml:"depth_stride"`
}

// SearchConfig holds search and selection-harness defaults.
type SearchConfig struct {
	DefaultK         int      `yaml:"default_k"`
	SelectionQueries int      `yaml:"selection_queries"`
	SelectionMinTime Duration `yaml:"selection_min_time"`
}

// AuthConfig holds JWT authentication configuration.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	JWTSecret string `yaml:"jwt_secret"`
}

// RateLimitConfig holds request rate limiting configuration.
type RateLimitConfig struct {
	Enabled        bool    `yaml:"enabled"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Burst          int     `yaml:"burst"`
	PerIP          bool    `yaml:"per_ip"`
}

// CacheConfig holds query result cache configuration.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Tree: TreeConfig{
			SqrtThresh:  256,
			Log2Thresh:  65536,
			MinSplit:    0,
			MaxSplit:    1,
			DepthStride: 128,
		},
		Search: SearchConfig{
			DefaultK:         10,
			SelectionQueries: 100,
			SelectionMinTime: Duration(time.Second),
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:        false,
			RequestsPerSec: 100,
			Burst:          200,
			PerIP:          true,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1024,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFile reads a YAML configuration file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFromEnv returns the defaults with environment overrides applied.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if host := os.Getenv("ENTROPIC_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("ENTROPIC_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if timeout := os.Getenv("ENTROPIC_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			c.Server.RequestTimeout = Duration(t)
		}
	}
	if v := os.Getenv("ENTROPIC_MAX_SPLIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tree.MaxSplit = f
		}
	}
	if v := os.Getenv("ENTROPIC_MIN_SPLIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Tree.MinSplit = f
		}
	}
	if v := os.Getenv("ENTROPIC_DEFAULT_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			c.Search.DefaultK = k
		}
	}
	if v := os.Getenv("ENTROPIC_AUTH_ENABLED"); v == "true" {
		c.Auth.Enabled = true
		c.Auth.JWTSecret = os.Getenv("ENTROPIC_JWT_SECRET")
	}
	if v := os.Getenv("ENTROPIC_RATE_LIMIT_ENABLED"); v == "true" {
		c.RateLimit.Enabled = true
	}
	if v := os.Getenv("ENTROPIC_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Capacity = n
		}
	}
	if level := os.Getenv("ENTROPIC_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate checks the configuration for values outside their domains.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Tree.MinSplit < 0 || c.Tree.MinSplit >= 1 {
		return fmt.Errorf("min_split %v outside [0, 1)", c.Tree.MinSplit)
	}
	if c.Tree.MaxSplit <= 0 || c.Tree.MaxSplit > 1 {
		return fmt.Errorf("max_split %v outside (0, 1]", c.Tree.MaxSplit)
	}
	if c.Search.DefaultK < 1 {
		return fmt.Errorf("default_k must be at least 1, got %d", c.Search.DefaultK)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled without a jwt secret")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSec <= 0 {
		return fmt.Errorf("rate limiting enabled with non-positive rate")
	}
	if c.Cache.Enabled && c.Cache.Capacity < 1 {
		return fmt.Errorf("cache enabled with capacity %d", c.Cache.Capacity)
	}
	return nil
}
