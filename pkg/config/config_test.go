package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENTROPIC_PORT", "9999")
	t.Setenv("ENTROPIC_MAX_SPLIT", "0.75")
	t.Setenv("ENTROPIC_DEFAULT_K", "25")
	t.Setenv("ENTROPIC_LOG_LEVEL", "debug")

	cfg := LoadFromEnv()
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Tree.MaxSplit != 0.75 {
		t.Errorf("max_split = %v, want 0.75", cfg.Tree.MaxSplit)
	}
	if cfg.Search.DefaultK != 25 {
		t.Errorf("default_k = %d, want 25", cfg.Search.DefaultK)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ENTROPIC_PORT", "not-a-port")

	cfg := LoadFromEnv()
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("malformed port must keep the default, got %d", cfg.Server.Port)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 7777
  request_timeout: 5s
tree:
  max_split: 0.9
search:
  default_k: 5
cache:
  enabled: true
  capacity: 64
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 7777 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout.Std() != 5*time.Second {
		t.Errorf("request_timeout = %v, want 5s", cfg.Server.RequestTimeout.Std())
	}
	if cfg.Tree.MaxSplit != 0.9 {
		t.Errorf("max_split = %v, want 0.9", cfg.Tree.MaxSplit)
	}
	if cfg.Cache.Capacity != 64 {
		t.Errorf("cache capacity = %d, want 64", cfg.Cache.Capacity)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config must validate: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/does/not/exist.yaml"); err == nil {
		t.Error("missing file must fail")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad min split", func(c *Config) { c.Tree.MinSplit = 1.0 }},
		{"bad max split", func(c *Config) { c.Tree.MaxSplit = 0 }},
		{"bad k", func(c *Config) { c.Search.DefaultK = 0 }},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }},
		{"bad rate", func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.RequestsPerSec = 0 }},
		{"bad cache capacity", func(c *Config) { c.Cache.Capacity = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}
