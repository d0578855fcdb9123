package config

import (
	"os"
	"testing"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
)

func clearEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"GEOINDEX_HOST", "GEOINDEX_PORT", "GEOINDEX_REQUEST_TIMEOUT",
		"GEOINDEX_LEAF_CAPACITY", "GEOINDEX_MAX_FANOUT", "GEOINDEX_MIN_FANOUT",
		"GEOINDEX_KMEANS_MAX_ITERS", "GEOINDEX_ENCLOSURE_KIND", "GEOINDEX_RNG_SEED",
		"GEOINDEX_CACHE_ENABLED", "GEOINDEX_CACHE_CAPACITY", "GEOINDEX_CACHE_TTL",
		"GEOINDEX_AUTH_ENABLED", "GEOINDEX_JWT_SECRET",
		"GEOINDEX_RATE_LIMIT_ENABLED", "GEOINDEX_RATE_LIMIT_RPS", "GEOINDEX_RATE_LIMIT_BURST",
		"GEOINDEX_LOG_LEVEL",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
	t.Cleanup(func() {
		for _, v := range vars {
			os.Unsetenv(v)
		}
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Build.LeafCapacity != 8 {
		t.Errorf("expected default leaf capacity 8, got %d", cfg.Build.LeafCapacity)
	}
	if cfg.Build.EnclosureKind != enclosure.Rect {
		t.Errorf("expected default enclosure kind Rect, got %v", cfg.Build.EnclosureKind)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)

	os.Setenv("GEOINDEX_HOST", "127.0.0.1")
	os.Setenv("GEOINDEX_PORT", "9090")
	os.Setenv("GEOINDEX_LEAF_CAPACITY", "16")
	os.Setenv("GEOINDEX_MAX_FANOUT", "32")
	os.Setenv("GEOINDEX_MIN_FANOUT", "4")
	os.Setenv("GEOINDEX_ENCLOSURE_KIND", "sphere")
	os.Setenv("GEOINDEX_RNG_SEED", "42")
	os.Setenv("GEOINDEX_CACHE_ENABLED", "false")
	os.Setenv("GEOINDEX_AUTH_ENABLED", "true")
	os.Setenv("GEOINDEX_JWT_SECRET", "super-secret")
	os.Setenv("GEOINDEX_LOG_LEVEL", "debug")

	cfg := LoadFromEnv()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Build.LeafCapacity != 16 {
		t.Errorf("expected leaf capacity 16, got %d", cfg.Build.LeafCapacity)
	}
	if cfg.Build.MaxFanout != 32 {
		t.Errorf("expected max fanout 32, got %d", cfg.Build.MaxFanout)
	}
	if cfg.Build.MinFanout != 4 {
		t.Errorf("expected min fanout 4, got %d", cfg.Build.MinFanout)
	}
	if cfg.Build.EnclosureKind != enclosure.Sphere {
		t.Errorf("expected enclosure kind Sphere, got %v", cfg.Build.EnclosureKind)
	}
	if cfg.Build.RNGSeed != 42 {
		t.Errorf("expected RNG seed 42, got %d", cfg.Build.RNGSeed)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}
	if !cfg.Auth.Enabled || cfg.Auth.JWTSecret != "super-secret" {
		t.Errorf("expected auth enabled with secret, got %+v", cfg.Auth)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoadFromEnv_InvalidValuesIgnored(t *testing.T) {
	clearEnv(t)
	os.Setenv("GEOINDEX_PORT", "not-a-number")

	cfg := LoadFromEnv()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected fallback to default port on invalid input, got %d", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad leaf capacity", func(c *Config) { c.Build.LeafCapacity = 0 }, true},
		{"bad max fanout", func(c *Config) { c.Build.MaxFanout = 1 }, true},
		{"min exceeds max", func(c *Config) { c.Build.MinFanout = 20 }, true},
		{"cache enabled zero capacity", func(c *Config) { c.Cache.Capacity = 0 }, true},
		{"auth enabled no secret", func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	if got := cfg.Server.Address(); got != "0.0.0.0:8080" {
		t.Errorf("expected 0.0.0.0:8080, got %s", got)
	}
}
