// Package config holds the ambient configuration for the REST service that
// fronts the geospatial index: build parameters, server, cache, auth and
// rate-limit settings.
//
// Adapted from the teacher's Default()/LoadFromEnv()/Validate() pattern,
// same env-var-prefix convention renamed from VECTOR_* to GEOINDEX_*.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/geospatial-oss/geoindex/pkg/geoindex/enclosure"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Build     BuildConfig
	Cache     CacheConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// LogConfig controls the service logger.
type LogConfig struct {
	Level string // debug, info, warn, error, fatal
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// BuildConfig mirrors bvh.BuildParams so it can be parsed from the
// environment or a request body without importing the bvh package from a
// config-only consumer.
type BuildConfig struct {
	LeafCapacity   int
	MaxFanout      int
	MinFanout      int
	KMeansMaxIters int
	EnclosureKind  enclosure.Kind
	RNGSeed        uint64
}

// CacheConfig holds query result cache configuration.
type CacheConfig struct {
	Enabled  bool
	Capacity int
	TTL      time.Duration
}

// AuthConfig holds JWT authentication configuration for the REST layer.
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// RateLimitConfig holds per-client rate limiting configuration.
type RateLimitConfig struct {
	Enabled        bool
	RequestsPerSec float64
	Burst          int
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Build: BuildConfig{
			LeafCapacity:   8,
			MaxFanout:      16,
			MinFanout:      2,
			KMeansMaxIters: 8,
			EnclosureKind:  enclosure.Rect,
			RNGSeed:        0,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 1000,
			TTL:      5 * time.Minute,
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerSec: 50,
			Burst:          100,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables, overriding
// Default()'s values where a GEOINDEX_* variable is set.
func LoadFromEnv() *Config {
	cfg := Default()

	if host := os.Getenv("GEOINDEX_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("GEOINDEX_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if timeout := os.Getenv("GEOINDEX_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}

	if leaf := os.Getenv("GEOINDEX_LEAF_CAPACITY"); leaf != "" {
		if v, err := strconv.Atoi(leaf); err == nil {
			cfg.Build.LeafCapacity = v
		}
	}
	if fanout := os.Getenv("GEOINDEX_MAX_FANOUT"); fanout != "" {
		if v, err := strconv.Atoi(fanout); err == nil {
			cfg.Build.MaxFanout = v
		}
	}
	if fanout := os.Getenv("GEOINDEX_MIN_FANOUT"); fanout != "" {
		if v, err := strconv.Atoi(fanout); err == nil {
			cfg.Build.MinFanout = v
		}
	}
	if iters := os.Getenv("GEOINDEX_KMEANS_MAX_ITERS"); iters != "" {
		if v, err := strconv.Atoi(iters); err == nil {
			cfg.Build.KMeansMaxIters = v
		}
	}
	if kind := os.Getenv("GEOINDEX_ENCLOSURE_KIND"); kind == "sphere" {
		cfg.Build.EnclosureKind = enclosure.Sphere
	}
	if seed := os.Getenv("GEOINDEX_RNG_SEED"); seed != "" {
		if v, err := strconv.ParseUint(seed, 10, 64); err == nil {
			cfg.Build.RNGSeed = v
		}
	}

	if enabled := os.Getenv("GEOINDEX_CACHE_ENABLED"); enabled == "false" {
		cfg.Cache.Enabled = false
	}
	if capacity := os.Getenv("GEOINDEX_CACHE_CAPACITY"); capacity != "" {
		if v, err := strconv.Atoi(capacity); err == nil {
			cfg.Cache.Capacity = v
		}
	}
	if ttl := os.Getenv("GEOINDEX_CACHE_TTL"); ttl != "" {
		if v, err := time.ParseDuration(ttl); err == nil {
			cfg.Cache.TTL = v
		}
	}

	if enabled := os.Getenv("GEOINDEX_AUTH_ENABLED"); enabled == "true" {
		cfg.Auth.Enabled = true
		cfg.Auth.JWTSecret = os.Getenv("GEOINDEX_JWT_SECRET")
	}

	if enabled := os.Getenv("GEOINDEX_RATE_LIMIT_ENABLED"); enabled == "false" {
		cfg.RateLimit.Enabled = false
	}
	if rps := os.Getenv("GEOINDEX_RATE_LIMIT_RPS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSec = v
		}
	}
	if burst := os.Getenv("GEOINDEX_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = v
		}
	}

	if level := os.Getenv("GEOINDEX_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg
}

// Validate checks whether the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Build.LeafCapacity < 1 {
		return fmt.Errorf("invalid leaf capacity: %d (must be >= 1)", c.Build.LeafCapacity)
	}
	if c.Build.MaxFanout < 2 {
		return fmt.Errorf("invalid max fanout: %d (must be >= 2)", c.Build.MaxFanout)
	}
	if c.Build.MinFanout < 1 || c.Build.MinFanout > c.Build.MaxFanout {
		return fmt.Errorf("invalid min fanout: %d (must be in [1, max_fanout])", c.Build.MinFanout)
	}

	if c.Cache.Enabled && c.Cache.Capacity < 1 {
		return fmt.Errorf("invalid cache capacity: %d (must be > 0)", c.Cache.Capacity)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth enabled but JWT secret not specified")
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
