package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL      string
	Port             int
	BearerToken      string
	DefaultLimit     int
	ProbeTimeout     time.Duration
	MaxResponseBytes int64
	UserAgent        string
	LogLevel         string
	LogFormat        string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:             8080,
		DefaultLimit:     100,
		ProbeTimeout:     wfs.DefaultProbeTimeout,
		MaxResponseBytes: wfs.DefaultMaxBytes,
		UserAgent:        wfs.DefaultUserAgent,
		LogLevel:         "info",
		LogFormat:        "json",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	if timeoutStr := os.Getenv("PROBE_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cfg.ProbeTimeout = d
		} else {
			return cfg, fmt.Errorf("invalid PROBE_TIMEOUT: %s", timeoutStr)
		}
	}

	if maxStr := os.Getenv("MAX_RESPONSE_BYTES"); maxStr != "" {
		if n, err := strconv.ParseInt(maxStr, 10, 64); err == nil && n > 0 {
			cfg.MaxResponseBytes = n
		} else {
			return cfg, fmt.Errorf("invalid MAX_RESPONSE_BYTES: %s", maxStr)
		}
	}

	if ua := os.Getenv("USER_AGENT"); ua != "" {
		cfg.UserAgent = ua
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
