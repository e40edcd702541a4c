package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
)

const (
	defaultConcurrency     = 3
	maxConcurrency         = 8
	defaultCacheTTL        = 6 * time.Hour
	defaultCacheMaxEntries = 512
	defaultScanCron        = "@daily"
	defaultMetricsAddr     = ":9102"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds runtime configuration for the harvester.
type Config struct {
	DatabaseURL      string
	Concurrency      int
	FetchTimeout     time.Duration
	ProbeTimeout     time.Duration
	MaxResponseBytes int64
	ProbeMaxFeatures int
	UserAgent        string

	CacheDriver     string
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	PolicyFile string
	RulesFile  string

	ScanCron    string
	MetricsAddr string

	LogLevel  string
	LogFormat string
	DryRun    bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		Concurrency:      defaultConcurrency,
		FetchTimeout:     wfs.DefaultFetchTimeout,
		ProbeTimeout:     wfs.DefaultProbeTimeout,
		MaxResponseBytes: wfs.DefaultMaxBytes,
		ProbeMaxFeatures: 1,
		UserAgent:        wfs.DefaultUserAgent,
		CacheDriver:      CacheMemory,
		CacheTTL:         defaultCacheTTL,
		CacheMaxEntries:  defaultCacheMaxEntries,
		ScanCron:         defaultScanCron,
		MetricsAddr:      defaultMetricsAddr,
		LogLevel:         "info",
		LogFormat:        "json",
	}

	dryRun := env("DRY_RUN")
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	// commands that touch the catalog check for it themselves
	cfg.DatabaseURL = env("DATABASE_URL")

	if v := env("HARVESTER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid HARVESTER_CONCURRENCY: %w", err)
		}
		cfg.Concurrency = n
	}
	cfg.Concurrency = ClampConcurrency(cfg.Concurrency)

	var err error
	if cfg.FetchTimeout, err = duration("FETCH_TIMEOUT", cfg.FetchTimeout); err != nil {
		return cfg, err
	}
	if cfg.ProbeTimeout, err = duration("PROBE_TIMEOUT", cfg.ProbeTimeout); err != nil {
		return cfg, err
	}
	if cfg.CacheTTL, err = duration("CACHE_TTL", cfg.CacheTTL); err != nil {
		return cfg, err
	}

	if v := env("MAX_RESPONSE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid MAX_RESPONSE_BYTES: %s", v)
		}
		cfg.MaxResponseBytes = n
	}

	if v := env("PROBE_MAX_FEATURES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid PROBE_MAX_FEATURES: %s", v)
		}
		cfg.ProbeMaxFeatures = n
	}

	if v := env("CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid CACHE_MAX_ENTRIES: %s", v)
		}
		cfg.CacheMaxEntries = n
	}

	if v := env("CACHE_DRIVER"); v != "" {
		cfg.CacheDriver = strings.ToLower(v)
	}
	switch cfg.CacheDriver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		cfg.RedisAddr = env("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			return cfg, errors.New("REDIS_ADDR is required when CACHE_DRIVER=redis")
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
		if v := env("REDIS_DB"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return cfg, fmt.Errorf("invalid REDIS_DB: %s", v)
			}
			cfg.RedisDB = n
		}
	default:
		return cfg, fmt.Errorf("invalid CACHE_DRIVER: %s", cfg.CacheDriver)
	}

	if v := env("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := env("SCAN_CRON"); v != "" {
		cfg.ScanCron = v
	}
	if v := env("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	cfg.PolicyFile = env("POLICY_FILE")
	cfg.RulesFile = env("RULES_FILE")

	return cfg, nil
}

// ClampConcurrency keeps the scan width between 1 and 8.
func ClampConcurrency(n int) int {
	switch {
	case n < 1:
		return 1
	case n > maxConcurrency:
		return maxConcurrency
	default:
		return n
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
