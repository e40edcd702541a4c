package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/02loveslollipop/wfs-catalog/internal/metrics"
	"github.com/02loveslollipop/wfs-catalog/pkg/capabilities"
	"github.com/02loveslollipop/wfs-catalog/pkg/classify"
	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/cache"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/config"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/db"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/scan"
)

var errDatabaseRequired = errors.New("DATABASE_URL is required for this command")

// runtime bundles the dependencies of a command invocation.
type runtime struct {
	pool     *pgxpool.Pool
	catalog  *db.Catalog
	cache    *cache.Capabilities
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	scanner  *scan.Scanner
}

type runtimeOptions struct {
	needDB      bool
	writes      bool
	noCache     bool
	concurrency int
	reenrich    bool
}

func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	rt := &runtime{registry: prometheus.NewRegistry()}
	rt.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rt.metrics = metrics.New(rt.registry)

	if opts.needDB || (opts.writes && !cfg.DryRun) {
		if cfg.DatabaseURL == "" {
			return nil, errDatabaseRequired
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		rt.pool = pool
		rt.catalog = db.New(pool)
	}

	if !opts.noCache {
		client, err := newCacheClient(ctx)
		if err != nil {
			rt.close()
			return nil, err
		}
		rt.cache = cache.NewCapabilities(client, cfg.CacheTTL)
	}

	rules, err := loadRules(cfg.RulesFile)
	if err != nil {
		rt.close()
		return nil, err
	}
	policy, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		rt.close()
		return nil, err
	}

	concurrency := cfg.Concurrency
	if opts.concurrency > 0 {
		concurrency = config.ClampConcurrency(opts.concurrency)
	}

	client := &http.Client{Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}}

	scanOpts := scan.Options{
		Fetcher: wfs.NewFetcher(client, wfs.FetcherOptions{
			Timeout:   cfg.FetchTimeout,
			MaxBytes:  cfg.MaxResponseBytes,
			UserAgent: cfg.UserAgent,
			Logger:    logger,
		}),
		Parser:     capabilities.NewParser(rules),
		Classifier: classify.NewClassifier(policy),
		Prober: wfs.NewProber(client, wfs.ProberOptions{
			Timeout:     cfg.ProbeTimeout,
			MaxBytes:    cfg.MaxResponseBytes,
			MaxFeatures: cfg.ProbeMaxFeatures,
			UserAgent:   cfg.UserAgent,
			Logger:      logger,
		}),
		Cache:       rt.cache,
		Metrics:     rt.metrics,
		Logger:      logger,
		Concurrency: concurrency,
		Reenrich:    opts.reenrich,
	}
	if rt.catalog != nil && !cfg.DryRun {
		scanOpts.Catalog = rt.catalog
	}
	rt.scanner = scan.NewScanner(scanOpts)
	return rt, nil
}

func (rt *runtime) close() {
	if rt.cache != nil {
		_ = rt.cache.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}

func newCacheClient(ctx context.Context) (cache.Client, error) {
	switch cfg.CacheDriver {
	case config.CacheRedis:
		return cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.CacheMemory:
		return cache.NewMemoryClient(cfg.CacheMaxEntries, cfg.CacheTTL), nil
	default:
		return nil, nil
	}
}

func loadRules(path string) (capabilities.Rules, error) {
	if path == "" {
		return capabilities.DefaultRules(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return capabilities.Rules{}, fmt.Errorf("open rules file: %w", err)
	}
	defer f.Close()
	return capabilities.LoadRules(f)
}

func loadPolicy(path string) (classify.Policy, error) {
	if path == "" {
		return classify.DefaultPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return classify.Policy{}, fmt.Errorf("open policy file: %w", err)
	}
	defer f.Close()
	return classify.LoadPolicy(f)
}
