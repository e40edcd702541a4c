package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	scheduleCron  string
	scheduleProbe bool
	scheduleNow   bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Rescan all active streams on a cron schedule",
	Long: `Schedule keeps running, rescans every active catalog stream on SCAN_CRON
(or --cron) and serves Prometheus metrics on METRICS_ADDR. A run that is
still in progress when the next one is due is skipped.`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", "cron expression, overrides SCAN_CRON")
	scheduleCmd.Flags().BoolVar(&scheduleProbe, "probe", false, "probe unchecked layers after each scan")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately on start")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := newRuntime(ctx, runtimeOptions{needDB: true})
	if err != nil {
		return err
	}
	defer rt.close()

	expr := cfg.ScanCron
	if scheduleCron != "" {
		expr = scheduleCron
	}

	var mu sync.Mutex
	job := func() {
		if !mu.TryLock() {
			logger.Warn().Msg("previous scheduled run still in progress, skipping")
			return
		}
		defer mu.Unlock()
		runScheduled(ctx, rt)
	}

	c := cron.New()
	if _, err := c.AddFunc(expr, job); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	c.Start()
	logger.Info().Str("cron", expr).Str("metrics_addr", cfg.MetricsAddr).Msg("scheduler started")
	if scheduleNow {
		go job()
	}

	select {
	case err := <-errCh:
		<-c.Stop().Done()
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("scheduler stopping")
	stopped := c.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	<-stopped.Done()
	return srv.Shutdown(shutdownCtx)
}

func runScheduled(ctx context.Context, rt *runtime) {
	urls, err := rt.catalog.ActiveStreamURLs(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("load active streams")
		return
	}
	if len(urls) == 0 {
		logger.Info().Msg("no active streams to scan")
		return
	}
	rt.scanner.ScanAll(ctx, urls)

	if !scheduleProbe {
		return
	}
	targets, err := rt.catalog.ProbeTargets(ctx, true, 0)
	if err != nil {
		logger.Error().Err(err).Msg("load probe targets")
		return
	}
	if len(targets) > 0 {
		rt.scanner.ProbeLayers(ctx, targets)
	}
}
