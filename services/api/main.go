package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/02loveslollipop/wfs-catalog/internal/logging"
	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/api/config"
	"github.com/02loveslollipop/wfs-catalog/services/api/db"
	httpserver "github.com/02loveslollipop/wfs-catalog/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New(logging.Config{Output: os.Stderr, Service: "api"})
		bootLog.Fatal().Err(err).Msg("config error")
	}

	log := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  os.Stderr,
		Service: "api",
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connection error")
	}
	defer store.Close()

	prober := wfs.NewProber(http.DefaultClient, wfs.ProberOptions{
		Timeout:   cfg.ProbeTimeout,
		MaxBytes:  cfg.MaxResponseBytes,
		UserAgent: cfg.UserAgent,
		Logger:    log,
	})

	srv := httpserver.New(cfg, store, prober, log)
	log.Info().Str("addr", cfg.ListenAddr()).Msg("REST API listening")

	if err := srv.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
