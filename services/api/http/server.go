package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/api/config"
	"github.com/02loveslollipop/wfs-catalog/services/api/db"
)

// CatalogStore is the catalog access the handlers need.
type CatalogStore interface {
	ListStreams(ctx context.Context, q db.StreamQuery) (*db.StreamPage, error)
	GetStream(ctx context.Context, id int64) (*db.Stream, error)
	ListLayers(ctx context.Context, q db.LayerQuery) (*db.LayerPage, error)
	GetLayer(ctx context.Context, id int64) (*db.Layer, error)
	LayerProbeTarget(ctx context.Context, id int64) (*db.ProbeTarget, error)
	UpdateLayerQueryability(ctx context.Context, id int64, queryable bool, note string, checkedAt time.Time) error
	CatalogStats(ctx context.Context) (*db.CatalogStats, error)
}

// Prober checks a layer with a live GetFeature request.
type Prober interface {
	Probe(ctx context.Context, target wfs.ProbeTarget) wfs.ProbeResult
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	cfg    config.Config
	store  CatalogStore
	prober Prober
	log    zerolog.Logger
	engine *gin.Engine
}

// New constructs a server with routes and middleware.
func New(cfg config.Config, store CatalogStore, prober Prober, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(corsMiddleware())

	if cfg.BearerToken != "" {
		engine.Use(bearerAuthMiddleware(cfg.BearerToken))
	}

	server := &Server{cfg: cfg, store: store, prober: prober, log: log, engine: engine}
	server.registerRoutes()
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func apiVersionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-API-Version", "v1")
		c.Next()
	}
}
