package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.registerV1Routes()
}

// registerV1Routes sets up /api/v1: streams, layers and catalog stats.
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())

	streams := v1.Group("/streams")
	{
		streams.GET("", s.handleV1ListStreams)
		streams.GET("/:id", s.handleV1GetStream)
		streams.GET("/:id/layers", s.handleV1StreamLayers)
	}

	layers := v1.Group("/layers")
	{
		layers.GET("", s.handleV1ListLayers)
		layers.GET("/:id", s.handleV1GetLayer)
		layers.POST("/:id/probe", s.handleV1ProbeLayer)
	}

	v1.GET("/stats", s.handleV1Stats)
}
