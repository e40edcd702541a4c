package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/wfs-catalog/services/api/db"
)

// handleV1ListStreams returns a page of streams
// GET /api/v1/streams?land=DE&region=Brandenburg&inspire=true&reachable=true&q=alkis&all=false&page=1&limit=100
func (s *Server) handleV1ListStreams(c *gin.Context) {
	p := s.parsePagination(c)

	inspire, ok := optionalBool(c, "inspire")
	if !ok {
		return
	}
	reachable, ok := optionalBool(c, "reachable")
	if !ok {
		return
	}
	all, ok := optionalBool(c, "all")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := s.store.ListStreams(ctx, db.StreamQuery{
		CountryCode: strings.TrimSpace(c.Query("land")),
		Region:      strings.TrimSpace(c.Query("region")),
		Inspire:     inspire,
		Reachable:   reachable,
		Search:      strings.TrimSpace(c.Query("q")),
		All:         all != nil && *all,
		Limit:       p.limit,
		Offset:      p.offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       result.Streams,
		"pagination": p.meta(result.TotalCount),
	})
}

// handleV1GetStream returns one stream
// GET /api/v1/streams/:id
func (s *Server) handleV1GetStream(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	stream, err := s.store.GetStream(ctx, id)
	if err != nil {
		writeStoreError(c, err, "stream")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stream})
}

// handleV1StreamLayers returns the layers of a stream
// GET /api/v1/streams/:id/layers?page=1&limit=100
func (s *Server) handleV1StreamLayers(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	p := s.parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if _, err := s.store.GetStream(ctx, id); err != nil {
		writeStoreError(c, err, "stream")
		return
	}

	result, err := s.store.ListLayers(ctx, db.LayerQuery{StreamID: id, Limit: p.limit, Offset: p.offset})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       result.Layers,
		"pagination": p.meta(result.TotalCount),
	})
}

// handleV1Stats returns catalog quality counts
// GET /api/v1/stats
func (s *Server) handleV1Stats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	stats, err := s.store.CatalogStats(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
