package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/api/db"
)

// handleV1ListLayers returns a page of layers
// GET /api/v1/layers?feature_typ=Flurstücke&theme=cp&geometry=polygon&queryable=true&q=alkis&page=1&limit=100
func (s *Server) handleV1ListLayers(c *gin.Context) {
	p := s.parsePagination(c)

	queryable, ok := optionalBool(c, "queryable")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	result, err := s.store.ListLayers(ctx, db.LayerQuery{
		FeatureType: strings.TrimSpace(c.Query("feature_typ")),
		Theme:       strings.TrimSpace(c.Query("theme")),
		Geometry:    strings.TrimSpace(c.Query("geometry")),
		Queryable:   queryable,
		Search:      strings.TrimSpace(c.Query("q")),
		Limit:       p.limit,
		Offset:      p.offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       result.Layers,
		"pagination": p.meta(result.TotalCount),
	})
}

// handleV1GetLayer returns one layer
// GET /api/v1/layers/:id
func (s *Server) handleV1GetLayer(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	layer, err := s.store.GetLayer(ctx, id)
	if err != nil {
		writeStoreError(c, err, "layer")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": layer})
}

// handleV1ProbeLayer runs a GetFeature probe against the layer's service and
// stores whether it is queryable. Exceptions and transport failures are
// results, not API errors.
// POST /api/v1/layers/:id/probe
func (s *Server) handleV1ProbeLayer(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	budget := s.cfg.ProbeTimeout
	if budget <= 0 {
		budget = wfs.DefaultProbeTimeout
	}
	// a probe may walk several version/format pairs
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*budget)
	defer cancel()

	target, err := s.store.LayerProbeTarget(ctx, id)
	if err != nil {
		writeStoreError(c, err, "layer")
		return
	}

	result := s.prober.Probe(ctx, wfs.ProbeTarget{
		ServiceURL:    target.StreamURL,
		TypeName:      target.Name,
		Version:       target.Version,
		OutputFormats: target.OutputFormats,
		Inspire:       target.Inspire,
	})
	if result.Reason == wfs.ReasonCanceled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "probe canceled"})
		return
	}

	s.log.Info().
		Int64("layer_id", id).
		Str("layer", target.Name).
		Str("outcome", string(result.Outcome)).
		Str("reason", string(result.Reason)).
		Bool("queryable", result.Queryable).
		Msg("layer probed")

	if err := s.store.UpdateLayerQueryability(ctx, id, result.Queryable, result.Note(), result.CheckedAt); err != nil {
		writeStoreError(c, err, "layer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"layer_id":  id,
			"name":      target.Name,
			"queryable": result.Queryable,
			"note":      result.Note(),
			"result":    result,
		},
	})
}
