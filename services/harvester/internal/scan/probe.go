package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/models"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/utils"
)

// LayerProbe pairs a stored layer with its probe result.
type LayerProbe struct {
	LayerID   int64           `json:"layer_id"`
	StreamURL string          `json:"stream_url"`
	Name      string          `json:"name"`
	Result    wfs.ProbeResult `json:"result"`
}

// ProbeReport summarises a batch of layer probes.
type ProbeReport struct {
	RunID     string               `json:"run_id"`
	Total     int                  `json:"total"`
	Queryable int                  `json:"queryable"`
	ByOutcome map[string]int       `json:"by_outcome"`
	Probes    []LayerProbe         `json:"probes"`
	Updates   []models.ProbeUpdate `json:"-"`
	Error     string               `json:"error,omitempty"`
}

// ProbeLayers sends a GetFeature probe to each target and writes the
// queryability flags back in one batch. Transport failures and exceptions
// are per-layer results.
func (s *Scanner) ProbeLayers(ctx context.Context, targets []models.ProbeTarget) ProbeReport {
	report := ProbeReport{
		RunID:     uuid.NewString(),
		Total:     len(targets),
		ByOutcome: make(map[string]int),
		Probes:    make([]LayerProbe, len(targets)),
	}
	log := s.log.With().Str("run_id", report.RunID).Logger()
	started := time.Now()

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, t := range targets {
		g.Go(func() error {
			res := s.prober.Probe(ctx, utils.ProbeTargetFor(t))
			report.Probes[i] = LayerProbe{LayerID: t.LayerID, StreamURL: t.StreamURL, Name: t.Name, Result: res}
			return nil
		})
	}
	_ = g.Wait()

	report.Updates = make([]models.ProbeUpdate, 0, len(report.Probes))
	for _, p := range report.Probes {
		label := outcomeLabel(p.Result)
		report.ByOutcome[label]++
		s.metrics.Probes.WithLabelValues(label).Inc()
		if p.Result.Queryable {
			report.Queryable++
		}
		// A canceled run says nothing about the layer.
		if p.Result.Reason == wfs.ReasonCanceled {
			continue
		}
		report.Updates = append(report.Updates, utils.BuildProbeUpdate(p.LayerID, p.Result))

		event := log.Debug()
		if !p.Result.Queryable {
			event = log.Info()
		}
		event.Str("url", p.StreamURL).Str("layer", p.Name).Str("outcome", label).Msg(p.Result.Note())
	}

	if s.catalog != nil && len(report.Updates) > 0 {
		if err := s.catalog.UpdateLayerQueryability(ctx, report.Updates); err != nil {
			report.Error = err.Error()
			log.Error().Err(err).Msg("store probe results")
		}
	}

	log.Info().
		Int("layers", report.Total).
		Int("queryable", report.Queryable).
		Dur("duration", time.Since(started)).
		Msg("probe finished")
	return report
}

func outcomeLabel(res wfs.ProbeResult) string {
	if res.Outcome != "" {
		return string(res.Outcome)
	}
	return string(res.Reason)
}
