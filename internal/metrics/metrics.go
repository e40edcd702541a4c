// Package metrics defines the Prometheus collectors for catalog quality:
// scan outcomes by failure reason, extracted layers and probe outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the harvester collectors.
type Metrics struct {
	Scans           *prometheus.CounterVec
	ScanDuration    prometheus.Histogram
	LayersExtracted prometheus.Counter
	Probes          *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wfs_catalog_scans_total",
			Help: "Stream scans by result and failure reason.",
		}, []string{"result", "reason"}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wfs_catalog_scan_duration_seconds",
			Help:    "Duration of a single stream scan including all version attempts.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		}),
		LayersExtracted: factory.NewCounter(prometheus.CounterOpts{
			Name: "wfs_catalog_layers_extracted_total",
			Help: "Layers extracted from successfully parsed capabilities documents.",
		}),
		Probes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wfs_catalog_probes_total",
			Help: "GetFeature probes by outcome.",
		}, []string{"outcome"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wfs_catalog_cache_lookups_total",
			Help: "Capabilities cache lookups by result.",
		}, []string{"result"}),
	}
}

// Nop returns collectors registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
