// Package scan runs capabilities scans and layer probes over many streams
// with a fixed concurrency width. One stream's failure never affects another.
package scan

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/02loveslollipop/wfs-catalog/internal/metrics"
	"github.com/02loveslollipop/wfs-catalog/pkg/capabilities"
	"github.com/02loveslollipop/wfs-catalog/pkg/classify"
	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/cache"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/models"
	"github.com/02loveslollipop/wfs-catalog/services/harvester/internal/utils"
)

// ReasonPersist marks a stream that was parsed but could not be stored.
const ReasonPersist wfs.FailureReason = "persist_error"

// Catalog is the write side of the catalog the scanner needs.
type Catalog interface {
	SaveScan(ctx context.Context, stream models.StreamRow, layers []models.LayerRow, reenrich bool) (models.SaveStats, error)
	RecordValidation(ctx context.Context, row models.ValidationRow) error
	UpdateLayerQueryability(ctx context.Context, updates []models.ProbeUpdate) error
}

// Options configures a Scanner. Catalog may be nil for dry runs.
type Options struct {
	Fetcher     *wfs.Fetcher
	Parser      *capabilities.Parser
	Classifier  *classify.Classifier
	Prober      *wfs.Prober
	Catalog     Catalog
	Cache       *cache.Capabilities
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	Concurrency int
	Reenrich    bool
}

// Scanner harvests capabilities documents into the catalog.
type Scanner struct {
	fetcher     *wfs.Fetcher
	parser      *capabilities.Parser
	classifier  *classify.Classifier
	prober      *wfs.Prober
	catalog     Catalog
	cache       *cache.Capabilities
	metrics     *metrics.Metrics
	log         zerolog.Logger
	concurrency int
	reenrich    bool
	now         func() time.Time
}

// NewScanner creates a Scanner. Missing engine components get defaults.
func NewScanner(opts Options) *Scanner {
	if opts.Fetcher == nil {
		opts.Fetcher = wfs.NewFetcher(nil, wfs.FetcherOptions{Logger: opts.Logger})
	}
	if opts.Parser == nil {
		opts.Parser = capabilities.NewParser(capabilities.DefaultRules())
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.NewClassifier(classify.DefaultPolicy())
	}
	if opts.Prober == nil {
		opts.Prober = wfs.NewProber(nil, wfs.ProberOptions{Logger: opts.Logger})
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Scanner{
		fetcher:     opts.Fetcher,
		parser:      opts.Parser,
		classifier:  opts.Classifier,
		prober:      opts.Prober,
		catalog:     opts.Catalog,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		log:         opts.Logger,
		concurrency: opts.Concurrency,
		reenrich:    opts.Reenrich,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// StreamOutcome is the result of scanning one endpoint.
type StreamOutcome struct {
	URL         string            `json:"url"`
	Success     bool              `json:"success"`
	Reason      wfs.FailureReason `json:"reason,omitempty"`
	Error       string            `json:"error,omitempty"`
	Version     string            `json:"version,omitempty"`
	Title       string            `json:"title,omitempty"`
	Layers      int               `json:"layers"`
	LayersAdded int               `json:"layers_added"`
	Region      classify.Region   `json:"region"`
	Validation  wfs.Validation    `json:"validation"`
	Truncated   bool              `json:"truncated,omitempty"`
	FromCache   bool              `json:"from_cache,omitempty"`
	Duration    time.Duration     `json:"duration"`
}

// Report summarises a batch of stream scans.
type Report struct {
	RunID            string                    `json:"run_id"`
	StartedAt        time.Time                 `json:"started_at"`
	FinishedAt       time.Time                 `json:"finished_at"`
	Total            int                       `json:"total"`
	Succeeded        int                       `json:"succeeded"`
	Failed           int                       `json:"failed"`
	Layers           int                       `json:"layers"`
	FailuresByReason map[wfs.FailureReason]int `json:"failures_by_reason"`
	Outcomes         []StreamOutcome           `json:"outcomes"`
}

// SuccessRate is the share of streams scanned successfully, 0 for an empty run.
func (r Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Total)
}

// Failures lists the failed outcomes in input order.
func (r Report) Failures() []StreamOutcome {
	return lo.Filter(r.Outcomes, func(o StreamOutcome, _ int) bool { return !o.Success })
}

// ScanAll scans urls with at most the configured number of scans in flight.
// Duplicate URLs are scanned once. Outcomes keep the input order.
func (s *Scanner) ScanAll(ctx context.Context, urls []string) Report {
	urls = lo.Uniq(urls)
	report := Report{
		RunID:            uuid.NewString(),
		StartedAt:        time.Now().UTC(),
		Total:            len(urls),
		FailuresByReason: make(map[wfs.FailureReason]int),
		Outcomes:         make([]StreamOutcome, len(urls)),
	}
	log := s.log.With().Str("run_id", report.RunID).Logger()
	log.Info().Int("streams", len(urls)).Int("concurrency", s.concurrency).Msg("scan started")

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			report.Outcomes[i] = s.ScanOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range report.Outcomes {
		if o.Success {
			report.Succeeded++
			report.Layers += o.Layers
			continue
		}
		report.Failed++
		report.FailuresByReason[o.Reason]++
	}
	report.FinishedAt = time.Now().UTC()

	log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("layers", report.Layers).
		Float64("success_rate", report.SuccessRate()).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("scan finished")
	return report
}

// ScanOne fetches, parses, classifies and stores a single stream. On failure
// only the validation flags of an existing stream are updated.
func (s *Scanner) ScanOne(ctx context.Context, url string) StreamOutcome {
	started := time.Now()
	checkedAt := s.now()
	outcome := StreamOutcome{URL: url}
	defer func() {
		outcome.Duration = time.Since(started)
		s.observe(outcome)
	}()

	res, fromCache := s.cache.Get(ctx, url)
	if fromCache {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		if s.cache.Enabled() {
			s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
		res = s.fetcher.FetchCapabilities(ctx, url)
	}
	outcome.FromCache = fromCache
	outcome.Validation = wfs.ValidationFrom(res)

	if !res.Success {
		outcome.Reason = res.Reason
		outcome.Error = res.Error
		s.recordValidation(ctx, url, outcome.Validation, checkedAt)
		return outcome
	}
	outcome.Version = res.Version

	parsed := s.parser.Parse(res.Body)
	if !parsed.Success {
		outcome.Reason = wfs.ReasonParse
		outcome.Error = parsed.Error
		outcome.Validation.XMLResponseValid = false
		outcome.Validation.Notes = parsed.Error
		s.recordValidation(ctx, url, outcome.Validation, checkedAt)
		return outcome
	}
	if parsed.Truncated {
		outcome.Truncated = true
		outcome.Validation.Notes += " (document truncated)"
	}

	svc := *parsed.Service
	outcome.Title = svc.Title
	outcome.Layers = parsed.LayerCount
	outcome.Region = s.classifier.Region(classify.RegionInput{
		Title:    svc.Title,
		Abstract: svc.Abstract,
		Provider: lo.FromPtr(svc.ProviderName),
		URL:      url,
		BBox:     svc.BBox,
	})

	stream := utils.BuildStreamRow(url, svc, parsed.LayerCount, outcome.Region, outcome.Validation, checkedAt)
	layers := utils.BuildLayerRows(parsed.Layers, s.classifier)

	if s.catalog != nil {
		stats, err := s.catalog.SaveScan(ctx, stream, layers, s.reenrich)
		if err != nil {
			outcome.Reason = ReasonPersist
			outcome.Error = err.Error()
			return outcome
		}
		outcome.LayersAdded = stats.LayersAdded
		outcome.Layers = stats.LayerCount
	}

	if !fromCache && !parsed.Truncated {
		if err := s.cache.Put(ctx, res, checkedAt); err != nil {
			s.log.Warn().Err(err).Str("url", url).Msg("cache capabilities")
		}
	}

	outcome.Success = true
	return outcome
}

func (s *Scanner) recordValidation(ctx context.Context, url string, v wfs.Validation, checkedAt time.Time) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.RecordValidation(ctx, utils.BuildValidationRow(url, v, checkedAt)); err != nil {
		s.log.Error().Err(err).Str("url", url).Msg("record validation")
	}
}

func (s *Scanner) observe(o StreamOutcome) {
	s.metrics.ScanDuration.Observe(o.Duration.Seconds())
	if o.Success {
		s.metrics.Scans.WithLabelValues("success", "").Inc()
		s.metrics.LayersExtracted.Add(float64(o.Layers))
		s.log.Info().
			Str("url", o.URL).
			Str("version", o.Version).
			Int("layers", o.Layers).
			Int("layers_added", o.LayersAdded).
			Str("country", o.Region.CountryCode).
			Str("region", o.Region.Region).
			Bool("cached", o.FromCache).
			Dur("duration", o.Duration).
			Msg("stream scanned")
		return
	}
	s.metrics.Scans.WithLabelValues("failure", string(o.Reason)).Inc()
	s.log.Warn().
		Str("url", o.URL).
		Str("reason", string(o.Reason)).
		Str("error", o.Error).
		Dur("duration", o.Duration).
		Msg("stream scan failed")
}
