package wfs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// fallbackVersions are tried after a layer's declared version.
var fallbackVersions = []string{"2.0.0", "1.1.0", "1.0.0"}

// ProbeTarget identifies a layer to test with a live GetFeature request.
type ProbeTarget struct {
	ServiceURL    string
	TypeName      string
	Version       string
	OutputFormats []string
	Inspire       bool
}

// ProbeAttempt records a single GetFeature request.
type ProbeAttempt struct {
	Version      string        `json:"version"`
	OutputFormat string        `json:"output_format"`
	URL          string        `json:"url"`
	StatusCode   int           `json:"status_code,omitempty"`
	Outcome      Outcome       `json:"outcome,omitempty"`
	Reason       FailureReason `json:"reason,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// ProbeResult is the final verdict on a layer.
type ProbeResult struct {
	Queryable     bool           `json:"queryable"`
	Outcome       Outcome        `json:"outcome,omitempty"`
	Version       string         `json:"version,omitempty"`
	OutputFormat  string         `json:"output_format,omitempty"`
	RequestURL    string         `json:"request_url,omitempty"`
	FeatureCount  int            `json:"feature_count"`
	ExceptionCode string         `json:"exception_code,omitempty"`
	ExceptionText string         `json:"exception_text,omitempty"`
	Reason        FailureReason  `json:"reason,omitempty"`
	Error         string         `json:"error,omitempty"`
	Attempts      []ProbeAttempt `json:"attempts"`
	CheckedAt     time.Time      `json:"checked_at"`
}

// Note summarises the result in one line.
func (r ProbeResult) Note() string {
	switch {
	case r.Outcome == OutcomeFeatures:
		return fmt.Sprintf("%d feature(s) via %s %s", r.FeatureCount, r.Version, r.OutputFormat)
	case r.Outcome == OutcomeEmpty:
		return fmt.Sprintf("empty response via %s %s", r.Version, r.OutputFormat)
	case r.Outcome == OutcomeException:
		return "exception: " + ServiceException{Code: r.ExceptionCode, Texts: []string{r.ExceptionText}}.Message()
	case r.Outcome == OutcomeMalformed:
		return "malformed response: " + r.Error
	default:
		return string(r.Reason) + ": " + r.Error
	}
}

// ProberOptions configures a Prober. Zero values select the defaults.
type ProberOptions struct {
	Timeout     time.Duration
	MaxBytes    int64
	MaxFeatures int
	UserAgent   string
	Logger      zerolog.Logger
}

// Prober issues minimal GetFeature requests to check that layers answer.
type Prober struct {
	transport   transport
	timeout     time.Duration
	maxFeatures int
	log         zerolog.Logger
	now         func() time.Time
}

// NewProber creates a Prober. client may be nil.
func NewProber(client HTTPClient, opts ProberOptions) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = 1
	}
	return &Prober{
		transport:   newTransport(client, opts.UserAgent, opts.MaxBytes),
		timeout:     opts.Timeout,
		maxFeatures: opts.MaxFeatures,
		log:         opts.Logger,
		now:         time.Now,
	}
}

type probePlan struct {
	version string
	format  string
}

// plan lists the version/format pairs to try. INSPIRE layers get exactly one
// attempt. Other layers start with their declared version and then walk the
// fallback list; GML formats are swapped for the version's own default
// whenever the version changes.
func (p *Prober) plan(target ProbeTarget) []probePlan {
	if target.Inspire {
		v, f := SelectFormat(target.Version, target.OutputFormats, true)
		return []probePlan{{version: v, format: f}}
	}

	declared := strings.TrimSpace(target.Version)
	versions := lo.Uniq(lo.Compact(append([]string{declared}, fallbackVersions...)))

	_, preferred := SelectFormat(declared, target.OutputFormats, false)
	if declared == "" {
		preferred = ""
	}

	plans := make([]probePlan, 0, len(versions))
	for _, v := range versions {
		format := preferred
		if format == "" || (v != declared && strings.Contains(strings.ToLower(format), "gml")) {
			format = DefaultFormat(v)
		}
		plans = append(plans, probePlan{version: v, format: format})
	}
	return plans
}

// Probe tests target. It stops at the first attempt that yields features or
// a well-formed empty result. When nothing succeeds, a protocol exception is
// preferred over a malformed body, which is preferred over a transport
// failure, so the most informative evidence is kept.
func (p *Prober) Probe(ctx context.Context, target ProbeTarget) ProbeResult {
	result := ProbeResult{CheckedAt: p.now().UTC()}

	exception, malformed, transportFail := -1, -1, -1
	var exceptionClass Classification

	for _, pl := range p.plan(target) {
		requestURL, err := BuildGetFeatureURL(target.ServiceURL, GetFeatureRequest{
			TypeName:     target.TypeName,
			Version:      pl.version,
			OutputFormat: pl.format,
			Count:        p.maxFeatures,
		})
		if err != nil {
			result.Reason = ReasonInvalidURL
			result.Error = err.Error()
			return result
		}

		attempt := ProbeAttempt{Version: pl.version, OutputFormat: pl.format, URL: requestURL}
		resp, reason, err := p.transport.get(ctx, requestURL, p.timeout, "")
		if err != nil {
			attempt.Reason = reason
			attempt.Error = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			transportFail = len(result.Attempts) - 1
			if reason == ReasonCanceled {
				break
			}
			continue
		}

		attempt.StatusCode = resp.StatusCode
		class := ClassifyResponse(resp.Body, resp.ContentType)
		ok2xx := resp.StatusCode >= 200 && resp.StatusCode < 300
		if !ok2xx && class.Outcome != OutcomeException {
			attempt.Reason = ReasonHTTPStatus
			attempt.Error = "HTTP " + statusText(resp)
			result.Attempts = append(result.Attempts, attempt)
			transportFail = len(result.Attempts) - 1
			continue
		}

		attempt.Outcome = class.Outcome
		if class.Outcome == OutcomeMalformed {
			attempt.Error = class.Detail
		}
		if class.Outcome == OutcomeException {
			attempt.Error = ServiceException{Code: class.ExceptionCode, Texts: []string{class.ExceptionText}}.Message()
		}
		result.Attempts = append(result.Attempts, attempt)
		last := len(result.Attempts) - 1

		p.log.Debug().
			Str("type_name", target.TypeName).
			Str("version", pl.version).
			Str("format", pl.format).
			Str("outcome", string(class.Outcome)).
			Msg("getfeature attempt")

		switch class.Outcome {
		case OutcomeFeatures, OutcomeEmpty:
			result.Queryable = true
			result.Outcome = class.Outcome
			result.Version = pl.version
			result.OutputFormat = pl.format
			result.RequestURL = requestURL
			result.FeatureCount = class.FeatureCount
			return result
		case OutcomeException:
			exception = last
			exceptionClass = class
		case OutcomeMalformed:
			malformed = last
		}
	}

	switch {
	case exception >= 0:
		a := result.Attempts[exception]
		result.Outcome = OutcomeException
		result.Version = a.Version
		result.OutputFormat = a.OutputFormat
		result.RequestURL = a.URL
		result.ExceptionCode = exceptionClass.ExceptionCode
		result.ExceptionText = exceptionClass.ExceptionText
		result.Error = a.Error
	case malformed >= 0:
		a := result.Attempts[malformed]
		result.Outcome = OutcomeMalformed
		result.Version = a.Version
		result.OutputFormat = a.OutputFormat
		result.RequestURL = a.URL
		result.Error = a.Error
	case transportFail >= 0:
		a := result.Attempts[transportFail]
		result.Reason = a.Reason
		result.RequestURL = a.URL
		result.Error = a.Error
	}
	return result
}
