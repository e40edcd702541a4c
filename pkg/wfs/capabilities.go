package wfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/02loveslollipop/wfs-catalog/pkg/xmltree"
)

// DefaultVersions is the GetCapabilities version order; "" sends no version.
var DefaultVersions = []string{"2.0.0", "1.1.0", "1.0.0", ""}

var capabilitiesMarker = regexp.MustCompile(`(?i)<([A-Za-z0-9_.-]+:)?WFS_Capabilities[\s>/]`)

var errNotHTTP = errors.New("scheme must be http or https")

// CheckURLSyntax validates that raw is an absolute http(s) URL with a host.
func CheckURLSyntax(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errNotHTTP
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

// BuildCapabilitiesURL drops any service/request/version parameters from
// base (whatever their case) and adds service=WFS&request=GetCapabilities,
// plus version when non-empty. All other parameters are kept.
func BuildCapabilitiesURL(base, version string) (string, error) {
	u, err := CheckURLSyntax(base)
	if err != nil {
		return "", fmt.Errorf("invalid service url %q: %w", base, err)
	}
	q := stripParams(u.Query(), "service", "request", "version")
	q.Set("service", "WFS")
	q.Set("request", "GetCapabilities")
	if version != "" {
		q.Set("version", version)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func stripParams(q url.Values, names ...string) url.Values {
	for key := range q {
		for _, name := range names {
			if strings.EqualFold(key, name) {
				q.Del(key)
			}
		}
	}
	return q
}

// Attempt records one GetCapabilities request of the fallback loop.
type Attempt struct {
	Version    string        `json:"version"`
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code,omitempty"`
	Reason     FailureReason `json:"reason,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// FetchResult is the outcome of FetchCapabilities. Failures are reported
// through Reason/Error, never as a Go error.
type FetchResult struct {
	Success     bool
	BaseURL     string
	RequestURL  string
	Version     string
	StatusCode  int
	ContentType string
	Body        []byte
	Partial     bool
	Reason      FailureReason
	Error       string
	Attempts    []Attempt
}

// Reachable reports whether any attempt got an HTTP response at all.
func (r FetchResult) Reachable() bool {
	for _, a := range r.Attempts {
		if a.StatusCode > 0 {
			return true
		}
	}
	return false
}

// FetcherOptions configures a Fetcher. Zero values select the defaults.
type FetcherOptions struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Versions  []string
	Logger    zerolog.Logger
}

// Fetcher downloads GetCapabilities documents.
type Fetcher struct {
	transport transport
	timeout   time.Duration
	versions  []string
	log       zerolog.Logger
}

// NewFetcher creates a Fetcher. client may be nil.
func NewFetcher(client HTTPClient, opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if len(opts.Versions) == 0 {
		opts.Versions = DefaultVersions
	}
	return &Fetcher{
		transport: newTransport(client, opts.UserAgent, opts.MaxBytes),
		timeout:   opts.Timeout,
		versions:  opts.Versions,
		log:       opts.Logger,
	}
}

// FetchCapabilities tries each configured version in order and returns the
// first response that is HTTP 200, XML-ish and carries a WFS_Capabilities
// root. An oversized body stops the loop; other failures move on to the
// next version.
func (f *Fetcher) FetchCapabilities(ctx context.Context, base string) FetchResult {
	result := FetchResult{BaseURL: base}
	if _, err := CheckURLSyntax(base); err != nil {
		result.Reason = ReasonInvalidURL
		result.Error = err.Error()
		return result
	}

	for _, version := range f.versions {
		requestURL, err := BuildCapabilitiesURL(base, version)
		if err != nil {
			result.Reason = ReasonInvalidURL
			result.Error = err.Error()
			return result
		}

		started := time.Now()
		resp, reason, err := f.transport.get(ctx, requestURL, f.timeout, "application/xml, text/xml;q=0.9, */*;q=0.5")
		attempt := Attempt{Version: version, URL: requestURL, Duration: time.Since(started)}

		if err == nil {
			attempt.StatusCode = resp.StatusCode
			reason, err = checkCapabilities(resp)
		}
		if err != nil {
			attempt.Reason = reason
			attempt.Error = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			result.Reason = reason
			result.Error = err.Error()
			result.StatusCode = attempt.StatusCode

			f.log.Debug().
				Str("url", requestURL).
				Str("version", versionLabel(version)).
				Str("reason", string(reason)).
				Err(err).
				Msg("capabilities attempt failed")

			if reason == ReasonTooLarge || reason == ReasonCanceled {
				return result
			}
			continue
		}

		result.Attempts = append(result.Attempts, attempt)
		result.Success = true
		result.RequestURL = requestURL
		result.Version = version
		result.StatusCode = resp.StatusCode
		result.ContentType = resp.ContentType
		result.Body = resp.Body
		result.Partial = resp.Partial
		result.Reason = ReasonNone
		result.Error = ""
		return result
	}

	return result
}

func checkCapabilities(resp *response) (FailureReason, error) {
	if resp.StatusCode != 200 {
		return ReasonHTTPStatus, fmt.Errorf("HTTP %s", statusText(resp))
	}
	if !looksLikeXML(resp.ContentType, resp.Body) {
		return ReasonNotXML, fmt.Errorf("unexpected content type %q", resp.ContentType)
	}
	if !capabilitiesMarker.Match(resp.Body) {
		if doc, err := xmltree.Parse(resp.Body); err == nil {
			if exc, ok := ParseException(doc.Root()); ok {
				return ReasonNotCapabilities, fmt.Errorf("service exception: %s", exc.Message())
			}
			return ReasonNotCapabilities, fmt.Errorf("root element %q is not WFS_Capabilities", doc.Root().Name())
		}
		return ReasonNotCapabilities, errors.New("no WFS_Capabilities element in response")
	}
	return ReasonNone, nil
}

func statusText(resp *response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d", resp.StatusCode)
}

// looksLikeXML accepts declared XML or text content types, and otherwise
// falls back to sniffing the first non-blank byte.
func looksLikeXML(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xml") || strings.HasPrefix(ct, "text/") {
		return true
	}
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(body, []byte{0xEF, 0xBB, 0xBF}), " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '<'
}

func versionLabel(v string) string {
	if v == "" {
		return "unspecified"
	}
	return v
}
