// Package wfs talks to OGC Web Feature Services: it downloads
// GetCapabilities documents with protocol-version fallback, derives endpoint
// validation flags, and negotiates GetFeature probes.
package wfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// FailureReason classifies why a request did not produce a usable document.
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonInvalidURL      FailureReason = "invalid_url"
	ReasonNetwork         FailureReason = "network_error"
	ReasonTimeout         FailureReason = "timeout"
	ReasonTooLarge        FailureReason = "too_large"
	ReasonHTTPStatus      FailureReason = "http_status"
	ReasonNotXML          FailureReason = "not_xml"
	ReasonNotCapabilities FailureReason = "not_capabilities"
	ReasonParse           FailureReason = "parse_error"
	ReasonCanceled        FailureReason = "canceled"
)

const (
	DefaultMaxBytes     int64 = 15 << 20
	DefaultFetchTimeout       = 15 * time.Second
	DefaultProbeTimeout       = 10 * time.Second
	DefaultUserAgent          = "wfs-catalog-harvester/1.0"
)

var errTooLarge = errors.New("response exceeds size limit")

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// response is a fully read, decompressed HTTP response.
type response struct {
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
	// Partial is set when the body stream broke off but some bytes arrived.
	Partial bool
}

// transport is the one download primitive shared by the capabilities
// fetcher, the endpoint validator and the GetFeature prober.
type transport struct {
	client    HTTPClient
	userAgent string
	maxBytes  int64
}

func newTransport(client HTTPClient, userAgent string, maxBytes int64) transport {
	if client == nil {
		client = &http.Client{}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return transport{client: client, userAgent: userAgent, maxBytes: maxBytes}
}

// get performs a single GET bounded by timeout. Any non-nil error comes with
// a reason; HTTP status codes are not errors at this level.
func (t transport) get(ctx context.Context, rawURL string, timeout time.Duration, accept string) (*response, FailureReason, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, ReasonInvalidURL, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, transportReason(ctx, err), fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > t.maxBytes {
		return nil, ReasonTooLarge, fmt.Errorf("%w: content-length %d > %d bytes", errTooLarge, resp.ContentLength, t.maxBytes)
	}

	body, err := decodeContent(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, ReasonNetwork, fmt.Errorf("decode %s body: %w", resp.Header.Get("Content-Encoding"), err)
	}
	if c, ok := body.(io.Closer); ok {
		defer c.Close()
	}

	out := &response{
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: resp.Header.Get("Content-Type"),
	}

	data, err := readLimited(body, t.maxBytes)
	switch {
	case errors.Is(err, errTooLarge):
		return nil, ReasonTooLarge, fmt.Errorf("%w: more than %d bytes", errTooLarge, t.maxBytes)
	case err != nil && len(data) > 0 && errors.Is(err, io.ErrUnexpectedEOF):
		out.Partial = true
	case err != nil:
		return nil, transportReason(ctx, err), fmt.Errorf("read body: %w", err)
	}
	out.Body = data
	return out, ReasonNone, nil
}

func transportReason(parent context.Context, err error) FailureReason {
	if parent.Err() != nil {
		return ReasonCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetwork
}

// decodeContent unwraps gzip/deflate bodies. Some servers gzip without
// announcing it, so an unlabelled body is sniffed for the gzip magic.
func decodeContent(r io.Reader, encoding string) (io.Reader, error) {
	br := bufio.NewReader(r)
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		return gzip.NewReader(br)
	case "deflate":
		hdr, _ := br.Peek(2)
		if len(hdr) == 2 && isZlibHeader(hdr[0], hdr[1]) {
			return zlib.NewReader(br)
		}
		return flate.NewReader(br), nil
	case "", "identity":
		if hdr, _ := br.Peek(2); len(hdr) == 2 && hdr[0] == 0x1f && hdr[1] == 0x8b {
			return gzip.NewReader(br)
		}
		return br, nil
	default:
		return br, nil
	}
}

func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// readLimited stops reading one byte past limit.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if int64(len(data)) > limit {
		return data[:limit], errTooLarge
	}
	return data, err
}
