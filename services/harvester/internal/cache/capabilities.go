package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"

	"github.com/02loveslollipop/wfs-catalog/pkg/wfs"
)

const capabilitiesPrefix = "caps"

type capabilitiesEntry struct {
	RequestURL  string        `json:"request_url"`
	Version     string        `json:"version"`
	StatusCode  int           `json:"status_code"`
	ContentType string        `json:"content_type"`
	Body        []byte        `json:"body"`
	Attempts    []wfs.Attempt `json:"attempts"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// Capabilities caches successful GetCapabilities fetches by base URL. A nil
// client disables caching.
type Capabilities struct {
	client Client
	ttl    time.Duration
}

// NewCapabilities creates a capabilities cache on top of client.
func NewCapabilities(client Client, ttl time.Duration) *Capabilities {
	return &Capabilities{client: client, ttl: ttl}
}

// Enabled reports whether a backend is configured.
func (c *Capabilities) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached fetch for base. Cache errors count as misses.
func (c *Capabilities) Get(ctx context.Context, base string) (wfs.FetchResult, bool) {
	if !c.Enabled() {
		return wfs.FetchResult{}, false
	}
	data, err := c.client.Get(ctx, Key(capabilitiesPrefix, base))
	if err != nil {
		return wfs.FetchResult{}, false
	}
	var e capabilitiesEntry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Body) == 0 {
		return wfs.FetchResult{}, false
	}
	return wfs.FetchResult{
		Success:     true,
		BaseURL:     base,
		RequestURL:  e.RequestURL,
		Version:     e.Version,
		StatusCode:  e.StatusCode,
		ContentType: e.ContentType,
		Body:        e.Body,
		Attempts:    e.Attempts,
	}, true
}

// Put stores a successful, complete fetch. Other results are ignored.
func (c *Capabilities) Put(ctx context.Context, res wfs.FetchResult, fetchedAt time.Time) error {
	if !c.Enabled() || !res.Success || res.Partial {
		return nil
	}
	data, err := json.Marshal(capabilitiesEntry{
		RequestURL:  res.RequestURL,
		Version:     res.Version,
		StatusCode:  res.StatusCode,
		ContentType: res.ContentType,
		Body:        res.Body,
		Attempts:    res.Attempts,
		FetchedAt:   fetchedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(capabilitiesPrefix, res.BaseURL), data, c.ttl)
}

// Invalidate drops the entry for base.
func (c *Capabilities) Invalidate(ctx context.Context, base string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Delete(ctx, Key(capabilitiesPrefix, base))
}

// InvalidateAll drops every capabilities entry.
func (c *Capabilities) InvalidateAll(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.DeleteByPrefix(ctx, capabilitiesPrefix+":")
}

// Close releases the backend.
func (c *Capabilities) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}
