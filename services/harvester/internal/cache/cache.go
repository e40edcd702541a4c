// Package cache keeps recently fetched capabilities documents so repeated
// scans within the TTL do not hit remote servers again.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Key joins key components with colons.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrCacheMiss) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
