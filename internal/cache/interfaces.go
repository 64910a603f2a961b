package cache

import (
	"context"
	"time"

	"github.com/joshdurbin/linkvault/internal/domain"
)

// LinkCache defines the interface for read-through caching of links by code
type LinkCache interface {
	// Get retrieves a cached link by short code or alias
	Get(ctx context.Context, code string) (*domain.Link, bool)

	// Set stores a link under the code it was resolved by
	Set(ctx context.Context, code string, link *domain.Link) error

	// Delete removes the entries for the given codes
	Delete(ctx context.Context, codes ...string) error

	// Close closes the cache connection (if applicable)
	Close() error
}

// ExpiringCache extends LinkCache with a background janitor that evicts stale entries
type ExpiringCache interface {
	LinkCache

	// StartJanitor starts evicting expired entries at the given interval
	StartJanitor(ctx context.Context, interval time.Duration) error

	// StopJanitor stops the janitor
	StopJanitor() error
}

// Noop is a LinkCache that never holds anything
type Noop struct{}

// Get always misses
func (Noop) Get(ctx context.Context, code string) (*domain.Link, bool) {
	return nil, false
}

// Set discards the link
func (Noop) Set(ctx context.Context, code string, link *domain.Link) error {
	return nil
}

// Delete does nothing
func (Noop) Delete(ctx context.Context, codes ...string) error {
	return nil
}

// Close does nothing
func (Noop) Close() error {
	return nil
}

var _ LinkCache = Noop{}
