package memory

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/joshdurbin/linkvault/internal/cache"
	"github.com/joshdurbin/linkvault/internal/domain"
)

type entry struct {
	link      *domain.Link
	expiresAt time.Time
}

// Cache implements cache.ExpiringCache using in-memory storage
type Cache struct {
	data     map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	mutex    sync.RWMutex
	stopChan chan struct{}
	running  bool
}

// New creates a new in-memory cache whose entries live for ttl.
// A zero ttl keeps entries until they are deleted.
func New(ttl time.Duration) *Cache {
	return &Cache{
		data:     make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Get retrieves a cached link by code
func (c *Cache) Get(ctx context.Context, code string) (*domain.Link, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, exists := c.data[code]
	if !exists || c.expired(e) {
		return nil, false
	}

	// Return a copy to prevent external modification
	return e.link.Clone(), true
}

// Set stores a link under code
func (c *Cache) Set(ctx context.Context, code string, link *domain.Link) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	e := &entry{link: link.Clone()}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.data[code] = e

	return nil
}

// Delete removes the entries for codes
func (c *Cache) Delete(ctx context.Context, codes ...string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, code := range codes {
		delete(c.data, code)
	}
	return nil
}

// Len returns the number of stored entries, expired or not
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// StartJanitor starts evicting expired entries at the given interval
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration) error {
	c.mutex.Lock()
	if c.running {
		c.mutex.Unlock()
		return nil // Already running
	}
	c.running = true
	stopChan := c.stopChan
	c.mutex.Unlock()

	go c.janitor(ctx, interval, stopChan)
	return nil
}

// StopJanitor stops the janitor
func (c *Cache) StopJanitor() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.running {
		return nil
	}

	c.running = false
	close(c.stopChan)

	// Create new channel for potential restart
	c.stopChan = make(chan struct{})
	return nil
}

// janitor runs the eviction loop
func (c *Cache) janitor(ctx context.Context, interval time.Duration, stopChan chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := c.evictExpired(); evicted > 0 {
				log.Printf("[DEBUG] Evicted %d expired cache entries", evicted)
			}
		case <-stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// evictExpired drops every expired entry and returns how many were dropped
func (c *Cache) evictExpired() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	evicted := 0
	for code, e := range c.data {
		if c.expired(e) {
			delete(c.data, code)
			evicted++
		}
	}
	return evicted
}

func (c *Cache) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt)
}

// Close closes the cache (stops the janitor)
func (c *Cache) Close() error {
	return c.StopJanitor()
}

// Ensure Cache implements the interfaces
var _ cache.LinkCache = (*Cache)(nil)
var _ cache.ExpiringCache = (*Cache)(nil)
