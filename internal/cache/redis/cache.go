// Package redis provides a link cache shared between server instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/joshdurbin/linkvault/internal/cache"
	"github.com/joshdurbin/linkvault/internal/domain"
)

const defaultKeyPrefix = "linkvault:link:"

// cachedLink is the stored form of a link. Unlike the API form it keeps
// the password hash so cached resolutions can still gate on it.
type cachedLink struct {
	ID             int64      `json:"id"`
	OriginalURL    string     `json:"original_url"`
	ShortCode      string     `json:"short_code"`
	CustomAlias    *string    `json:"custom_alias,omitempty"`
	PasswordHash   string     `json:"password_hash,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	IsActive       bool       `json:"is_active"`
	OwnerID        string     `json:"owner_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Cache implements cache.LinkCache on top of Redis
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// New connects to the Redis server at redisURL (redis:// URL or host:port)
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	var opt *goredis.Options
	if strings.Contains(redisURL, "://") {
		parsed, err := goredis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		opt = parsed
	} else {
		opt = &goredis.Options{Addr: redisURL}
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2

	client := goredis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient wraps an existing client
func NewWithClient(client *goredis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		prefix: defaultKeyPrefix,
	}
}

// Get retrieves a cached link by code. Redis failures count as misses.
func (c *Cache) Get(ctx context.Context, code string) (*domain.Link, bool) {
	data, err := c.client.Get(ctx, c.key(code)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Printf("[WARN] Redis get %s failed: %v", code, err)
		return nil, false
	}

	var stored cachedLink
	if err := json.Unmarshal(data, &stored); err != nil {
		log.Printf("[WARN] Dropping undecodable cache entry %s: %v", code, err)
		c.client.Del(ctx, c.key(code))
		return nil, false
	}

	return stored.link(), true
}

// Set stores a link under code
func (c *Cache) Set(ctx context.Context, code string, link *domain.Link) error {
	data, err := json.Marshal(fromLink(link))
	if err != nil {
		return fmt.Errorf("failed to encode link: %w", err)
	}

	if err := c.client.Set(ctx, c.key(code), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Delete removes the entries for codes
func (c *Cache) Delete(ctx context.Context, codes ...string) error {
	if len(codes) == 0 {
		return nil
	}

	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = c.key(code)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entries: %w", err)
	}
	return nil
}

// Close closes the redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) key(code string) string {
	return c.prefix + code
}

func fromLink(l *domain.Link) cachedLink {
	return cachedLink{
		ID:             l.ID,
		OriginalURL:    l.OriginalURL,
		ShortCode:      l.ShortCode,
		CustomAlias:    l.CustomAlias,
		PasswordHash:   l.PasswordHash,
		ExpirationDate: l.ExpirationDate,
		IsActive:       l.IsActive,
		OwnerID:        l.OwnerID,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func (s cachedLink) link() *domain.Link {
	return &domain.Link{
		ID:             s.ID,
		OriginalURL:    s.OriginalURL,
		ShortCode:      s.ShortCode,
		CustomAlias:    s.CustomAlias,
		PasswordHash:   s.PasswordHash,
		ExpirationDate: s.ExpirationDate,
		IsActive:       s.IsActive,
		OwnerID:        s.OwnerID,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// Ensure Cache implements the interface
var _ cache.LinkCache = (*Cache)(nil)
