package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkvault/internal/domain"
)

// Cache is a mock implementation of cache.LinkCache
type Cache struct {
	mock.Mock
}

// Get retrieves a cached link by code
func (m *Cache) Get(ctx context.Context, code string) (*domain.Link, bool) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.Link), args.Bool(1)
}

// Set stores a link under code
func (m *Cache) Set(ctx context.Context, code string, link *domain.Link) error {
	args := m.Called(ctx, code, link)
	return args.Error(0)
}

// Delete removes the entries for codes
func (m *Cache) Delete(ctx context.Context, codes ...string) error {
	args := m.Called(ctx, codes)
	return args.Error(0)
}

// Close closes the cache connection (if applicable)
func (m *Cache) Close() error {
	args := m.Called()
	return args.Error(0)
}
