package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkvault/internal/domain"
)

// Repository is a mock implementation of repository.Repository
type Repository struct {
	mock.Mock
}

// CreateLink reserves codes and inserts a link
func (m *Repository) CreateLink(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	args := m.Called(ctx, link)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// GetByID retrieves a link by id
func (m *Repository) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// GetOwned retrieves an owned link by id
func (m *Repository) GetOwned(ctx context.Context, id int64, ownerID string) (*domain.Link, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// GetByShortCode retrieves a link by its short code
func (m *Repository) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// GetByAlias retrieves a link by its custom alias
func (m *Repository) GetByAlias(ctx context.Context, alias string) (*domain.Link, error) {
	args := m.Called(ctx, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// ListByOwner retrieves all links of an owner
func (m *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Link, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// UpdateLink persists an owned link
func (m *Repository) UpdateLink(ctx context.Context, link *domain.Link, previousAlias *string) (*domain.Link, error) {
	args := m.Called(ctx, link, previousAlias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// DeleteLink removes an owned link
func (m *Repository) DeleteLink(ctx context.Context, id int64, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// Deactivate marks a link inactive
func (m *Repository) Deactivate(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// DeactivateExpired marks expired links inactive
func (m *Repository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// RegisterClick records a click
func (m *Repository) RegisterClick(ctx context.Context, linkID int64, sourceAddress, agentString *string, clickedAt time.Time) (*domain.Click, error) {
	args := m.Called(ctx, linkID, sourceAddress, agentString, clickedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Click), args.Error(1)
}

// CountClicks counts click rows of a link
func (m *Repository) CountClicks(ctx context.Context, linkID int64) (int64, error) {
	args := m.Called(ctx, linkID)
	return args.Get(0).(int64), args.Error(1)
}

// Ping checks connectivity
func (m *Repository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the repository connection
func (m *Repository) Close() error {
	args := m.Called()
	return args.Error(0)
}
