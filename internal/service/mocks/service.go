package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/linkvault/internal/domain"
)

// Shortener is a mock implementation of service.Shortener
type Shortener struct {
	mock.Mock
}

// CreateLink creates a link owned by ownerID
func (m *Shortener) CreateLink(ctx context.Context, req *domain.CreateLinkRequest, ownerID string) (*domain.Link, error) {
	args := m.Called(ctx, req, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// ListLinks retrieves every link of ownerID
func (m *Shortener) ListLinks(ctx context.Context, ownerID string) ([]*domain.Link, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

// GetLink retrieves one owned link
func (m *Shortener) GetLink(ctx context.Context, id int64, ownerID string) (*domain.Link, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// UpdateLink applies the request to an owned link
func (m *Shortener) UpdateLink(ctx context.Context, id int64, req *domain.UpdateLinkRequest, ownerID string) (*domain.Link, error) {
	args := m.Called(ctx, id, req, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// DeleteLink removes an owned link
func (m *Shortener) DeleteLink(ctx context.Context, id int64, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

// ResolveRedirect maps a code to its destination
func (m *Shortener) ResolveRedirect(ctx context.Context, code string) (*domain.Resolution, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resolution), args.Error(1)
}

// VerifyPassword resolves a protected code
func (m *Shortener) VerifyPassword(ctx context.Context, code, password string) (*domain.Resolution, error) {
	args := m.Called(ctx, code, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resolution), args.Error(1)
}

// RegisterClick records one click
func (m *Shortener) RegisterClick(ctx context.Context, code string, sourceAddress, agentString *string) (*domain.Click, error) {
	args := m.Called(ctx, code, sourceAddress, agentString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Click), args.Error(1)
}

// StartExpirySweep starts the expiry sweep
func (m *Shortener) StartExpirySweep(ctx context.Context, interval time.Duration) error {
	args := m.Called(ctx, interval)
	return args.Error(0)
}

// StopExpirySweep stops the expiry sweep
func (m *Shortener) StopExpirySweep() error {
	args := m.Called()
	return args.Error(0)
}

// Ping checks the backing store
func (m *Shortener) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the service
func (m *Shortener) Close() error {
	args := m.Called()
	return args.Error(0)
}
