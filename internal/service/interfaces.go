package service

import (
	"context"
	"time"

	"github.com/joshdurbin/linkvault/internal/domain"
)

// LinkRegistry defines link lifecycle and resolution operations.
// Owner-scoped operations report links of other owners as domain.ErrNotFound.
type LinkRegistry interface {
	// CreateLink creates a link owned by ownerID
	CreateLink(ctx context.Context, req *domain.CreateLinkRequest, ownerID string) (*domain.Link, error)

	// ListLinks retrieves every link of ownerID, newest first
	ListLinks(ctx context.Context, ownerID string) ([]*domain.Link, error)

	// GetLink retrieves one owned link
	GetLink(ctx context.Context, id int64, ownerID string) (*domain.Link, error)

	// UpdateLink applies the non-nil fields of req to an owned link
	UpdateLink(ctx context.Context, id int64, req *domain.UpdateLinkRequest, ownerID string) (*domain.Link, error)

	// DeleteLink removes an owned link
	DeleteLink(ctx context.Context, id int64, ownerID string) error

	// ResolveRedirect maps a short code or alias to its destination
	ResolveRedirect(ctx context.Context, code string) (*domain.Resolution, error)

	// VerifyPassword resolves a code, checking password on protected links
	VerifyPassword(ctx context.Context, code, password string) (*domain.Resolution, error)
}

// ClickLedger records visits of links
type ClickLedger interface {
	// RegisterClick records one click against the link code resolves to
	RegisterClick(ctx context.Context, code string, sourceAddress, agentString *string) (*domain.Click, error)
}

// Shortener is the full link service
type Shortener interface {
	LinkRegistry
	ClickLedger

	// StartExpirySweep starts deactivating expired links at the given interval
	StartExpirySweep(ctx context.Context, interval time.Duration) error

	// StopExpirySweep stops the expiry sweep
	StopExpirySweep() error

	// Ping checks the backing store
	Ping(ctx context.Context) error

	// Close closes the service and its dependencies
	Close() error
}
