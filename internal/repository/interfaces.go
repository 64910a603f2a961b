package repository

import (
	"context"
	"errors"
	"time"

	"github.com/joshdurbin/linkvault/internal/domain"
)

var (
	// ErrNotFound is returned when no row matches
	ErrNotFound = errors.New("record not found")
	// ErrCodeTaken is returned when a short code is already reserved
	ErrCodeTaken = errors.New("short code already taken")
	// ErrAliasTaken is returned when a custom alias is already reserved
	ErrAliasTaken = errors.New("custom alias already taken")
)

// LinkRepository defines the interface for link persistence.
// Every resolvable code (short code or alias) is reserved in one keyspace,
// so a code can never resolve to two links.
type LinkRepository interface {
	// CreateLink reserves the link's short code and alias and inserts it atomically.
	// Returns ErrCodeTaken or ErrAliasTaken on a reservation conflict.
	CreateLink(ctx context.Context, link *domain.Link) (*domain.Link, error)

	// GetByID retrieves a link by id
	GetByID(ctx context.Context, id int64) (*domain.Link, error)

	// GetOwned retrieves a link by id only if owned by ownerID
	GetOwned(ctx context.Context, id int64, ownerID string) (*domain.Link, error)

	// GetByShortCode retrieves a link by its short code
	GetByShortCode(ctx context.Context, code string) (*domain.Link, error)

	// GetByAlias retrieves a link by its custom alias
	GetByAlias(ctx context.Context, alias string) (*domain.Link, error)

	// ListByOwner retrieves all links of an owner ordered by creation date (desc)
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Link, error)

	// UpdateLink persists the mutable fields of an owned link.
	// previousAlias is the alias currently reserved for the link, if any.
	UpdateLink(ctx context.Context, link *domain.Link, previousAlias *string) (*domain.Link, error)

	// DeleteLink removes an owned link and releases its codes
	DeleteLink(ctx context.Context, id int64, ownerID string) error

	// Deactivate marks a link inactive
	Deactivate(ctx context.Context, id int64, at time.Time) error

	// DeactivateExpired marks every active link expired at now inactive
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// ClickRepository defines the interface for click persistence
type ClickRepository interface {
	// RegisterClick inserts a click and increments the link's counter in one transaction
	RegisterClick(ctx context.Context, linkID int64, sourceAddress, agentString *string, clickedAt time.Time) (*domain.Click, error)

	// CountClicks returns the number of click rows recorded for a link
	CountClicks(ctx context.Context, linkID int64) (int64, error)
}

// Repository combines link and click persistence over one store
type Repository interface {
	LinkRepository
	ClickRepository

	// Ping checks connectivity to the store
	Ping(ctx context.Context) error

	// Close closes the repository connection
	Close() error
}
