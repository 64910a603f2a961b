package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/joshdurbin/linkvault/internal/cache"
	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/metrics"
	"github.com/joshdurbin/linkvault/internal/repository"
	"github.com/joshdurbin/linkvault/internal/shortener"
)

// DefaultLinkTTL is the expiration window applied to links created without one
const DefaultLinkTTL = 7 * 24 * time.Hour

// Options tunes the link service
type Options struct {
	Shortener    shortener.Config
	DefaultTTL   time.Duration // Zero creates links without a default expiration
	PasswordCost int           // bcrypt cost for link passwords
	Metrics      *metrics.Metrics
}

// DefaultOptions returns the default options
func DefaultOptions() Options {
	return Options{
		Shortener:    shortener.DefaultConfig(),
		DefaultTTL:   DefaultLinkTTL,
		PasswordCost: bcrypt.DefaultCost,
	}
}

// Validate checks the option values
func (o Options) Validate() error {
	if err := o.Shortener.Validate(); err != nil {
		return err
	}
	if o.DefaultTTL < 0 {
		return fmt.Errorf("default TTL cannot be negative, got: %s", o.DefaultTTL)
	}
	if o.PasswordCost < bcrypt.MinCost || o.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("password cost must be between %d and %d, got: %d", bcrypt.MinCost, bcrypt.MaxCost, o.PasswordCost)
	}
	return nil
}

// linkService implements Shortener
type linkService struct {
	repo      repository.Repository
	cache     cache.LinkCache
	generator shortener.Generator
	opts      Options
	metrics   *metrics.Metrics
	now       func() time.Time
	loads     singleflight.Group

	// invalidations counts cache invalidations; loads compare it around their store read
	invalidations atomic.Uint64

	sweepMutex sync.Mutex
	sweepStop  chan struct{}
	sweepDone  chan struct{}
}

// NewShortener creates a new link service. A nil cache disables caching.
func NewShortener(repo repository.Repository, linkCache cache.LinkCache, generator shortener.Generator, opts Options) (Shortener, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service options: %w", err)
	}
	if linkCache == nil {
		linkCache = cache.Noop{}
	}

	return &linkService{
		repo:      repo,
		cache:     linkCache,
		generator: generator,
		opts:      opts,
		metrics:   opts.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateLink validates the request, picks a free short code and persists the link
func (s *linkService) CreateLink(ctx context.Context, req *domain.CreateLinkRequest, ownerID string) (*domain.Link, error) {
	now := s.now()
	if err := validateCreate(req, ownerID, now); err != nil {
		return nil, err
	}

	link := &domain.Link{
		OriginalURL: req.OriginalURL,
		IsActive:    true,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.CustomAlias != "" {
		alias := req.CustomAlias
		link.CustomAlias = &alias
	}
	if req.Password != "" {
		hash, err := s.hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		link.PasswordHash = hash
	}
	switch {
	case req.ExpirationDate != nil:
		expires := req.ExpirationDate.UTC()
		link.ExpirationDate = &expires
	case s.opts.DefaultTTL > 0:
		expires := now.Add(s.opts.DefaultTTL)
		link.ExpirationDate = &expires
	}

	for attempt := 0; attempt < s.opts.Shortener.MaxAttempts; attempt++ {
		code, err := s.generator.Generate(s.opts.Shortener.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}
		link.ShortCode = code

		created, err := s.repo.CreateLink(ctx, link)
		switch {
		case err == nil:
			s.metrics.LinkCreated()
			return created, nil
		case errors.Is(err, repository.ErrCodeTaken):
			s.metrics.CodeCollision()
			continue
		case errors.Is(err, repository.ErrAliasTaken):
			return nil, fmt.Errorf("%w: %s", domain.ErrAliasConflict, req.CustomAlias)
		default:
			return nil, domain.NewStorageError("create link", err)
		}
	}

	s.metrics.ExhaustedRetries()
	log.Printf("[WARN] No free short code of length %d after %d attempts", s.opts.Shortener.CodeLength, s.opts.Shortener.MaxAttempts)
	return nil, domain.ErrExhaustedRetries
}

// ListLinks retrieves every link of ownerID
func (s *linkService) ListLinks(ctx context.Context, ownerID string) ([]*domain.Link, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner", "is required")
	}

	links, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, domain.NewStorageError("list links", err)
	}
	return links, nil
}

// GetLink retrieves one owned link
func (s *linkService) GetLink(ctx context.Context, id int64, ownerID string) (*domain.Link, error) {
	link, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, mapRepoError("get link", err)
	}
	return link, nil
}

// UpdateLink applies the request to an owned link
func (s *linkService) UpdateLink(ctx context.Context, id int64, req *domain.UpdateLinkRequest, ownerID string) (*domain.Link, error) {
	now := s.now()
	if err := validateUpdate(req, now); err != nil {
		return nil, err
	}

	current, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, mapRepoError("get link", err)
	}

	changed := current.Clone()
	if req.OriginalURL != nil {
		changed.OriginalURL = *req.OriginalURL
	}
	if req.CustomAlias != nil {
		if *req.CustomAlias == "" {
			changed.CustomAlias = nil
		} else {
			alias := *req.CustomAlias
			changed.CustomAlias = &alias
		}
	}
	if req.Password != nil {
		changed.PasswordHash = ""
		if *req.Password != "" {
			hash, err := s.hashPassword(*req.Password)
			if err != nil {
				return nil, err
			}
			changed.PasswordHash = hash
		}
	}
	switch {
	case req.ClearExpiration:
		changed.ExpirationDate = nil
	case req.ExpirationDate != nil:
		expires := req.ExpirationDate.UTC()
		changed.ExpirationDate = &expires
	}
	if req.IsActive != nil {
		changed.IsActive = *req.IsActive
	}
	changed.UpdatedAt = now

	updated, err := s.repo.UpdateLink(ctx, changed, current.CustomAlias)
	if err != nil {
		if errors.Is(err, repository.ErrAliasTaken) && changed.CustomAlias != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrAliasConflict, *changed.CustomAlias)
		}
		return nil, mapRepoError("update link", err)
	}

	s.invalidate(ctx, append(current.Codes(), updated.Codes()...)...)
	return updated, nil
}

// DeleteLink removes an owned link
func (s *linkService) DeleteLink(ctx context.Context, id int64, ownerID string) error {
	current, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return mapRepoError("get link", err)
	}

	if err := s.repo.DeleteLink(ctx, id, ownerID); err != nil {
		return mapRepoError("delete link", err)
	}

	s.metrics.LinkDeleted()
	s.invalidate(ctx, current.Codes()...)
	return nil
}

// Ping checks the backing store
func (s *linkService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close stops the sweep and closes the cache and repository
func (s *linkService) Close() error {
	if err := s.StopExpirySweep(); err != nil {
		return fmt.Errorf("failed to stop expiry sweep: %w", err)
	}
	if err := s.cache.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}

func (s *linkService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// invalidate drops cached entries; the store stays authoritative so failures only log
func (s *linkService) invalidate(ctx context.Context, codes ...string) {
	s.invalidations.Add(1)
	for _, code := range codes {
		s.loads.Forget(code)
	}
	if err := s.cache.Delete(ctx, codes...); err != nil {
		log.Printf("[WARN] Failed to invalidate cached codes %v: %v", codes, err)
	}
}

// mapRepoError translates repository errors into the domain taxonomy
func mapRepoError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, repository.ErrAliasTaken):
		return domain.ErrAliasConflict
	default:
		return domain.NewStorageError(op, err)
	}
}

// Ensure linkService implements Shortener interface
var _ Shortener = (*linkService)(nil)
