package service

import (
	"context"
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/metrics"
	"github.com/joshdurbin/linkvault/internal/repository"
)

// ResolveRedirect applies the expiration, active and password gates to the link behind code
func (s *linkService) ResolveRedirect(ctx context.Context, code string) (*domain.Resolution, error) {
	link, err := s.accessible(ctx, code)
	if err != nil {
		return nil, err
	}

	if link.HasPassword() {
		s.metrics.Resolution(metrics.OutcomePasswordRequired)
		return &domain.Resolution{LinkID: link.ID, PasswordRequired: true}, nil
	}

	s.metrics.Resolution(metrics.OutcomeRedirect)
	return &domain.Resolution{LinkID: link.ID, OriginalURL: link.OriginalURL}, nil
}

// VerifyPassword re-resolves code and releases the destination once password matches
func (s *linkService) VerifyPassword(ctx context.Context, code, password string) (*domain.Resolution, error) {
	link, err := s.accessible(ctx, code)
	if err != nil {
		return nil, err
	}

	if link.HasPassword() {
		err := bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.metrics.Resolution(metrics.OutcomeInvalidPassword)
			return nil, domain.ErrInvalidPassword
		}
		if err != nil {
			s.metrics.Resolution(metrics.OutcomeError)
			return nil, domain.NewStorageError("verify password", err)
		}
	}

	s.metrics.Resolution(metrics.OutcomeRedirect)
	return &domain.Resolution{LinkID: link.ID, OriginalURL: link.OriginalURL}, nil
}

// accessible loads the link behind code and applies the active and expiration gates.
// An inactive link is absent. An active link found past its expiration is deactivated
// and reported as expired; later calls then see an inactive link.
func (s *linkService) accessible(ctx context.Context, code string) (*domain.Link, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.Resolution(metrics.OutcomeNotFound)
		} else {
			s.metrics.Resolution(metrics.OutcomeError)
		}
		return nil, err
	}

	if !link.IsActive {
		s.metrics.Resolution(metrics.OutcomeNotFound)
		return nil, domain.ErrNotFound
	}

	now := s.now()
	if link.ExpiredAt(now) {
		if err := s.repo.Deactivate(ctx, link.ID, now); err != nil {
			s.metrics.Resolution(metrics.OutcomeError)
			return nil, domain.NewStorageError("deactivate link", err)
		}
		s.metrics.LinksExpired(1)
		s.invalidate(ctx, link.Codes()...)
		s.metrics.Resolution(metrics.OutcomeExpired)
		return nil, domain.ErrExpired
	}

	return link, nil
}

// lookup finds the link for code by short code first, then by alias.
// Concurrent misses for one code share a single store round trip.
func (s *linkService) lookup(ctx context.Context, code string) (*domain.Link, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}

	if link, ok := s.cache.Get(ctx, code); ok {
		s.metrics.CacheLookup(true)
		return link, nil
	}
	s.metrics.CacheLookup(false)

	v, err, _ := s.loads.Do(code, func() (interface{}, error) {
		gen := s.invalidations.Load()
		link, err := s.repo.GetByShortCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			link, err = s.repo.GetByAlias(ctx, code)
		}
		if err != nil {
			return nil, mapRepoError("resolve link", err)
		}

		if err := s.cache.Set(ctx, code, link); err != nil {
			log.Printf("[WARN] Failed to cache link for %s: %v", code, err)
		}
		// An invalidation that raced the read may have run before the Set above
		if s.invalidations.Load() != gen {
			if err := s.cache.Delete(ctx, code); err != nil {
				log.Printf("[WARN] Failed to drop raced cache entry for %s: %v", code, err)
			}
		}
		return link, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers sharing a load must not share the value
	return v.(*domain.Link).Clone(), nil
}
