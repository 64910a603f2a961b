package service

import (
	"context"
	"errors"

	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/repository"
)

const (
	maxSourceAddressLength = 45
	maxAgentStringLength   = 512
)

// RegisterClick resolves code to a live link and records one click against it.
// The insert and the counter increment commit together or not at all.
func (s *linkService) RegisterClick(ctx context.Context, code string, sourceAddress, agentString *string) (*domain.Click, error) {
	link, err := s.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !link.IsActive || link.ExpiredAt(now) {
		return nil, domain.ErrNotFound
	}

	click, err := s.repo.RegisterClick(ctx, link.ID, truncate(sourceAddress, maxSourceAddressLength), truncate(agentString, maxAgentStringLength), now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Deleted since it was cached
			s.invalidate(ctx, link.Codes()...)
		}
		return nil, mapRepoError("register click", err)
	}

	s.metrics.Click()
	return click, nil
}

// truncate caps s at max bytes; empty strings become nil
func truncate(s *string, max int) *string {
	if s == nil || *s == "" {
		return nil
	}
	if len(*s) <= max {
		return s
	}
	v := (*s)[:max]
	return &v
}
