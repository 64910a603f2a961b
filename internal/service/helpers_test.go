package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/joshdurbin/linkvault/internal/cache"
	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/repository"
	"github.com/joshdurbin/linkvault/internal/shortener"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// sequenceGenerator hands out fixed codes, then numbered ones
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	count int
}

func (g *sequenceGenerator) Generate(length int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.count++
	if len(g.codes) > 0 {
		code := g.codes[0]
		g.codes = g.codes[1:]
		return code, nil
	}
	return fmt.Sprintf("test%04d", g.count), nil
}

func (g *sequenceGenerator) Type() string {
	return "test"
}

type failingGenerator struct{}

func (failingGenerator) Generate(length int) (string, error) {
	return "", fmt.Errorf("entropy unavailable")
}

func (failingGenerator) Type() string {
	return "failing"
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.PasswordCost = bcrypt.MinCost
	return opts
}

func newTestService(t *testing.T, repo repository.Repository, linkCache cache.LinkCache, generator shortener.Generator, opts Options) *linkService {
	t.Helper()

	svc, err := NewShortener(repo, linkCache, generator, opts)
	require.NoError(t, err)

	s := svc.(*linkService)
	s.now = func() time.Time { return testNow }
	return s
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func strPtr(s string) *string {
	return &s
}

func boolPtr(b bool) *bool {
	return &b
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func activeLink(id int64, code string) *domain.Link {
	return &domain.Link{
		ID:          id,
		OriginalURL: "https://example.com/" + code,
		ShortCode:   code,
		IsActive:    true,
		OwnerID:     "alice",
		CreatedAt:   testNow.Add(-time.Hour),
		UpdatedAt:   testNow.Add(-time.Hour),
	}
}
