// Package repotest holds a behavioural test suite shared by every
// repository.Repository implementation.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/repository"
)

// Factory returns an empty repository for one test
type Factory func(t *testing.T) repository.Repository

// Run exercises repo semantics against fresh repositories from newRepo
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateLink", func(t *testing.T) { testCreateLink(t, newRepo(t)) })
	t.Run("CreateLink_DuplicateShortCode", func(t *testing.T) { testDuplicateShortCode(t, newRepo(t)) })
	t.Run("CreateLink_DuplicateAlias", func(t *testing.T) { testDuplicateAlias(t, newRepo(t)) })
	t.Run("CreateLink_AliasCollidesWithShortCode", func(t *testing.T) { testAliasCollidesWithShortCode(t, newRepo(t)) })
	t.Run("Lookups", func(t *testing.T) { testLookups(t, newRepo(t)) })
	t.Run("ListByOwner", func(t *testing.T) { testListByOwner(t, newRepo(t)) })
	t.Run("UpdateLink", func(t *testing.T) { testUpdateLink(t, newRepo(t)) })
	t.Run("UpdateLink_AliasConflict", func(t *testing.T) { testUpdateAliasConflict(t, newRepo(t)) })
	t.Run("UpdateLink_WrongOwner", func(t *testing.T) { testUpdateWrongOwner(t, newRepo(t)) })
	t.Run("DeleteLink", func(t *testing.T) { testDeleteLink(t, newRepo(t)) })
	t.Run("Deactivate", func(t *testing.T) { testDeactivate(t, newRepo(t)) })
	t.Run("DeactivateExpired", func(t *testing.T) { testDeactivateExpired(t, newRepo(t)) })
	t.Run("RegisterClick", func(t *testing.T) { testRegisterClick(t, newRepo(t)) })
	t.Run("RegisterClick_MissingLink", func(t *testing.T) { testRegisterClickMissing(t, newRepo(t)) })
	t.Run("RegisterClick_Concurrent", func(t *testing.T) { testRegisterClickConcurrent(t, newRepo(t)) })
	t.Run("CreateLink_Concurrent", func(t *testing.T) { testCreateConcurrent(t, newRepo(t)) })
}

// NewLink builds an unsaved active link
func NewLink(shortCode, owner string) *domain.Link {
	now := time.Now().UTC()
	return &domain.Link{
		OriginalURL: "https://example.com/" + shortCode,
		ShortCode:   shortCode,
		IsActive:    true,
		OwnerID:     owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func strPtr(s string) *string {
	return &s
}

func testCreateLink(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	expires := time.Now().UTC().Add(24 * time.Hour)

	link := NewLink("abc1234", "alice")
	link.CustomAlias = strPtr("my-alias")
	link.PasswordHash = "hash"
	link.ExpirationDate = &expires

	created, err := repo.CreateLink(ctx, link)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "abc1234", created.ShortCode)
	assert.Equal(t, link.OriginalURL, created.OriginalURL)
	require.NotNil(t, created.CustomAlias)
	assert.Equal(t, "my-alias", *created.CustomAlias)
	assert.Equal(t, "hash", created.PasswordHash)
	require.NotNil(t, created.ExpirationDate)
	assert.WithinDuration(t, expires, *created.ExpirationDate, time.Millisecond)
	assert.True(t, created.IsActive)
	assert.Equal(t, int64(0), created.ClickCount)
	assert.Equal(t, "alice", created.OwnerID)
	assert.WithinDuration(t, link.CreatedAt, created.CreatedAt, time.Millisecond)
}

func testDuplicateShortCode(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	first, err := repo.CreateLink(ctx, NewLink("dup0001", "alice"))
	require.NoError(t, err)

	second := NewLink("dup0001", "bob")
	second.OriginalURL = "https://different.com"
	_, err = repo.CreateLink(ctx, second)
	assert.ErrorIs(t, err, repository.ErrCodeTaken)

	// The first link is untouched and the failed insert left nothing behind
	got, err := repo.GetByShortCode(ctx, "dup0001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.OriginalURL, got.OriginalURL)

	links, err := repo.ListByOwner(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func testDuplicateAlias(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	first := NewLink("code001", "alice")
	first.CustomAlias = strPtr("abc")
	_, err := repo.CreateLink(ctx, first)
	require.NoError(t, err)

	second := NewLink("code002", "bob")
	second.CustomAlias = strPtr("abc")
	_, err = repo.CreateLink(ctx, second)
	assert.ErrorIs(t, err, repository.ErrAliasTaken)

	// The rolled back insert also released its short code
	_, err = repo.GetByShortCode(ctx, "code002")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.CreateLink(ctx, NewLink("code002", "bob"))
	assert.NoError(t, err)
}

func testAliasCollidesWithShortCode(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	_, err := repo.CreateLink(ctx, NewLink("taken01", "alice"))
	require.NoError(t, err)

	link := NewLink("free001", "bob")
	link.CustomAlias = strPtr("taken01")
	_, err = repo.CreateLink(ctx, link)
	assert.ErrorIs(t, err, repository.ErrAliasTaken)

	aliased := NewLink("free002", "bob")
	aliased.CustomAlias = strPtr("alias01")
	_, err = repo.CreateLink(ctx, aliased)
	require.NoError(t, err)

	_, err = repo.CreateLink(ctx, NewLink("alias01", "carol"))
	assert.ErrorIs(t, err, repository.ErrCodeTaken)
}

func testLookups(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	link := NewLink("look001", "alice")
	link.CustomAlias = strPtr("lookup-alias")
	created, err := repo.CreateLink(ctx, link)
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ShortCode, byID.ShortCode)

	owned, err := repo.GetOwned(ctx, created.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, owned.ID)

	_, err = repo.GetOwned(ctx, created.ID, "mallory")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	byCode, err := repo.GetByShortCode(ctx, "look001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCode.ID)

	byAlias, err := repo.GetByAlias(ctx, "lookup-alias")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byAlias.ID)

	_, err = repo.GetByShortCode(ctx, "lookup-alias")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByAlias(ctx, "look001")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByID(ctx, created.ID+1000)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testListByOwner(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	links, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, links, 0)

	now := time.Now().UTC()
	var ids []int64
	for i, age := range []time.Duration{2 * time.Hour, time.Hour, 0} {
		link := NewLink(fmt.Sprintf("list%03d", i), "alice")
		link.CreatedAt = now.Add(-age)
		created, err := repo.CreateLink(ctx, link)
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err = repo.CreateLink(ctx, NewLink("other01", "bob"))
	require.NoError(t, err)

	links, err = repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, links, 3)

	// Newest first
	assert.Equal(t, ids[2], links[0].ID)
	assert.Equal(t, ids[1], links[1].ID)
	assert.Equal(t, ids[0], links[2].ID)
}

func testUpdateLink(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	link := NewLink("upd0001", "alice")
	link.CustomAlias = strPtr("old-alias")
	created, err := repo.CreateLink(ctx, link)
	require.NoError(t, err)

	previous := created.CustomAlias
	changed := created.Clone()
	changed.OriginalURL = "https://updated.example.com"
	changed.CustomAlias = strPtr("new-alias")
	changed.PasswordHash = "new-hash"
	changed.IsActive = false
	changed.UpdatedAt = time.Now().UTC().Add(time.Minute)

	updated, err := repo.UpdateLink(ctx, changed, previous)
	require.NoError(t, err)
	assert.Equal(t, "https://updated.example.com", updated.OriginalURL)
	require.NotNil(t, updated.CustomAlias)
	assert.Equal(t, "new-alias", *updated.CustomAlias)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "upd0001", updated.ShortCode)

	_, err = repo.GetByAlias(ctx, "old-alias")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The old alias is free for another link again
	other := NewLink("upd0002", "bob")
	other.CustomAlias = strPtr("old-alias")
	_, err = repo.CreateLink(ctx, other)
	assert.NoError(t, err)

	// Clearing the alias releases it too
	cleared := updated.Clone()
	cleared.CustomAlias = nil
	result, err := repo.UpdateLink(ctx, cleared, updated.CustomAlias)
	require.NoError(t, err)
	assert.Nil(t, result.CustomAlias)

	third := NewLink("upd0003", "carol")
	third.CustomAlias = strPtr("new-alias")
	_, err = repo.CreateLink(ctx, third)
	assert.NoError(t, err)
}

func testUpdateAliasConflict(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	first := NewLink("conf001", "alice")
	first.CustomAlias = strPtr("wanted")
	_, err := repo.CreateLink(ctx, first)
	require.NoError(t, err)

	second, err := repo.CreateLink(ctx, NewLink("conf002", "alice"))
	require.NoError(t, err)

	changed := second.Clone()
	changed.CustomAlias = strPtr("wanted")
	changed.OriginalURL = "https://should-not-stick.example.com"
	_, err = repo.UpdateLink(ctx, changed, nil)
	assert.ErrorIs(t, err, repository.ErrAliasTaken)

	// Rolled back as a whole
	got, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.OriginalURL, got.OriginalURL)
	assert.Nil(t, got.CustomAlias)
}

func testUpdateWrongOwner(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	created, err := repo.CreateLink(ctx, NewLink("own0001", "alice"))
	require.NoError(t, err)

	changed := created.Clone()
	changed.OwnerID = "mallory"
	changed.OriginalURL = "https://evil.example.com"
	_, err = repo.UpdateLink(ctx, changed, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.DeleteLink(ctx, created.ID, "mallory")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.OriginalURL, got.OriginalURL)
}

func testDeleteLink(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	link := NewLink("del0001", "alice")
	link.CustomAlias = strPtr("del-alias")
	created, err := repo.CreateLink(ctx, link)
	require.NoError(t, err)

	_, err = repo.RegisterClick(ctx, created.ID, nil, nil, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.DeleteLink(ctx, created.ID, "alice"))

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.DeleteLink(ctx, created.ID, "alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Codes are released, clicks are kept
	reused := NewLink("del0001", "bob")
	reused.CustomAlias = strPtr("del-alias")
	_, err = repo.CreateLink(ctx, reused)
	assert.NoError(t, err)

	count, err := repo.CountClicks(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testDeactivate(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	created, err := repo.CreateLink(ctx, NewLink("deac001", "alice"))
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, created.ID, time.Now()))
	require.NoError(t, repo.Deactivate(ctx, created.ID, time.Now()))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func testDeactivateExpired(t *testing.T, repo repository.Repository) {
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := NewLink("exp0001", "alice")
	expired.ExpirationDate = &past
	expiredLink, err := repo.CreateLink(ctx, expired)
	require.NoError(t, err)

	live := NewLink("exp0002", "alice")
	live.ExpirationDate = &future
	liveLink, err := repo.CreateLink(ctx, live)
	require.NoError(t, err)

	forever, err := repo.CreateLink(ctx, NewLink("exp0003", "alice"))
	require.NoError(t, err)

	count, err := repo.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Already inactive links are not counted again
	count, err = repo.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	for id, wantActive := range map[int64]bool{expiredLink.ID: false, liveLink.ID: true, forever.ID: true} {
		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, wantActive, got.IsActive, "link %d", id)
	}
}

func testRegisterClick(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	created, err := repo.CreateLink(ctx, NewLink("clk0001", "alice"))
	require.NoError(t, err)

	clickedAt := time.Now().UTC()
	click, err := repo.RegisterClick(ctx, created.ID, strPtr("203.0.113.7"), strPtr("curl/8.0"), clickedAt)
	require.NoError(t, err)
	assert.NotZero(t, click.ID)
	assert.Equal(t, created.ID, click.LinkID)
	assert.WithinDuration(t, clickedAt, click.ClickedAt, time.Millisecond)
	require.NotNil(t, click.SourceAddress)
	assert.Equal(t, "203.0.113.7", *click.SourceAddress)
	require.NotNil(t, click.AgentString)
	assert.Equal(t, "curl/8.0", *click.AgentString)

	_, err = repo.RegisterClick(ctx, created.ID, nil, nil, time.Now())
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ClickCount)

	count, err := repo.CountClicks(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func testRegisterClickMissing(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	_, err := repo.RegisterClick(ctx, 424242, nil, nil, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	count, err := repo.CountClicks(ctx, 424242)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func testRegisterClickConcurrent(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	created, err := repo.CreateLink(ctx, NewLink("conc001", "alice"))
	require.NoError(t, err)

	const clicks = 50
	var wg sync.WaitGroup
	errs := make(chan error, clicks)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RegisterClick(ctx, created.ID, nil, nil, time.Now())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), got.ClickCount)

	count, err := repo.CountClicks(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), count)
}

func testCreateConcurrent(t *testing.T, repo repository.Repository) {
	ctx := context.Background()

	// Every goroutine races for the same code; exactly one may win
	const racers = 10
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.CreateLink(ctx, NewLink("race001", fmt.Sprintf("owner%d", i)))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrCodeTaken)
	}
	assert.Equal(t, 1, wins)
}
