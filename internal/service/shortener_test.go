package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/joshdurbin/linkvault/internal/cache"
	"github.com/joshdurbin/linkvault/internal/cache/memory"
	"github.com/joshdurbin/linkvault/internal/cache/mocks"
	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/repository"
	repoMocks "github.com/joshdurbin/linkvault/internal/repository/mocks"
)

func TestLinkService_CreateLink(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		req         *domain.CreateLinkRequest
		owner       string
		codes       []string
		maxAttempts int
		setupMocks  func(*repoMocks.Repository)
		wantErr     error
		errContains string
		check       func(*testing.T, *domain.Link)
	}{
		{
			name:  "successful creation",
			req:   &domain.CreateLinkRequest{OriginalURL: "https://example.com"},
			owner: "alice",
			codes: []string{"abc1234"},
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool {
					return l.ShortCode == "abc1234" &&
						l.OwnerID == "alice" &&
						l.IsActive &&
						l.CustomAlias == nil &&
						l.PasswordHash == "" &&
						l.ExpirationDate != nil && l.ExpirationDate.Equal(testNow.Add(DefaultLinkTTL))
				})).Return(&domain.Link{ID: 1, ShortCode: "abc1234", OriginalURL: "https://example.com", IsActive: true, OwnerID: "alice"}, nil).Once()
			},
			check: func(t *testing.T, link *domain.Link) {
				assert.Equal(t, int64(1), link.ID)
				assert.Equal(t, "abc1234", link.ShortCode)
			},
		},
		{
			name: "with alias, password and expiration",
			req: &domain.CreateLinkRequest{
				OriginalURL:    "https://example.com",
				CustomAlias:    "my-alias",
				Password:       "hunter2",
				ExpirationDate: timePtr(testNow.Add(time.Hour)),
			},
			owner: "alice",
			codes: []string{"abc1234"},
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool {
					return l.CustomAlias != nil && *l.CustomAlias == "my-alias" &&
						bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte("hunter2")) == nil &&
						l.ExpirationDate.Equal(testNow.Add(time.Hour))
				})).Return(&domain.Link{ID: 2, ShortCode: "abc1234"}, nil).Once()
			},
		},
		{
			name:        "invalid URL",
			req:         &domain.CreateLinkRequest{OriginalURL: "not-a-url"},
			owner:       "alice",
			setupMocks:  func(repo *repoMocks.Repository) {},
			wantErr:     domain.ErrValidation,
			errContains: "original_url",
		},
		{
			name:        "unsupported scheme",
			req:         &domain.CreateLinkRequest{OriginalURL: "ftp://example.com/file"},
			owner:       "alice",
			setupMocks:  func(repo *repoMocks.Repository) {},
			wantErr:     domain.ErrValidation,
			errContains: "only HTTP and HTTPS",
		},
		{
			name:        "URL too long",
			req:         &domain.CreateLinkRequest{OriginalURL: "https://example.com/" + strings.Repeat("a", 2100)},
			owner:       "alice",
			setupMocks:  func(repo *repoMocks.Repository) {},
			wantErr:     domain.ErrValidation,
			errContains: "2083",
		},
		{
			name:        "invalid alias",
			req:         &domain.CreateLinkRequest{OriginalURL: "https://example.com", CustomAlias: "a!"},
			owner:       "alice",
			setupMocks:  func(repo *repoMocks.Repository) {},
			wantErr:     domain.ErrValidation,
			errContains: "custom_alias",
		},
		{
			name:        "password too long",
			req:         &domain.CreateLinkRequest{OriginalURL: "https://example.com", Password: strings.Repeat("p", 73)},
			owner:       "alice",
			setupMocks:  func(repo *repoMocks.Repository) {},
			wantErr:     domain.ErrValidation,
			errContains: "password",
		},
		{
			name:        "expiration in the past",
			req:         &domain.CreateLinkRequest{OriginalURL: "https://example.com", ExpirationDate: timePtr(testNow.Add(-time.Minute))},
			owner:       "alice",
			setupMocks:  func(repo *repoMocks.Repository) {},
			wantErr:     domain.ErrValidation,
			errContains: "expiration_date",
		},
		{
			name:        "missing owner",
			req:         &domain.CreateLinkRequest{OriginalURL: "https://example.com"},
			owner:       "",
			setupMocks:  func(repo *repoMocks.Repository) {},
			wantErr:     domain.ErrValidation,
			errContains: "owner",
		},
		{
			name:  "retries after code collision",
			req:   &domain.CreateLinkRequest{OriginalURL: "https://example.com"},
			owner: "alice",
			codes: []string{"taken01", "free001"},
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool { return l.ShortCode == "taken01" })).
					Return(nil, repository.ErrCodeTaken).Once()
				repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool { return l.ShortCode == "free001" })).
					Return(&domain.Link{ID: 3, ShortCode: "free001"}, nil).Once()
			},
			check: func(t *testing.T, link *domain.Link) {
				assert.Equal(t, "free001", link.ShortCode)
			},
		},
		{
			name:  "alias conflict does not fall back",
			req:   &domain.CreateLinkRequest{OriginalURL: "https://example.com", CustomAlias: "abc"},
			owner: "alice",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).
					Return(nil, repository.ErrAliasTaken).Once()
			},
			wantErr:     domain.ErrAliasConflict,
			errContains: "abc",
		},
		{
			name:        "exhausted retries",
			req:         &domain.CreateLinkRequest{OriginalURL: "https://example.com"},
			owner:       "alice",
			maxAttempts: 3,
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).
					Return(nil, repository.ErrCodeTaken).Times(3)
			},
			wantErr: domain.ErrExhaustedRetries,
		},
		{
			name:  "storage error",
			req:   &domain.CreateLinkRequest{OriginalURL: "https://example.com"},
			owner: "alice",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).
					Return(nil, assert.AnError).Once()
			},
			wantErr:     domain.ErrStorage,
			errContains: "create link",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.Repository{}
			tt.setupMocks(repo)

			opts := testOptions()
			if tt.maxAttempts > 0 {
				opts.Shortener.MaxAttempts = tt.maxAttempts
			}
			svc := newTestService(t, repo, nil, &sequenceGenerator{codes: tt.codes}, opts)

			result, err := svc.CreateLink(ctx, tt.req, tt.owner)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
				if tt.check != nil {
					tt.check(t, result)
				}
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestLinkService_CreateLink_NoDefaultTTL(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.Repository{}
	repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool {
		return l.ExpirationDate == nil
	})).Return(&domain.Link{ID: 1}, nil).Once()

	opts := testOptions()
	opts.DefaultTTL = 0
	svc := newTestService(t, repo, nil, &sequenceGenerator{}, opts)

	_, err := svc.CreateLink(ctx, &domain.CreateLinkRequest{OriginalURL: "https://example.com"}, "alice")
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestLinkService_CreateLink_GeneratorFailure(t *testing.T) {
	repo := &repoMocks.Repository{}
	svc := newTestService(t, repo, nil, failingGenerator{}, testOptions())

	_, err := svc.CreateLink(context.Background(), &domain.CreateLinkRequest{OriginalURL: "https://example.com"}, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate short code")
	repo.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything)
}

func TestLinkService_ResolveRedirect(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		code       string
		setupMocks func(*repoMocks.Repository)
		want       *domain.Resolution
		wantErr    error
	}{
		{
			name: "found by short code",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "abc1234").Return(activeLink(1, "abc1234"), nil)
			},
			want: &domain.Resolution{LinkID: 1, OriginalURL: "https://example.com/abc1234"},
		},
		{
			name: "found by alias",
			code: "my-alias",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(2, "xyz9876")
				link.CustomAlias = strPtr("my-alias")
				repo.On("GetByShortCode", ctx, "my-alias").Return(nil, repository.ErrNotFound)
				repo.On("GetByAlias", ctx, "my-alias").Return(link, nil)
			},
			want: &domain.Resolution{LinkID: 2, OriginalURL: "https://example.com/xyz9876"},
		},
		{
			name: "absent",
			code: "missing",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "missing").Return(nil, repository.ErrNotFound)
				repo.On("GetByAlias", ctx, "missing").Return(nil, repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:       "empty code",
			code:       "",
			setupMocks: func(repo *repoMocks.Repository) {},
			wantErr:    domain.ErrNotFound,
		},
		{
			name: "inactive looks absent",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.IsActive = false
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "expired active link is deactivated",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.ExpirationDate = timePtr(testNow.Add(-time.Second))
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
				repo.On("Deactivate", ctx, int64(1), testNow).Return(nil).Once()
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "expiring exactly now counts as expired",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.ExpirationDate = timePtr(testNow)
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
				repo.On("Deactivate", ctx, int64(1), testNow).Return(nil).Once()
			},
			wantErr: domain.ErrExpired,
		},
		{
			name: "expired inactive link looks absent",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.IsActive = false
				link.ExpirationDate = timePtr(testNow.Add(-time.Hour))
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "deactivation failure",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.ExpirationDate = timePtr(testNow.Add(-time.Second))
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
				repo.On("Deactivate", ctx, int64(1), testNow).Return(assert.AnError)
			},
			wantErr: domain.ErrStorage,
		},
		{
			name: "password protected",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.PasswordHash = "$2a$04$whatever"
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
			},
			want: &domain.Resolution{LinkID: 1, PasswordRequired: true},
		},
		{
			name: "storage error",
			code: "abc1234",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "abc1234").Return(nil, assert.AnError)
			},
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.Repository{}
			tt.setupMocks(repo)

			svc := newTestService(t, repo, cache.Noop{}, &sequenceGenerator{}, testOptions())

			got, err := svc.ResolveRedirect(ctx, tt.code)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestLinkService_ResolveRedirect_UsesCache(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.Repository{}
	repo.On("GetByShortCode", ctx, "abc1234").Return(activeLink(1, "abc1234"), nil).Once()

	svc := newTestService(t, repo, memory.New(time.Minute), &sequenceGenerator{}, testOptions())

	for i := 0; i < 3; i++ {
		got, err := svc.ResolveRedirect(ctx, "abc1234")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/abc1234", got.OriginalURL)
	}

	repo.AssertExpectations(t)
}

func TestLinkService_ResolveRedirect_ExpiryInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	link := activeLink(1, "abc1234")
	link.CustomAlias = strPtr("my-alias")
	link.ExpirationDate = timePtr(testNow.Add(-time.Second))

	repo := &repoMocks.Repository{}
	repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
	repo.On("Deactivate", ctx, int64(1), testNow).Return(nil).Once()

	linkCache := &mocks.Cache{}
	linkCache.On("Get", ctx, "abc1234").Return(nil, false)
	linkCache.On("Set", ctx, "abc1234", mock.AnythingOfType("*domain.Link")).Return(nil)
	linkCache.On("Delete", ctx, []string{"abc1234", "my-alias"}).Return(nil).Once()

	svc := newTestService(t, repo, linkCache, &sequenceGenerator{}, testOptions())

	_, err := svc.ResolveRedirect(ctx, "abc1234")
	assert.ErrorIs(t, err, domain.ErrExpired)

	repo.AssertExpectations(t)
	linkCache.AssertExpectations(t)
}

func TestLinkService_VerifyPassword(t *testing.T) {
	ctx := context.Background()
	hash := mustHash(t, "hunter2")

	protected := func() *domain.Link {
		link := activeLink(1, "abc1234")
		link.PasswordHash = hash
		return link
	}

	tests := []struct {
		name     string
		password string
		link     func() *domain.Link
		wantURL  string
		wantErr  error
	}{
		{
			name:     "correct password",
			password: "hunter2",
			link:     protected,
			wantURL:  "https://example.com/abc1234",
		},
		{
			name:     "wrong password",
			password: "hunter3",
			link:     protected,
			wantErr:  domain.ErrInvalidPassword,
		},
		{
			name:     "empty password",
			password: "",
			link:     protected,
			wantErr:  domain.ErrInvalidPassword,
		},
		{
			name:     "no password set accepts anything",
			password: "whatever",
			link:     func() *domain.Link { return activeLink(1, "abc1234") },
			wantURL:  "https://example.com/abc1234",
		},
		{
			name:     "inactive",
			password: "hunter2",
			link: func() *domain.Link {
				link := protected()
				link.IsActive = false
				return link
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:     "inactive and expired",
			password: "hunter2",
			link: func() *domain.Link {
				link := protected()
				link.IsActive = false
				link.ExpirationDate = timePtr(testNow.Add(-time.Hour))
				return link
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:     "corrupt hash",
			password: "hunter2",
			link: func() *domain.Link {
				link := activeLink(1, "abc1234")
				link.PasswordHash = "plaintext"
				return link
			},
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.Repository{}
			repo.On("GetByShortCode", ctx, "abc1234").Return(tt.link(), nil)

			svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

			got, err := svc.VerifyPassword(ctx, "abc1234", tt.password)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantURL, got.OriginalURL)
				assert.False(t, got.PasswordRequired)
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		link := protected()
		link.ExpirationDate = timePtr(testNow.Add(-time.Hour))

		repo := &repoMocks.Repository{}
		repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
		repo.On("Deactivate", ctx, int64(1), testNow).Return(nil).Once()

		svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

		_, err := svc.VerifyPassword(ctx, "abc1234", "hunter2")
		assert.ErrorIs(t, err, domain.ErrExpired)
		repo.AssertExpectations(t)
	})

	t.Run("absent", func(t *testing.T) {
		repo := &repoMocks.Repository{}
		repo.On("GetByShortCode", ctx, "missing").Return(nil, repository.ErrNotFound)
		repo.On("GetByAlias", ctx, "missing").Return(nil, repository.ErrNotFound)

		svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

		_, err := svc.VerifyPassword(ctx, "missing", "hunter2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestLinkService_GetLink(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(*repoMocks.Repository)
		wantErr    error
	}{
		{
			name: "owned link",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(activeLink(1, "abc1234"), nil)
			},
		},
		{
			name: "other owner",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(nil, repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "storage error",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(nil, assert.AnError)
			},
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.Repository{}
			tt.setupMocks(repo)

			svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

			link, err := svc.GetLink(ctx, 1, "alice")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, link)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(1), link.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLinkService_ListLinks(t *testing.T) {
	ctx := context.Background()

	t.Run("lists owner links", func(t *testing.T) {
		repo := &repoMocks.Repository{}
		links := []*domain.Link{activeLink(2, "second1"), activeLink(1, "first01")}
		repo.On("ListByOwner", ctx, "alice").Return(links, nil)

		svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

		got, err := svc.ListLinks(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, links, got)
	})

	t.Run("missing owner", func(t *testing.T) {
		svc := newTestService(t, &repoMocks.Repository{}, nil, &sequenceGenerator{}, testOptions())

		_, err := svc.ListLinks(ctx, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("storage error", func(t *testing.T) {
		repo := &repoMocks.Repository{}
		repo.On("ListByOwner", ctx, "alice").Return(nil, assert.AnError)

		svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

		_, err := svc.ListLinks(ctx, "alice")
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestLinkService_UpdateLink(t *testing.T) {
	ctx := context.Background()

	current := func() *domain.Link {
		link := activeLink(1, "abc1234")
		link.CustomAlias = strPtr("old-alias")
		link.PasswordHash = "old-hash"
		link.ExpirationDate = timePtr(testNow.Add(time.Hour))
		return link
	}

	tests := []struct {
		name        string
		req         *domain.UpdateLinkRequest
		setupMocks  func(*repoMocks.Repository, *mocks.Cache)
		wantErr     error
		errContains string
	}{
		{
			name: "changes URL and alias",
			req: &domain.UpdateLinkRequest{
				OriginalURL: strPtr("https://new.example.com"),
				CustomAlias: strPtr("new-alias"),
			},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(current(), nil)
				repo.On("UpdateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool {
					return l.OriginalURL == "https://new.example.com" &&
						*l.CustomAlias == "new-alias" &&
						l.PasswordHash == "old-hash" &&
						l.UpdatedAt.Equal(testNow)
				}), strPtr("old-alias")).Return(func() *domain.Link {
					link := current()
					link.OriginalURL = "https://new.example.com"
					link.CustomAlias = strPtr("new-alias")
					return link
				}(), nil)
				c.On("Delete", ctx, []string{"abc1234", "old-alias", "abc1234", "new-alias"}).Return(nil).Once()
			},
		},
		{
			name: "clears alias, password and expiration",
			req: &domain.UpdateLinkRequest{
				CustomAlias:     strPtr(""),
				Password:        strPtr(""),
				ClearExpiration: true,
				IsActive:        boolPtr(false),
			},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(current(), nil)
				repo.On("UpdateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool {
					return l.CustomAlias == nil && l.PasswordHash == "" && l.ExpirationDate == nil && !l.IsActive
				}), strPtr("old-alias")).Return(activeLink(1, "abc1234"), nil)
				c.On("Delete", ctx, []string{"abc1234", "old-alias", "abc1234"}).Return(nil).Once()
			},
		},
		{
			name: "sets a new password",
			req:  &domain.UpdateLinkRequest{Password: strPtr("s3cret")},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(current(), nil)
				repo.On("UpdateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool {
					return bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte("s3cret")) == nil
				}), strPtr("old-alias")).Return(current(), nil)
				c.On("Delete", ctx, mock.Anything).Return(nil)
			},
		},
		{
			name: "other owner",
			req:  &domain.UpdateLinkRequest{OriginalURL: strPtr("https://evil.example.com")},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(nil, repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "alias conflict",
			req:  &domain.UpdateLinkRequest{CustomAlias: strPtr("taken")},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(current(), nil)
				repo.On("UpdateLink", ctx, mock.AnythingOfType("*domain.Link"), strPtr("old-alias")).
					Return(nil, repository.ErrAliasTaken)
			},
			wantErr:     domain.ErrAliasConflict,
			errContains: "taken",
		},
		{
			name: "row vanished during update",
			req:  &domain.UpdateLinkRequest{OriginalURL: strPtr("https://new.example.com")},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(current(), nil)
				repo.On("UpdateLink", ctx, mock.AnythingOfType("*domain.Link"), strPtr("old-alias")).
					Return(nil, repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:        "invalid URL",
			req:         &domain.UpdateLinkRequest{OriginalURL: strPtr("javascript:alert(1)")},
			setupMocks:  func(repo *repoMocks.Repository, c *mocks.Cache) {},
			wantErr:     domain.ErrValidation,
			errContains: "original_url",
		},
		{
			name:        "invalid alias",
			req:         &domain.UpdateLinkRequest{CustomAlias: strPtr("no spaces")},
			setupMocks:  func(repo *repoMocks.Repository, c *mocks.Cache) {},
			wantErr:     domain.ErrValidation,
			errContains: "custom_alias",
		},
		{
			name: "expiration set and cleared",
			req: &domain.UpdateLinkRequest{
				ExpirationDate:  timePtr(testNow.Add(time.Hour)),
				ClearExpiration: true,
			},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {},
			wantErr:    domain.ErrValidation,
		},
		{
			name:       "past expiration",
			req:        &domain.UpdateLinkRequest{ExpirationDate: timePtr(testNow.Add(-time.Hour))},
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {},
			wantErr:    domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.Repository{}
			linkCache := &mocks.Cache{}
			tt.setupMocks(repo, linkCache)

			svc := newTestService(t, repo, linkCache, &sequenceGenerator{}, testOptions())

			result, err := svc.UpdateLink(ctx, 1, tt.req, "alice")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, result)
			}

			repo.AssertExpectations(t)
			linkCache.AssertExpectations(t)
		})
	}
}

func TestLinkService_DeleteLink(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		setupMocks func(*repoMocks.Repository, *mocks.Cache)
		wantErr    error
	}{
		{
			name: "successful deletion",
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				link := activeLink(1, "abc1234")
				link.CustomAlias = strPtr("alias01")
				repo.On("GetOwned", ctx, int64(1), "alice").Return(link, nil)
				repo.On("DeleteLink", ctx, int64(1), "alice").Return(nil)
				c.On("Delete", ctx, []string{"abc1234", "alias01"}).Return(nil).Once()
			},
		},
		{
			name: "cache failure does not fail deletion",
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(activeLink(1, "abc1234"), nil)
				repo.On("DeleteLink", ctx, int64(1), "alice").Return(nil)
				c.On("Delete", ctx, []string{"abc1234"}).Return(assert.AnError)
			},
		},
		{
			name: "other owner",
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(nil, repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "deleted concurrently",
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(activeLink(1, "abc1234"), nil)
				repo.On("DeleteLink", ctx, int64(1), "alice").Return(repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "storage error",
			setupMocks: func(repo *repoMocks.Repository, c *mocks.Cache) {
				repo.On("GetOwned", ctx, int64(1), "alice").Return(activeLink(1, "abc1234"), nil)
				repo.On("DeleteLink", ctx, int64(1), "alice").Return(assert.AnError)
			},
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.Repository{}
			linkCache := &mocks.Cache{}
			tt.setupMocks(repo, linkCache)

			svc := newTestService(t, repo, linkCache, &sequenceGenerator{}, testOptions())

			err := svc.DeleteLink(ctx, 1, "alice")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			repo.AssertExpectations(t)
			linkCache.AssertExpectations(t)
		})
	}
}

func TestLinkService_RegisterClick(t *testing.T) {
	ctx := context.Background()
	longAgent := strings.Repeat("x", 600)

	tests := []struct {
		name       string
		source     *string
		agent      *string
		setupMocks func(*repoMocks.Repository)
		wantErr    error
	}{
		{
			name:   "registers click",
			source: strPtr("203.0.113.7"),
			agent:  strPtr("curl/8.0"),
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "abc1234").Return(activeLink(1, "abc1234"), nil)
				repo.On("RegisterClick", ctx, int64(1), strPtr("203.0.113.7"), strPtr("curl/8.0"), testNow).
					Return(&domain.Click{ID: 10, LinkID: 1, ClickedAt: testNow}, nil)
			},
		},
		{
			name:   "empty and oversized metadata",
			source: strPtr(""),
			agent:  &longAgent,
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "abc1234").Return(activeLink(1, "abc1234"), nil)
				repo.On("RegisterClick", ctx, int64(1), (*string)(nil), strPtr(longAgent[:512]), testNow).
					Return(&domain.Click{ID: 11, LinkID: 1}, nil)
			},
		},
		{
			name: "absent link",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "abc1234").Return(nil, repository.ErrNotFound)
				repo.On("GetByAlias", ctx, "abc1234").Return(nil, repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "inactive link",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.IsActive = false
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "expired link",
			setupMocks: func(repo *repoMocks.Repository) {
				link := activeLink(1, "abc1234")
				link.ExpirationDate = timePtr(testNow.Add(-time.Minute))
				repo.On("GetByShortCode", ctx, "abc1234").Return(link, nil)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "deleted before the transaction",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "abc1234").Return(activeLink(1, "abc1234"), nil)
				repo.On("RegisterClick", ctx, int64(1), (*string)(nil), (*string)(nil), testNow).
					Return(nil, repository.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "storage error",
			setupMocks: func(repo *repoMocks.Repository) {
				repo.On("GetByShortCode", ctx, "abc1234").Return(activeLink(1, "abc1234"), nil)
				repo.On("RegisterClick", ctx, int64(1), (*string)(nil), (*string)(nil), testNow).
					Return(nil, assert.AnError)
			},
			wantErr: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.Repository{}
			tt.setupMocks(repo)

			svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

			click, err := svc.RegisterClick(ctx, "abc1234", tt.source, tt.agent)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, click)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(1), click.LinkID)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestLinkService_ExpirySweep(t *testing.T) {
	ctx := context.Background()
	swept := make(chan struct{}, 1)
	repo := &repoMocks.Repository{}
	repo.On("DeactivateExpired", mock.Anything, testNow).Return(int64(2), nil).Run(func(args mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	})

	svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())

	require.NoError(t, svc.StartExpirySweep(ctx, 10*time.Millisecond))
	// Starting twice is a no-op
	require.NoError(t, svc.StartExpirySweep(ctx, 10*time.Millisecond))

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("expiry sweep did not run")
	}

	require.NoError(t, svc.StopExpirySweep())
	require.NoError(t, svc.StopExpirySweep())
}

func TestLinkService_ExpirySweep_InvalidInterval(t *testing.T) {
	svc := newTestService(t, &repoMocks.Repository{}, nil, &sequenceGenerator{}, testOptions())

	err := svc.StartExpirySweep(context.Background(), 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sweep interval must be positive")
}

func TestLinkService_SweepExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("returns deactivated count", func(t *testing.T) {
		repo := &repoMocks.Repository{}
		repo.On("DeactivateExpired", ctx, testNow).Return(int64(3), nil)

		svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())
		assert.Equal(t, int64(3), svc.sweepExpired(ctx))
	})

	t.Run("store failure", func(t *testing.T) {
		repo := &repoMocks.Repository{}
		repo.On("DeactivateExpired", ctx, testNow).Return(int64(0), assert.AnError)

		svc := newTestService(t, repo, nil, &sequenceGenerator{}, testOptions())
		assert.Equal(t, int64(0), svc.sweepExpired(ctx))
	})
}

func TestLinkService_Close(t *testing.T) {
	repo := &repoMocks.Repository{}
	repo.On("Close").Return(nil)
	linkCache := &mocks.Cache{}
	linkCache.On("Close").Return(nil)

	svc := newTestService(t, repo, linkCache, &sequenceGenerator{}, testOptions())

	assert.NoError(t, svc.Close())
	repo.AssertExpectations(t)
	linkCache.AssertExpectations(t)
}

func TestLinkService_Close_CacheError(t *testing.T) {
	linkCache := &mocks.Cache{}
	linkCache.On("Close").Return(assert.AnError)

	svc := newTestService(t, &repoMocks.Repository{}, linkCache, &sequenceGenerator{}, testOptions())

	err := svc.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to close cache")
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Options)
		errContains string
	}{
		{name: "defaults", mutate: func(o *Options) {}},
		{name: "no default ttl", mutate: func(o *Options) { o.DefaultTTL = 0 }},
		{name: "negative ttl", mutate: func(o *Options) { o.DefaultTTL = -time.Hour }, errContains: "default TTL"},
		{name: "code too short", mutate: func(o *Options) { o.Shortener.CodeLength = 2 }, errContains: "code length"},
		{name: "no attempts", mutate: func(o *Options) { o.Shortener.MaxAttempts = 0 }, errContains: "max attempts"},
		{name: "cost too low", mutate: func(o *Options) { o.PasswordCost = 1 }, errContains: "password cost"},
		{name: "cost too high", mutate: func(o *Options) { o.PasswordCost = 40 }, errContains: "password cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			}
		})
	}
}

func TestNewShortener_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Shortener.MaxAttempts = 0

	svc, err := NewShortener(&repoMocks.Repository{}, nil, &sequenceGenerator{}, opts)
	assert.Error(t, err)
	assert.Nil(t, svc)
}
