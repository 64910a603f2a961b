package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joshdurbin/linkvault/internal/domain"
	"github.com/joshdurbin/linkvault/internal/repository"
)

const linkColumns = `id, original_url, short_code, custom_alias, password_hash, expiration_date,
	is_active, click_count, owner_id, created_at, updated_at`

const (
	codeKindShort = "short"
	codeKindAlias = "alias"
)

// Store implements repository.Repository over database/sql.
// Timestamps are stored as unix milliseconds so both engines compare them identically.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New creates a store over an open database handle
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
	}
}

// CreateLink reserves the link's codes and inserts it in one transaction
func (s *Store) CreateLink(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO links (original_url, short_code, custom_alias, password_hash, expiration_date,
			is_active, click_count, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		RETURNING id`),
		link.OriginalURL,
		link.ShortCode,
		nullString(link.CustomAlias),
		link.PasswordHash,
		nullMillis(link.ExpirationDate),
		link.IsActive,
		link.OwnerID,
		toMillis(link.CreatedAt),
		toMillis(link.UpdatedAt),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	if err := s.reserveCode(ctx, tx, link.ShortCode, id, codeKindShort); err != nil {
		if errors.Is(err, errCodeReserved) {
			return nil, repository.ErrCodeTaken
		}
		return nil, err
	}

	if link.CustomAlias != nil {
		if err := s.reserveCode(ctx, tx, *link.CustomAlias, id, codeKindAlias); err != nil {
			if errors.Is(err, errCodeReserved) {
				return nil, repository.ErrAliasTaken
			}
			return nil, err
		}
	}

	created, err := s.getByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit link: %w", err)
	}

	return created, nil
}

var errCodeReserved = errors.New("code reserved by another link")

// reserveCode claims code for linkID; the primary key on link_codes makes a
// concurrent claim of the same code fail instead of overwriting it
func (s *Store) reserveCode(ctx context.Context, tx *sql.Tx, code string, linkID int64, kind string) error {
	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`
		INSERT INTO link_codes (code, link_id, kind) VALUES (?, ?, ?)
		ON CONFLICT (code) DO NOTHING`), code, linkID, kind)
	if err != nil {
		return fmt.Errorf("failed to reserve code: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve code: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Already reserved; only a claim by the same link is acceptable
	var owner int64
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT link_id FROM link_codes WHERE code = ?`), code).Scan(&owner)
	if err != nil {
		return fmt.Errorf("failed to check code reservation: %w", err)
	}
	if owner != linkID {
		return errCodeReserved
	}
	return nil
}

// GetByID retrieves a link by id
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Link, error) {
	return s.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
}

// GetOwned retrieves a link by id scoped to its owner in a single predicate
func (s *Store) GetOwned(ctx context.Context, id int64, ownerID string) (*domain.Link, error) {
	return s.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ? AND owner_id = ?`, id, ownerID)
}

// GetByShortCode retrieves a link by its short code
func (s *Store) GetByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	return s.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE short_code = ?`, code)
}

// GetByAlias retrieves a link by its custom alias
func (s *Store) GetByAlias(ctx context.Context, alias string) (*domain.Link, error) {
	return s.getOne(ctx, `SELECT `+linkColumns+` FROM links WHERE custom_alias = ?`, alias)
}

// ListByOwner retrieves all links of an owner, newest first
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Link, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(`SELECT `+linkColumns+` FROM links
		WHERE owner_id = ? ORDER BY created_at DESC, id DESC`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links := make([]*domain.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	return links, nil
}

// UpdateLink persists the mutable fields of an owned link and moves its alias reservation
func (s *Store) UpdateLink(ctx context.Context, link *domain.Link, previousAlias *string) (*domain.Link, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE links SET original_url = ?, custom_alias = ?, password_hash = ?, expiration_date = ?,
			is_active = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`),
		link.OriginalURL,
		nullString(link.CustomAlias),
		link.PasswordHash,
		nullMillis(link.ExpirationDate),
		link.IsActive,
		toMillis(link.UpdatedAt),
		link.ID,
		link.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	if affected == 0 {
		return nil, repository.ErrNotFound
	}

	if !sameString(previousAlias, link.CustomAlias) {
		if previousAlias != nil {
			if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`
				DELETE FROM link_codes WHERE code = ? AND link_id = ? AND kind = ?`),
				*previousAlias, link.ID, codeKindAlias); err != nil {
				return nil, fmt.Errorf("failed to release alias: %w", err)
			}
		}
		if link.CustomAlias != nil {
			if err := s.reserveCode(ctx, tx, *link.CustomAlias, link.ID, codeKindAlias); err != nil {
				if errors.Is(err, errCodeReserved) {
					return nil, repository.ErrAliasTaken
				}
				return nil, err
			}
		}
	}

	updated, err := s.getByID(ctx, tx, link.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit link update: %w", err)
	}

	return updated, nil
}

// DeleteLink removes an owned link and releases its codes. Clicks are kept.
func (s *Store) DeleteLink(ctx context.Context, id int64, ownerID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM links WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM link_codes WHERE link_id = ?`), id); err != nil {
		return fmt.Errorf("failed to release codes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit link deletion: %w", err)
	}
	return nil
}

// Deactivate marks a link inactive; deactivating an inactive link is a no-op
func (s *Store) Deactivate(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE links SET is_active = ?, updated_at = ? WHERE id = ? AND is_active = ?`),
		false, toMillis(at), id, true)
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}
	return nil
}

// DeactivateExpired marks every active link whose expiration date has passed inactive
func (s *Store) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`
		UPDATE links SET is_active = ?, updated_at = ?
		WHERE is_active = ? AND expiration_date IS NOT NULL AND expiration_date <= ?`),
		false, toMillis(now), true, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired links: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired links: %w", err)
	}
	return affected, nil
}

// RegisterClick re-loads the link, inserts the click and bumps the counter in
// one transaction; any failure leaves neither the row nor the increment behind
func (s *Store) RegisterClick(ctx context.Context, linkID int64, sourceAddress, agentString *string, clickedAt time.Time) (*domain.Click, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int64
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT id FROM links WHERE id = ?`+s.dialect.LockClause), linkID).Scan(&existing)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load link: %w", err)
	}

	click := &domain.Click{
		LinkID:        linkID,
		ClickedAt:     fromMillis(toMillis(clickedAt)),
		SourceAddress: sourceAddress,
		AgentString:   agentString,
	}
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(`
		INSERT INTO clicks (link_id, clicked_at, source_address, agent_string)
		VALUES (?, ?, ?, ?)
		RETURNING id`),
		linkID, toMillis(clickedAt), nullString(sourceAddress), nullString(agentString),
	).Scan(&click.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert click: %w", err)
	}

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`UPDATE links SET click_count = click_count + 1 WHERE id = ?`), linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to increment click count: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to increment click count: %w", err)
	}
	if affected != 1 {
		return nil, repository.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit click: %w", err)
	}

	return click, nil
}

// CountClicks returns the number of click rows recorded for a link
func (s *Store) CountClicks(ctx context.Context, linkID int64) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(`SELECT COUNT(*) FROM clicks WHERE link_id = ?`), linkID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// Ping checks connectivity to the database
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getOne(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	link, err := scanLink(s.db.QueryRowContext(ctx, s.dialect.Rebind(query), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

func (s *Store) getByID(ctx context.Context, tx *sql.Tx, id int64) (*domain.Link, error) {
	link, err := scanLink(tx.QueryRowContext(ctx, s.dialect.Rebind(`SELECT `+linkColumns+` FROM links WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*domain.Link, error) {
	var (
		link             domain.Link
		alias            sql.NullString
		expiration       sql.NullInt64
		created, updated int64
	)

	err := row.Scan(
		&link.ID,
		&link.OriginalURL,
		&link.ShortCode,
		&alias,
		&link.PasswordHash,
		&expiration,
		&link.IsActive,
		&link.ClickCount,
		&link.OwnerID,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	if alias.Valid {
		link.CustomAlias = &alias.String
	}
	if expiration.Valid {
		exp := fromMillis(expiration.Int64)
		link.ExpirationDate = &exp
	}
	link.CreatedAt = fromMillis(created)
	link.UpdatedAt = fromMillis(updated)

	return &link, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Ensure Store implements the interface
var _ repository.Repository = (*Store)(nil)
