package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tokengate/internal/identity/models"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
)

// Store persists verification records in PostgreSQL. Listing order follows
// the serial insertion id so pagination stays deterministic across reads.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema creates the backing table. Called by migrations and test setups.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS identity_verifications (
    seq           BIGSERIAL,
    account       TEXT PRIMARY KEY,
    level         TEXT NOT NULL,
    jurisdiction  CHAR(2) NOT NULL,
    verified_at   TIMESTAMPTZ NOT NULL,
    expires_at    TIMESTAMPTZ NOT NULL,
    identity_hash BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS identity_verifications_seq_idx ON identity_verifications (seq);
`
}

const upsertQuery = `
INSERT INTO identity_verifications (account, level, jurisdiction, verified_at, expires_at, identity_hash)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (account) DO UPDATE SET
    level = EXCLUDED.level,
    jurisdiction = EXCLUDED.jurisdiction,
    verified_at = EXCLUDED.verified_at,
    expires_at = EXCLUDED.expires_at,
    identity_hash = EXCLUDED.identity_hash
RETURNING (xmax = 0) AS inserted`

func (s *Store) Upsert(ctx context.Context, identity *models.Identity) (bool, error) {
	var inserted bool
	err := s.db.QueryRowContext(ctx, upsertQuery,
		identity.Account.String(),
		identity.Level.String(),
		identity.Jurisdiction,
		identity.VerifiedAt,
		identity.ExpiresAt,
		identity.IdentityHash[:],
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert verification: %w", err)
	}
	return inserted, nil
}

func (s *Store) UpsertBatch(ctx context.Context, identities []*models.Identity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch verify: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, identity := range identities {
		var inserted bool
		if err := tx.QueryRowContext(ctx, upsertQuery,
			identity.Account.String(),
			identity.Level.String(),
			identity.Jurisdiction,
			identity.VerifiedAt,
			identity.ExpiresAt,
			identity.IdentityHash[:],
		).Scan(&inserted); err != nil {
			return fmt.Errorf("batch upsert verification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch verify: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, account domain.Address) (*models.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT account, level, jurisdiction, verified_at, expires_at, identity_hash
FROM identity_verifications WHERE account = $1`, account.String())

	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return identity, nil
}

func (s *Store) Delete(ctx context.Context, account domain.Address) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM identity_verifications WHERE account = $1`, account.String())
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete verification: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, page models.Page) ([]*models.Identity, int, error) {
	page = page.Normalize()

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM identity_verifications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count verifications: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT account, level, jurisdiction, verified_at, expires_at, identity_hash
FROM identity_verifications ORDER BY seq LIMIT $1 OFFSET $2`, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var records []*models.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan verification: %w", err)
		}
		records = append(records, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list verifications: %w", err)
	}
	return records, total, nil
}

func (s *Store) CountByLevel(ctx context.Context) ([]models.LevelCount, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT level, COUNT(*) FROM identity_verifications GROUP BY level ORDER BY level`)
	if err != nil {
		return nil, fmt.Errorf("count by level: %w", err)
	}
	defer rows.Close()

	var counts []models.LevelCount
	for rows.Next() {
		var levelName string
		var count int
		if err := rows.Scan(&levelName, &count); err != nil {
			return nil, fmt.Errorf("scan level count: %w", err)
		}
		level, err := domain.ParseVerificationLevel(levelName)
		if err != nil {
			return nil, fmt.Errorf("stored level: %w", err)
		}
		counts = append(counts, models.LevelCount{Level: level, Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by level: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row scanner) (*models.Identity, error) {
	var identity models.Identity
	var account, levelName string
	var hash []byte
	if err := row.Scan(&account, &levelName, &identity.Jurisdiction,
		&identity.VerifiedAt, &identity.ExpiresAt, &hash); err != nil {
		return nil, err
	}
	identity.Account = domain.Address(account)
	level, err := domain.ParseVerificationLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("stored level: %w", err)
	}
	identity.Level = level
	copy(identity.IdentityHash[:], hash)
	return &identity, nil
}
