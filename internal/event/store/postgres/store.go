package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tokengate/internal/event"
	"tokengate/pkg/domain"
	"tokengate/pkg/platform/sentinel"
)

// Store persists compliance events in PostgreSQL. Listings are newest first.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema creates the backing table. Called by migrations and test setups.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS compliance_events (
    id           UUID PRIMARY KEY,
    type         TEXT NOT NULL,
    from_account TEXT NOT NULL DEFAULT '',
    to_account   TEXT NOT NULL DEFAULT '',
    amount       NUMERIC(20, 0) NOT NULL DEFAULT 0,
    reason       TEXT NOT NULL,
    severity     TEXT NOT NULL,
    occurred_at  TIMESTAMPTZ NOT NULL,
    resolved     BOOLEAN NOT NULL DEFAULT FALSE,
    resolved_by  TEXT NOT NULL DEFAULT '',
    resolved_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS compliance_events_occurred_idx ON compliance_events (occurred_at DESC);
CREATE INDEX IF NOT EXISTS compliance_events_type_idx ON compliance_events (type);
`
}

func (s *Store) Append(ctx context.Context, ev *event.Event) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO compliance_events (id, type, from_account, to_account, amount, reason, severity, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, string(ev.Type), ev.From.String(), ev.To.String(),
		strconv.FormatUint(uint64(ev.Amount), 10), ev.Reason, string(ev.Severity), ev.OccurredAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, type, from_account, to_account, amount, reason, severity,
       occurred_at, resolved, resolved_by, resolved_at
FROM compliance_events WHERE id = $1`, id)

	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (s *Store) List(ctx context.Context, filter event.Filter) ([]*event.Event, int, error) {
	filter = filter.Normalize()
	where, args := buildFilter(filter)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM compliance_events`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := `
SELECT id, type, from_account, to_account, amount, reason, severity,
       occurred_at, resolved, resolved_by, resolved_at
FROM compliance_events` + where + fmt.Sprintf(`
ORDER BY occurred_at DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := s.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*event.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

func (s *Store) Resolve(ctx context.Context, id uuid.UUID, by string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE compliance_events SET resolved = TRUE, resolved_by = $2, resolved_at = $3
WHERE id = $1 AND resolved = FALSE`, id, by, at)
	if err != nil {
		return fmt.Errorf("resolve event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve event: %w", err)
	}
	if affected == 0 {
		// Either the event does not exist or it is already resolved.
		var resolved bool
		err := s.db.QueryRowContext(ctx,
			`SELECT resolved FROM compliance_events WHERE id = $1`, id).Scan(&resolved)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("resolve event: %w", err)
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func buildFilter(filter event.Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		clauses = append(clauses, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, string(*filter.Severity))
		clauses = append(clauses, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.Resolved != nil {
		args = append(args, *filter.Resolved)
		clauses = append(clauses, fmt.Sprintf("resolved = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, clause := range clauses[1:] {
		where += " AND " + clause
	}
	return where, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*event.Event, error) {
	var ev event.Event
	var typ, from, to, severity, amount string
	var resolvedAt sql.NullTime
	if err := row.Scan(&ev.ID, &typ, &from, &to, &amount, &ev.Reason, &severity,
		&ev.OccurredAt, &ev.Resolved, &ev.ResolvedBy, &resolvedAt); err != nil {
		return nil, err
	}
	// The column is NUMERIC(20, 0) so token amounts above the int64 range
	// survive the round trip.
	parsed, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	ev.Type = event.Type(typ)
	ev.From = domain.Address(from)
	ev.To = domain.Address(to)
	ev.Amount = domain.Amount(parsed)
	ev.Severity = event.Severity(severity)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		ev.ResolvedAt = &t
	}
	return &ev, nil
}
