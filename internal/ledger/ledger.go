package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE raised when an insert hits the
// version UNIQUE constraint.
const uniqueViolation = "23505"

// DBTX is the subset of pgx operations the ledger writes through.
// Both *pgxpool.Pool and pgx.Tx satisfy it; the runner passes its
// migration transaction so the ledger row commits atomically with
// the schema change.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Entry is one row of the schema_migrations table.
type Entry struct {
	ID          uuid.UUID
	Version     string
	Description string
	Checksum    string
	AppliedAt   time.Time
}

// RecordParams contains the fields needed to record a migration as applied.
type RecordParams struct {
	Version     string
	Description string
	Checksum    string
}

// Ledger manages the schema_migrations table. The ledger is append-only
// and is the sole source of truth for whether a migration has run.
type Ledger struct {
	pool *pgxpool.Pool
}

// New creates a Ledger backed by the given connection pool.
func New(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// EnsureTable creates the schema_migrations table if it does not exist.
func (l *Ledger) EnsureTable(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, createSchemaSQL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTableCreation, err)
	}

	return nil
}

// ListApplied returns all recorded migrations ordered by version.
func (l *Ledger) ListApplied(ctx context.Context) ([]Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, version, COALESCE(description, ''), checksum, applied_at
		 FROM schema_migrations
		 ORDER BY version`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying applied migrations: %w", err)
	}
	defer rows.Close()

	applied, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		if scanErr := row.Scan(&e.ID, &e.Version, &e.Description, &e.Checksum, &e.AppliedAt); scanErr != nil {
			return Entry{}, fmt.Errorf("scanning ledger row: %w", scanErr)
		}

		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning applied migrations: %w", err)
	}

	return applied, nil
}

// AppliedSet returns the recorded versions as a set.
func (l *Ledger) AppliedSet(ctx context.Context) (map[string]struct{}, error) {
	entries, err := l.ListApplied(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.Version] = struct{}{}
	}

	return set, nil
}

// RecordApplied inserts one ledger row on the given querier. Pass the
// migration's transaction so the insert commits or rolls back with it.
// Insert-only: a version that already exists returns ErrDuplicateVersion.
func (l *Ledger) RecordApplied(ctx context.Context, q DBTX, p RecordParams) error {
	_, err := q.Exec(ctx,
		`INSERT INTO schema_migrations (id, version, description, checksum)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), p.Version, p.Description, p.Checksum,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("migration %s: %w", p.Version, ErrDuplicateVersion)
		}

		return fmt.Errorf("recording migration %s as applied: %w", p.Version, err)
	}

	return nil
}

// GetChecksum returns the recorded checksum for a migration version.
func (l *Ledger) GetChecksum(ctx context.Context, version string) (string, error) {
	var checksum string

	err := l.pool.QueryRow(ctx,
		`SELECT checksum FROM schema_migrations WHERE version = $1`,
		version,
	).Scan(&checksum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("migration %s: %w", version, ErrMigrationNotFound)
		}

		return "", fmt.Errorf("getting checksum for migration %s: %w", version, err)
	}

	return checksum, nil
}
