package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/idempotentsql/migrate/internal/database"
	"github.com/idempotentsql/migrate/internal/ledger"
	"github.com/idempotentsql/migrate/internal/parser"
	"github.com/idempotentsql/migrate/internal/store"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting = "starting"
	StatusApplied  = "applied"
	StatusFailed   = "failed"
	StatusSkipped  = "skipped"
	StatusPlanned  = "planned" // dry run: would be applied
)

// ProgressEvent is emitted by the runner for each migration processed.
type ProgressEvent struct {
	Migration *store.Migration
	Status    string
	Duration  time.Duration
	Error     error
}

// VersionLedger abstracts schema_migrations operations for testability.
type VersionLedger interface {
	EnsureTable(ctx context.Context) error
	AppliedSet(ctx context.Context) (map[string]struct{}, error)
	GetChecksum(ctx context.Context, version string) (string, error)
	RecordApplied(ctx context.Context, q ledger.DBTX, p ledger.RecordParams) error
}

// lockReleaser is returned by lockFn and must be released when done.
type lockReleaser interface {
	Release(ctx context.Context) error
}

// lockFunc acquires an advisory lock and returns a releaser.
type lockFunc func(ctx context.Context) (lockReleaser, error)

// applyFunc executes one migration's SQL and records it in the ledger.
type applyFunc func(ctx context.Context, m *store.Migration) error

// Runner applies pending migrations strictly in version order, one
// transaction per migration, under an advisory lock that serializes
// concurrent runner instances.
type Runner struct {
	pool             *pgxpool.Pool
	ledger           VersionLedger
	lockTimeout      time.Duration
	statementTimeout time.Duration
	dryRun           bool
	onProgress       func(ProgressEvent)
	log              zerolog.Logger
	acquireLock      lockFunc
	applyOne         applyFunc
}

// Option configures a Runner.
type Option func(*Runner)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(r *Runner) { r.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(r *Runner) { r.statementTimeout = d }
}

// WithDryRun enables dry-run mode where no SQL is executed and nothing
// is recorded.
func WithDryRun(b bool) Option {
	return func(r *Runner) { r.dryRun = b }
}

// WithProgressCallback sets a function called for each migration processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(r *Runner) { r.onProgress = fn }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// New creates a Runner with the given pool, ledger, and options.
func New(pool *pgxpool.Pool, l VersionLedger, opts ...Option) *Runner {
	r := &Runner{
		pool:   pool,
		ledger: l,
		log:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	// Set defaults for injectable functions after options are applied,
	// so tests can override them via options.
	if r.acquireLock == nil {
		r.acquireLock = func(ctx context.Context) (lockReleaser, error) {
			return database.TryAcquireLock(ctx, r.pool)
		}
	}

	if r.applyOne == nil {
		r.applyOne = r.applyMigration
	}

	return r
}

// Apply executes pending migrations in ascending version order and
// returns the versions applied in this run. An empty list with a nil
// error means the database is already up to date. The first failure
// rolls back that migration's transaction and halts the run; later
// migrations are never applied out of order.
func (r *Runner) Apply(ctx context.Context, migrations []store.Migration) ([]string, error) {
	runLog := r.log.With().Str("run_id", uuid.NewString()).Logger()

	lock, err := r.acquireLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring migration lock: %w", err)
	}
	defer lock.Release(ctx) //nolint:errcheck // best-effort release on return

	if err := r.ledger.EnsureTable(ctx); err != nil {
		return nil, err
	}

	// The pending set is computed under the lock so two runners cannot
	// both decide the same migration is pending.
	appliedSet, err := r.ledger.AppliedSet(ctx)
	if err != nil {
		return nil, err
	}

	sorted := store.Sort(migrations)
	applied := []string{}

	for i := range sorted {
		m := &sorted[i]

		if _, ok := appliedSet[m.Version]; ok {
			if err := r.verifyChecksum(ctx, m); err != nil {
				return applied, err
			}

			runLog.Debug().Str("version", m.Version).Str("name", m.Name).Msg("already applied, skipping")
			r.fireProgress(ProgressEvent{Migration: m, Status: StatusSkipped})

			continue
		}

		if r.dryRun {
			runLog.Info().Str("version", m.Version).Str("name", m.Name).Msg("dry run: would apply")
			r.fireProgress(ProgressEvent{Migration: m, Status: StatusPlanned})

			continue
		}

		r.fireProgress(ProgressEvent{Migration: m, Status: StatusStarting})
		runLog.Info().Str("version", m.Version).Str("name", m.Name).Msg("applying migration")

		start := time.Now()
		execErr := r.applyOne(ctx, m)
		duration := time.Since(start)

		if execErr != nil {
			runLog.Error().Str("version", m.Version).Dur("duration", duration).Err(execErr).
				Msg("migration failed, halting run")
			r.fireProgress(ProgressEvent{
				Migration: m,
				Status:    StatusFailed,
				Duration:  duration,
				Error:     execErr,
			})

			return applied, fmt.Errorf("migration %s: %w: %w", m.Version, ErrExecutionFailed, execErr)
		}

		applied = append(applied, m.Version)

		runLog.Info().Str("version", m.Version).Dur("duration", duration).Msg("migration applied")
		r.fireProgress(ProgressEvent{
			Migration: m,
			Status:    StatusApplied,
			Duration:  duration,
		})
	}

	return applied, nil
}

// Drift describes an applied migration whose file no longer matches the
// checksum recorded in the ledger.
type Drift struct {
	Version  string
	FilePath string
	Stored   string
	Computed string
}

// VerifyChecksums compares every applied migration's recorded checksum
// against the file on disk and returns the mismatches. Read-only; no
// lock is taken.
func (r *Runner) VerifyChecksums(ctx context.Context, migrations []store.Migration) ([]Drift, error) {
	appliedSet, err := r.ledger.AppliedSet(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift

	for i := range migrations {
		m := &migrations[i]

		if _, ok := appliedSet[m.Version]; !ok {
			continue
		}

		stored, err := r.ledger.GetChecksum(ctx, m.Version)
		if err != nil {
			return nil, fmt.Errorf("verifying migration %s: %w", m.Version, err)
		}

		if stored != m.Checksum {
			drifts = append(drifts, Drift{
				Version:  m.Version,
				FilePath: m.FilePath,
				Stored:   stored,
				Computed: m.Checksum,
			})
		}
	}

	return drifts, nil
}

// verifyChecksum refuses to skip an applied migration whose file was
// edited after it was recorded.
func (r *Runner) verifyChecksum(ctx context.Context, m *store.Migration) error {
	stored, err := r.ledger.GetChecksum(ctx, m.Version)
	if err != nil {
		return fmt.Errorf("getting checksum for %s: %w", m.Version, err)
	}

	if stored != m.Checksum {
		return fmt.Errorf(
			"migration %s: %w: stored=%s computed=%s",
			m.Version, ledger.ErrChecksumMismatch, stored, m.Checksum,
		)
	}

	return nil
}

// applyMigration runs one migration and its ledger insert in a single
// transaction, so a failure anywhere leaves neither a partial schema
// change nor a ledger row. CREATE INDEX CONCURRENTLY cannot run in a
// transaction block and is executed directly on the pool, with the
// ledger insert following it.
func (r *Runner) applyMigration(ctx context.Context, m *store.Migration) error {
	params := ledger.RecordParams{
		Version:     m.Version,
		Description: m.Name,
		Checksum:    m.Checksum,
	}

	concurrent, err := parser.ContainsConcurrentIndex(m.SQL)
	if err != nil {
		return err
	}

	if concurrent {
		if err := ExecWithoutTransaction(ctx, r.pool, m.SQL); err != nil {
			return err
		}

		return r.ledger.RecordApplied(ctx, r.pool, params)
	}

	return ExecInTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		if r.lockTimeout > 0 {
			if err := SetLockTimeout(ctx, tx, r.lockTimeout); err != nil {
				return err
			}
		}

		if r.statementTimeout > 0 {
			if err := SetStatementTimeout(ctx, tx, r.statementTimeout); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("executing %s: %w", filepath.Base(m.FilePath), err)
		}

		return r.ledger.RecordApplied(ctx, tx, params)
	})
}

func (r *Runner) fireProgress(event ProgressEvent) {
	if r.onProgress != nil {
		r.onProgress(event)
	}
}
