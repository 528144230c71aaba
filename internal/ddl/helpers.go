// Package ddl provides guarded schema operations that are safe to re-run.
// Each helper checks the system catalogs for the named object by exact
// name within the current schema, executes the mutating statement only
// when the object is absent, and reports whether it applied or skipped.
// Helpers never detect or reconcile definition drift: an existing object
// with a different shape is still a skip.
package ddl

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/idempotentsql/migrate/internal/parser"
)

// Querier is the subset of pgx operations the helpers need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so helpers run equally inside a
// migration's transaction or directly on a pool.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CreateTableIfNotExists creates a table unless one with the same name
// already exists in the current schema. The creation statement must be a
// single CREATE TABLE for the named table; it is parsed with the real
// PostgreSQL parser before anything touches the database.
func CreateTableIfNotExists(ctx context.Context, q Querier, table, creationSQL string) (Result, error) {
	if _, err := quoteIdentifier(table); err != nil {
		return "", err
	}

	created, err := parser.CreateTableName(creationSQL)
	if err != nil {
		return "", fmt.Errorf("create table %s: %w", table, err)
	}

	if created != table {
		return "", fmt.Errorf("create table %s: %w: statement creates %q", table, ErrStatementMismatch, created)
	}

	exists, err := tableExists(ctx, q, table)
	if err != nil {
		return "", err
	}

	if exists {
		return ResultSkipped, nil
	}

	if _, err := q.Exec(ctx, creationSQL); err != nil {
		return "", fmt.Errorf("creating table %s: %w", table, err)
	}

	return ResultApplied, nil
}

// AddColumnIfNotExists adds a column with the given type unless the
// table already has a column with that name. The type is taken verbatim;
// a type mismatch on an existing column is not detected.
func AddColumnIfNotExists(ctx context.Context, q Querier, table, column, columnType string) (Result, error) {
	qt, err := quoteIdentifier(table)
	if err != nil {
		return "", err
	}

	qc, err := quoteIdentifier(column)
	if err != nil {
		return "", err
	}

	if columnType == "" {
		return "", fmt.Errorf("add column %s.%s: %w", table, column, ErrEmptyDefinition)
	}

	exists, err := columnExists(ctx, q, table, column)
	if err != nil {
		return "", err
	}

	if exists {
		return ResultSkipped, nil
	}

	sql := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", qt, qc, columnType)
	if _, err := q.Exec(ctx, sql); err != nil {
		return "", fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}

	return ResultApplied, nil
}

// IndexSpec describes an index for CreateIndexIfNotExists.
type IndexSpec struct {
	Name       string // index name, checked against pg_indexes
	Table      string
	ColumnExpr string // column list or expression, verbatim inside parentheses
	Unique     bool
	Using      string // optional index method (btree, gin, ...)
	Where      string // optional partial-index predicate, verbatim
}

// CreateIndexIfNotExists creates an index unless one with the same name
// already exists in the current schema. Existence is by index name only;
// an existing index with a different definition is still a skip.
func CreateIndexIfNotExists(ctx context.Context, q Querier, spec IndexSpec) (Result, error) {
	qn, err := quoteIdentifier(spec.Name)
	if err != nil {
		return "", err
	}

	qt, err := quoteIdentifier(spec.Table)
	if err != nil {
		return "", err
	}

	if spec.ColumnExpr == "" {
		return "", fmt.Errorf("create index %s: %w", spec.Name, ErrEmptyDefinition)
	}

	exists, err := indexExists(ctx, q, spec.Name)
	if err != nil {
		return "", err
	}

	if exists {
		return ResultSkipped, nil
	}

	sql := "CREATE "
	if spec.Unique {
		sql += "UNIQUE "
	}

	sql += fmt.Sprintf("INDEX %s ON %s", qn, qt)

	if spec.Using != "" {
		sql += " USING " + spec.Using
	}

	sql += " (" + spec.ColumnExpr + ")"

	if spec.Where != "" {
		sql += " WHERE " + spec.Where
	}

	if _, err := q.Exec(ctx, sql); err != nil {
		return "", fmt.Errorf("creating index %s: %w", spec.Name, err)
	}

	return ResultApplied, nil
}

// AddConstraintIfNotExists adds a named constraint unless the table
// already carries a constraint with that name. The definition is the SQL
// after ADD CONSTRAINT <name>, e.g. "UNIQUE (email)" or
// "FOREIGN KEY (user_id) REFERENCES users(id)".
func AddConstraintIfNotExists(ctx context.Context, q Querier, table, constraint, definition string) (Result, error) {
	qt, err := quoteIdentifier(table)
	if err != nil {
		return "", err
	}

	qc, err := quoteIdentifier(constraint)
	if err != nil {
		return "", err
	}

	if definition == "" {
		return "", fmt.Errorf("add constraint %s on %s: %w", constraint, table, ErrEmptyDefinition)
	}

	exists, err := constraintExists(ctx, q, table, constraint)
	if err != nil {
		return "", err
	}

	if exists {
		return ResultSkipped, nil
	}

	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s", qt, qc, definition)
	if _, err := q.Exec(ctx, sql); err != nil {
		return "", fmt.Errorf("adding constraint %s on %s: %w", constraint, table, err)
	}

	return ResultApplied, nil
}

func tableExists(ctx context.Context, q Querier, table string) (bool, error) {
	var exists bool

	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM information_schema.tables
		     WHERE table_schema = current_schema() AND table_name = $1
		 )`,
		table,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}

	return exists, nil
}

func columnExists(ctx context.Context, q Querier, table, column string) (bool, error) {
	var exists bool

	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM information_schema.columns
		     WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		 )`,
		table, column,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}

	return exists, nil
}

func indexExists(ctx context.Context, q Querier, index string) (bool, error) {
	var exists bool

	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM pg_indexes
		     WHERE schemaname = current_schema() AND indexname = $1
		 )`,
		index,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking index %s: %w", index, err)
	}

	return exists, nil
}

func constraintExists(ctx context.Context, q Querier, table, constraint string) (bool, error) {
	var exists bool

	err := q.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM information_schema.table_constraints
		     WHERE constraint_schema = current_schema()
		       AND table_name = $1 AND constraint_name = $2
		 )`,
		table, constraint,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking constraint %s on %s: %w", constraint, table, err)
	}

	return exists, nil
}
