package parser

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ContainsConcurrentIndex parses the SQL and returns true if any statement
// is a CREATE INDEX CONCURRENTLY. Such statements cannot run inside a
// transaction block and must be executed directly on the pool.
func ContainsConcurrentIndex(sql string) (bool, error) {
	result, err := Parse(sql)
	if err != nil {
		return false, fmt.Errorf("parsing SQL for concurrent index detection: %w", err)
	}

	for _, stmt := range result.Stmts {
		node, ok := stmt.Stmt.Node.(*pg_query.Node_IndexStmt)
		if !ok {
			continue
		}

		if node.IndexStmt != nil && node.IndexStmt.Concurrent {
			return true, nil
		}
	}

	return false, nil
}

// ContainsTransactionControl returns true if any statement is a
// transaction-control statement (BEGIN, COMMIT, ROLLBACK, SAVEPOINT).
// The runner wraps each migration in its own transaction, so migration
// files must not carry their own.
func ContainsTransactionControl(sql string) (bool, error) {
	result, err := Parse(sql)
	if err != nil {
		return false, fmt.Errorf("parsing SQL for transaction control detection: %w", err)
	}

	for _, stmt := range result.Stmts {
		if _, ok := stmt.Stmt.Node.(*pg_query.Node_TransactionStmt); ok {
			return true, nil
		}
	}

	return false, nil
}

// CreateTableName parses SQL expected to contain exactly one CREATE TABLE
// statement and returns the unqualified name of the table it creates.
func CreateTableName(sql string) (string, error) {
	result, err := Parse(sql)
	if err != nil {
		return "", fmt.Errorf("parsing CREATE TABLE statement: %w", err)
	}

	if len(result.Stmts) != 1 {
		return "", fmt.Errorf("%w: got %d statements", ErrNotSingleCreateTable, len(result.Stmts))
	}

	node, ok := result.Stmts[0].Stmt.Node.(*pg_query.Node_CreateStmt)
	if !ok {
		return "", ErrNotSingleCreateTable
	}

	if node.CreateStmt == nil || node.CreateStmt.Relation == nil {
		return "", ErrNotSingleCreateTable
	}

	return node.CreateStmt.Relation.Relname, nil
}
