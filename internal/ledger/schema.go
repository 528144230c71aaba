package ledger

// createSchemaSQL is the DDL for the schema_migrations ledger table.
// The UNIQUE constraint on version is the idempotency backstop: even if
// two runners race past the advisory lock, only one insert can win.
const createSchemaSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    id           UUID PRIMARY KEY,
    version      TEXT NOT NULL UNIQUE,
    description  TEXT,
    checksum     TEXT NOT NULL,
    applied_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`
