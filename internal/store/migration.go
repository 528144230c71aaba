package store

import (
	"crypto/sha256"
	"encoding/hex"
)

// Migration represents a single schema migration loaded from disk.
type Migration struct {
	Version  string // "20240101120000" — extracted from filename
	Name     string // "create_users" — extracted from filename
	SQL      string // Contents of the .sql file, trimmed
	Checksum string // SHA-256 hex digest of SQL
	FilePath string // Path to the .sql file
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
