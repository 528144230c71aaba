package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/idempotentsql/migrate/internal/parser"
)

// filenamePattern matches migration files:
//
//	{timestamp}_{slug}.sql  (e.g., 20240101120000_create_users.sql)
//
// The 14-digit timestamp is YYYYMMDDHHMMSS and sorts lexicographically.
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by LoadFromDir
	`^(\d{14})_([a-z0-9_]+)\.sql$`,
)

// LoadFromDir scans a directory for migration files and returns them as
// unsorted Migration values. Every .sql file must match the naming
// pattern; a file that does not aborts the load with ErrMalformedName.
// Two files sharing a version abort with ErrDuplicateVersion. Files
// without the .sql extension (and dotfiles) are ignored.
func LoadFromDir(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	var migrations []Migration

	seen := make(map[string]string) // version -> filename

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		if !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			return nil, fmt.Errorf("%s: %w (want <14-digit timestamp>_<slug>.sql)", entry.Name(), ErrMalformedName)
		}

		version := matches[1]
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("%s and %s: %w", prev, entry.Name(), ErrDuplicateVersion)
		}

		seen[version] = entry.Name()

		m, err := readMigration(dir, entry.Name(), version, matches[2])
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, m)
	}

	return migrations, nil
}

// readMigration reads one migration file and builds a Migration.
// Files carrying their own BEGIN/COMMIT are rejected here, before any
// database connection is opened.
func readMigration(dir, filename, version, name string) (Migration, error) {
	path := filepath.Join(dir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		return Migration{}, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	sql := strings.TrimSpace(string(data))

	hasTxControl, err := parser.ContainsTransactionControl(sql)
	if err != nil {
		return Migration{}, fmt.Errorf("migration %s: %w", version, err)
	}

	if hasTxControl {
		return Migration{}, fmt.Errorf("migration %s (%s): %w", version, filename, ErrExplicitTransaction)
	}

	return Migration{
		Version:  version,
		Name:     name,
		SQL:      sql,
		Checksum: ComputeChecksum(sql),
		FilePath: path,
	}, nil
}
