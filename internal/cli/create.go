package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/spf13/cobra"
)

// errInvalidSlug is returned when the migration name is not a valid slug.
var errInvalidSlug = errors.New("migration name must contain only lowercase letters, digits, and underscores")

// slugPattern mirrors the loader's filename pattern.
var slugPattern = regexp.MustCompile(`^[a-z0-9_]+$`) //nolint:gochecknoglobals // compiled once

// timestampLayout produces the sortable 14-digit version prefix.
const timestampLayout = "20060102150405"

var createCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "create <name>",
	Short: "Create a new timestamped migration file",
	Long: `Create an empty migration file named <timestamp>_<name>.sql in the
migrations directory. The timestamp is the current UTC time, so files
sort in creation order.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg := AppConfig
	name := args[0]

	if !slugPattern.MatchString(name) {
		return fmt.Errorf("%q: %w", name, errInvalidSlug)
	}

	if err := os.MkdirAll(cfg.MigrationsDir, 0o755); err != nil {
		return fmt.Errorf("creating migrations directory %s: %w", cfg.MigrationsDir, err)
	}

	filename := time.Now().UTC().Format(timestampLayout) + "_" + name + ".sql"
	path := filepath.Join(cfg.MigrationsDir, filename)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("migration file %s already exists", path)
	}

	content := "-- " + name + "\n-- Statements run inside a single transaction; do not add BEGIN/COMMIT.\n"

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing migration file %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)

	return nil
}
