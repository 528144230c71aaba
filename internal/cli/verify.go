package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idempotentsql/migrate/internal/ledger"
	"github.com/idempotentsql/migrate/internal/runner"
)

// errChecksumDrift is returned when verify finds edited migration files.
var errChecksumDrift = errors.New("checksum drift detected")

var verifyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "verify",
	Short: "Verify applied migrations against their files",
	Long: `Compare the checksum recorded for each applied migration against the
file currently on disk. A mismatch means the file was edited after it
was applied; the database schema may no longer match what the files
describe. Read-only.`,
	RunE: runVerify,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	sorted, err := loadAndSortMigrations(cfg.MigrationsDir, cmd.OutOrStdout())
	if err != nil || sorted == nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := connectDB(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer pool.Close()

	l := ledger.New(pool)
	if err := l.EnsureTable(ctx); err != nil {
		return err
	}

	run := runner.New(pool, l, runner.WithLogger(AppLogger))

	drifts, err := run.VerifyChecksums(ctx, sorted)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if len(drifts) == 0 {
		fmt.Fprintln(out, "All applied migrations match their files.")

		return nil
	}

	for _, d := range drifts {
		fmt.Fprintf(out, "  DRIFT %s (%s)\n", d.Version, d.FilePath)
		fmt.Fprintf(out, "    recorded: %s\n", d.Stored)
		fmt.Fprintf(out, "    on disk:  %s\n", d.Computed)
	}

	return fmt.Errorf("%w: %d migration(s) edited after apply", errChecksumDrift, len(drifts))
}
