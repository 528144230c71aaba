package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/idempotentsql/migrate/internal/ledger"
	"github.com/idempotentsql/migrate/internal/store"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status",
	Short: "Show migration status",
	Long: `Display each migration on disk alongside its ledger state: applied
(with timestamp) or pending. The ledger is the source of truth; a file
on disk is never assumed applied.`,
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	statusCmd.Flags().String("format", "", "output format (text, json)")
	rootCmd.AddCommand(statusCmd)
}

// statusRow is one line of status output.
type statusRow struct {
	Version   string     `json:"version"`
	Name      string     `json:"name"`
	Status    string     `json:"status"` // "applied" or "pending"
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if cfg.DatabaseURL == "" {
		return errDatabaseURLRequired
	}

	format := cfg.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
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

	entries, err := l.ListApplied(ctx)
	if err != nil {
		return err
	}

	rows := buildStatusRows(sorted, entries)

	if format == "json" {
		return printStatusJSON(cmd.OutOrStdout(), rows)
	}

	printStatusText(cmd.OutOrStdout(), rows)

	return nil
}

func buildStatusRows(sorted []store.Migration, entries []ledger.Entry) []statusRow {
	appliedAt := make(map[string]time.Time, len(entries))
	for _, e := range entries {
		appliedAt[e.Version] = e.AppliedAt
	}

	rows := make([]statusRow, 0, len(sorted))

	for _, m := range sorted {
		row := statusRow{Version: m.Version, Name: m.Name, Status: "pending"}

		if at, ok := appliedAt[m.Version]; ok {
			row.Status = "applied"
			row.AppliedAt = &at
		}

		rows = append(rows, row)
	}

	return rows
}

func printStatusJSON(out io.Writer, rows []statusRow) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encoding status: %w", err)
	}

	return nil
}

func printStatusText(out io.Writer, rows []statusRow) {
	pending := 0

	for _, row := range rows {
		if row.Status == "applied" {
			fmt.Fprintf(out, "  applied  %s_%s (%s)\n",
				row.Version, row.Name, row.AppliedAt.Format(time.RFC3339))
		} else {
			fmt.Fprintf(out, "  pending  %s_%s\n", row.Version, row.Name)
			pending++
		}
	}

	fmt.Fprintf(out, "\n%d migration(s), %d pending.\n", len(rows), pending)
}
