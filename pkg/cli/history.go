package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/brewvault/pkg/backup"
	"github.com/dshills/brewvault/pkg/storage"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	var (
		limit      int
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past maintenance runs",
		Long: `List past maintenance runs from the local history database,
most recent first.

Examples:
  # Show the last 20 runs
  brewvault history

  # Show the last 5 runs
  brewvault history --limit 5

  # Full records as JSON, including the per-step ledger
  brewvault history --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := storage.NewSQLiteRunRepository()
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer func() { _ = repo.Close() }()

			records, err := repo.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if outputJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(records)
			}

			if len(records) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
				return nil
			}

			printRunsTable(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to display")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output runs as JSON")

	return cmd
}

// printRunsTable displays runs in a formatted table
func printRunsTable(w io.Writer, records []*backup.RunRecord) {
	// Print header
	_, _ = fmt.Fprintf(w, "%-10s %-10s %-5s %-10s %-10s %s\n",
		"ID", "Status", "Exit", "Duration", "Commit", "Started")
	_, _ = fmt.Fprintln(w, strings.Repeat("-", 70))

	// Print each run
	for _, rec := range records {
		id := truncateString(rec.ID, 8)
		status := colorizeRunStatus(rec.Status)
		if rec.DryRun {
			status += colorGray + " (dry)" + colorReset
		}
		duration := formatDurationValue(rec.FinishedAt.Sub(rec.StartedAt))
		commit := rec.CommitHash
		if commit == "" {
			commit = "-"
		}
		started := rec.StartedAt.Local().Format("2006-01-02 15:04")

		_, _ = fmt.Fprintf(w, "%-10s %-20s %-5d %-10s %-10s %s\n",
			id, status, rec.ExitCode, duration, truncateString(commit, 8), started)
	}
}

// Helper functions

// colorizeRunStatus returns a colored status string
func colorizeRunStatus(status string) string {
	switch status {
	case backup.RunSuccess:
		return colorGreen + status + colorReset
	case backup.RunFailed:
		return colorRed + status + colorReset
	default:
		return status
	}
}

// formatDurationValue formats a duration value
func formatDurationValue(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-2] + ".."
}
