package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/brewvault/pkg/logstore"
)

// NewLogsCommand creates the logs command
func NewLogsCommand(global *GlobalFlags) *cobra.Command {
	var tailCount int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display the run log",
		Long: `Display the active run log.

Rotated logs stay next to the active one in the log directory with a
timestamp suffix; this command prints only the active file.

Examples:
  # Print the whole active log
  brewvault logs

  # Print the last 50 lines
  brewvault logs --tail 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(global)
			if err != nil {
				return err
			}

			path := filepath.Join(settings.LogDir, logstore.ActiveLogName)
			data, err := os.ReadFile(path)
			if errors.Is(err, fs.ErrNotExist) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No log file at %s\n", path)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to read log file: %w", err)
			}
			if len(data) == 0 {
				return nil
			}

			lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
			if tailCount > 0 && tailCount < len(lines) {
				lines = lines[len(lines)-tailCount:]
			}
			for _, line := range lines {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tailCount, "tail", 0, "Show last N log lines (0 = show all)")

	return cmd
}
