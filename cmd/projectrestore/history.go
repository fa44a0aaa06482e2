package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent restore runs from the journal",
		Long: `List recent restore runs recorded in the journal database, newest
first. The journal must be enabled via journal.db_path in the config.`,
		Example: `  projectrestore history
  projectrestore history --limit 50`,
		RunE: historyRun,
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")

	return cmd
}

func historyRun(cmd *cobra.Command, args []string) error {
	if globalJournal == nil {
		return fmt.Errorf("journal is not enabled: set journal.db_path in the config")
	}

	runs, err := globalJournal.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No restore runs recorded.")
		return nil
	}

	fmt.Printf("%-20s %-12s %8s %8s %10s  %s\n",
		"STARTED", "STATUS", "FILES", "SKIPPED", "SIZE", "DESTINATION")
	for _, run := range runs {
		status := run.Status
		if run.DryRun {
			status = status + " (dry)"
		}
		fmt.Printf("%-20s %-12s %8d %8d %10s  %s\n",
			run.StartTime.Format("2006-01-02 15:04:05"),
			status,
			run.FilesRestored,
			run.FilesSkipped,
			formatBytes(run.BytesWritten),
			run.Destination,
		)
		if run.ErrorMessage != "" {
			fmt.Printf("  error: %s\n", run.ErrorMessage)
		}
	}

	return nil
}

// formatBytes formats a byte count into human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
