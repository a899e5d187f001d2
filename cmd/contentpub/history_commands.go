package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"contentpub/internal/config"
	"contentpub/internal/history"
	"contentpub/internal/report"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show or export operation history (topic, index, export)",
	}
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryExportCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON bool
		status string
	)
	cmd := &cobra.Command{
		Use:   "show <topic|index|export>",
		Short: "Show the history of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := history.LookupTask(args[0])
			if err != nil {
				return err
			}
			var only history.Status
			if strings.TrimSpace(status) != "" {
				parsed, ok := history.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q (want pending, completed, interrupted, or failed)", status)
				}
				only = parsed
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			table, err := loadReport(cmd.Context(), cfg, task, only)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, reportJSON(table))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, table.Title)
			if table.Empty() {
				fmt.Fprintln(out, "No history recorded")
				return nil
			}
			fmt.Fprintln(out, renderReport(table))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	cmd.Flags().StringVar(&status, "status", "", "Only show records with this status")
	return cmd
}

func newHistoryExportCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "export <topic|index|export>",
		Short: "Write the history of a task to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := history.LookupTask(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := strings.TrimSpace(outputDir)
			if dir == "" {
				dir = filepath.Dir(task.StorePath(cfg.Paths.DataDir))
			} else if dir, err = config.ExpandPath(dir); err != nil {
				return err
			}
			table, err := loadReport(cmd.Context(), cfg, task, "")
			if err != nil {
				return err
			}
			path, err := report.ExportCSV(dir, task.CSVName, table, time.Now())
			if errors.Is(err, report.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), "No data to export")
				return nil
			}
			if err != nil {
				return fmt.Errorf("export %s history: %w", task.Key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Data exported to: %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the CSV file (default: the task's history directory)")
	return cmd
}

// loadReport builds the task's history table. A non-empty status keeps only
// records with that status.
func loadReport(ctx context.Context, cfg *config.Config, task history.Task, status history.Status) (report.Table, error) {
	busy := time.Duration(cfg.Store.BusyTimeoutSeconds) * time.Second
	store, err := history.Open(ctx, task.StorePath(cfg.Paths.DataDir), task.Layout, history.WithBusyTimeout(busy))
	if err != nil {
		return report.Table{}, fmt.Errorf("open %s history: %w", task.Key, err)
	}
	defer store.Close()

	records, err := store.List(ctx)
	if err != nil {
		return report.Table{}, fmt.Errorf("read %s history: %w", task.Key, err)
	}
	if status != "" {
		kept := records[:0]
		for _, r := range records {
			if r.Status == status {
				kept = append(kept, r)
			}
		}
		records = kept
	}
	return report.Build(task, records), nil
}

func reportJSON(t report.Table) []map[string]string {
	rows := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		entry := make(map[string]string, len(t.Headers))
		for i, header := range t.Headers {
			if i < len(row) {
				entry[header] = row[i]
			}
		}
		rows = append(rows, entry)
	}
	return rows
}
