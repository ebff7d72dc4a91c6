package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maxgreco/duckgs/internal/cli/config"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent query executions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openHistory(config.Current())
			if err != nil {
				return fmt.Errorf("failed to open query history: %w", err)
			}
			defer func() { _ = store.Close() }()

			records, err := store.RecentQueries(limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(no queries recorded)")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"TIME", "SOURCE", "ROWS", "MS", "QUERY"})

			for _, rec := range records {
				source := "engine"
				if rec.FromCache {
					source = "cache"
				}
				if rec.Error != "" {
					source = "error"
				}
				t.AppendRow(table.Row{
					rec.StartedAt.UTC().Format(time.RFC3339),
					source,
					rec.Rows,
					rec.DurationMS,
					truncateSQL(rec.SQL, 60),
				})
			}

			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	return cmd
}

func truncateSQL(sql string, max int) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) <= max {
		return sql
	}
	return sql[:max-3] + "..."
}
