package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maxgreco/duckgs/internal/cli/config"
	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the on-disk result cache",
		Long: `Inspect and manage the query-result cache.

Every successful query stores its result under a key derived from the
substituted SQL text. Identical queries are then served from disk without
touching the engine or cloud storage.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderCacheEntries(cmd, config.Current())
		},
	}

	cmd.AddCommand(newCacheListCommand())
	cmd.AddCommand(newCacheInvalidateCommand())
	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached query results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderCacheEntries(cmd, config.Current())
		},
	}
}

func newCacheInvalidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <key>",
		Short: "Remove a single cache entry by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache(config.Current())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Invalidate(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", args[0])
			return nil
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openCache(config.Current())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Clear(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
}

func renderCacheEntries(cmd *cobra.Command, cfg *config.Config) error {
	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "(cache is empty)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"KEY", "CREATED", "EXPIRES", "ROWS", "SIZE"})

	for _, e := range entries {
		expires := "never"
		if e.ExpiresAt != nil {
			expires = e.ExpiresAt.UTC().Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			e.Key,
			e.CreatedAt.UTC().Format(time.RFC3339),
			expires,
			e.Rows,
			formatSize(e.SizeBytes),
		})
	}

	t.Render()
	return nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
