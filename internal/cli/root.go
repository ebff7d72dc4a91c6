// Package cli provides the command-line interface for duckgs.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/maxgreco/duckgs/internal/cli/commands"
	"github.com/maxgreco/duckgs/internal/cli/config"
	"github.com/spf13/cobra"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "duckgs",
		Short: "duckgs - DuckDB SQL CLI for Google Cloud Storage",
		Long: `duckgs is a CLI tool for querying Parquet files in Google Cloud
Storage using SQL.

Queries run on an embedded DuckDB engine with direct gs:// access. Named
{placeholders} are substituted before execution, and results are cached on
disk so repeated queries return instantly.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			config.SetCurrent(cfg)

			if cfg.Verbose {
				if configFile := config.GetConfigFileUsed(); configFile != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", configFile)
				}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
DuckDB SQL CLI for Google Cloud Storage
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./duckgs.yaml)")
	rootCmd.PersistentFlags().StringP("bucket", "b", "", "gs:// URL bound to the {bucket} placeholder")
	rootCmd.PersistentFlags().String("cache-dir", "", "Directory for the on-disk result cache")
	rootCmd.PersistentFlags().Duration("cache-ttl", 0, "Default expiry for cached results (0 = never)")
	rootCmd.PersistentFlags().String("cache-fingerprint", "", "Extra token mixed into cache keys (bump to invalidate)")
	rootCmd.PersistentFlags().String("database", "", "Path to DuckDB database (empty for in-memory)")
	rootCmd.PersistentFlags().String("state-path", "", "Path to the query-history database")
	rootCmd.PersistentFlags().String("gcs-key-id", "", "GCS HMAC key id")
	rootCmd.PersistentFlags().String("gcs-secret", "", "GCS HMAC secret")
	rootCmd.PersistentFlags().Int("threads", 0, "DuckDB worker threads (0 = engine default)")
	rootCmd.PersistentFlags().String("memory-limit", "", "DuckDB memory limit, e.g. 4GB")
	rootCmd.PersistentFlags().StringP("format", "o", "", "Output format (auto|table|json|csv|md)")
	rootCmd.PersistentFlags().BoolP("silent", "s", false, "Only print the result")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "table", "json", "csv", "md"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Subcommands
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewExamplesCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version))

	return rootCmd
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
