package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "duckgs %s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "DuckDB SQL CLI for Google Cloud Storage (%s/%s)\n",
				runtime.GOOS, runtime.GOARCH)
		},
	}
}
