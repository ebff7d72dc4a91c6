package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

const examplesText = `Quick start:

  $ duckgs query "SELECT 42"

Silent mode (result only):

  $ duckgs query "SELECT 42" --silent

All queries are cached; the second run never touches the engine:

  $ duckgs query "FROM read_parquet('gs://bucket/**/*.parquet') LIMIT 1"
  $ duckgs query "FROM read_parquet('gs://bucket/**/*.parquet') LIMIT 1"

Simplify queries using placeholders:

  $ duckgs query "SELECT * FROM read_parquet('{bucket}')" \
        --bucket gs://bucket/**/*.parquet

Bind typed values, or verbatim SQL fragments:

  $ duckgs query "SELECT {cols} FROM read_parquet('{bucket}') WHERE id = {id}" \
        --bucket gs://bucket/**/*.parquet \
        --raw-param "cols=bidfloor, hour" \
        -p id=42

Or use env vars:

  $ DUCKGS_BUCKET=gs://bucket/**/*.parquet \
        duckgs query "SELECT count(*) FROM read_parquet('{bucket}')"

From a file (or stdin):

  $ echo "SELECT * FROM read_parquet('gs://bucket/*.parquet') LIMIT 1" > /tmp/query.sql
  $ duckgs query -f /tmp/query.sql
  $ duckgs query -f /tmp/query.sql --format csv > /tmp/out.csv

Manage the cache:

  $ duckgs cache list
  $ duckgs cache clear
  $ duckgs query "..." --no-cache
  $ duckgs query "..." --ttl 1h

See what ran:

  $ duckgs history -n 10
`

// NewExamplesCommand creates the examples command.
func NewExamplesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show usage examples",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), examplesText)
		},
	}
}
