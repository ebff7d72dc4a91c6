package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maxgreco/duckgs/internal/cli/config"
	"github.com/maxgreco/duckgs/internal/placeholder"
	"github.com/maxgreco/duckgs/internal/runner"
	"github.com/maxgreco/duckgs/internal/state"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	QueryFile  string
	Params     []string
	RawParams  []string
	ParamsFile string
	TTL        time.Duration
	NoCache    bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Execute SQL against Parquet files in cloud storage",
		Long: `Execute a SQL query with the embedded DuckDB engine.

Queries can reference Parquet files in Google Cloud Storage directly with
read_parquet('gs://bucket/path/*.parquet'). Named {placeholders} in the
query text are substituted before execution; results are cached on disk so
an identical query skips the engine entirely.

When invoked without SQL on a terminal, enters interactive REPL mode.`,
		Example: `  # Quick start
  duckgs query "SELECT 42"

  # Query Parquet files in GCS (cached after the first run)
  duckgs query "FROM read_parquet('gs://bucket/**/*.parquet') LIMIT 1"

  # Placeholders: --bucket binds {bucket}, -p binds typed values
  duckgs query "SELECT * FROM read_parquet('{bucket}') WHERE id = {id}" \
      --bucket gs://bucket/**/*.parquet -p id=42

  # Read the query from a file, output as CSV
  duckgs query -f query.sql --format csv > out.csv`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.QueryFile, "query-file", "f", "", "Read the SQL query from a file")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "Bind a placeholder value as name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.RawParams, "raw-param", nil, "Bind a placeholder to a verbatim SQL fragment as name=value")
	cmd.Flags().StringVar(&opts.ParamsFile, "params-file", "", "Read placeholder bindings from a YAML mapping file")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "Expiry for the cached result (0 = use configured cache_ttl)")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "Bypass the result cache for this query")

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	cfg := config.Current()
	logger := newLogger(cfg)

	text, err := querySource(args, opts)
	if err != nil {
		return err
	}

	params, err := buildParams(cfg, opts)
	if err != nil {
		return err
	}

	store, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run := newRunner(cfg, store, logger)

	if text == "" {
		if !isTerminal(os.Stdin) {
			return errors.New("no query given: pass SQL as an argument, via --query-file, or on stdin")
		}
		return runREPL(cmd, cfg, run, logger, params)
	}

	// Prompt for any placeholders the flags left unbound, as long as we
	// have a terminal to ask on.
	if isTerminal(os.Stdin) {
		if err := promptUnbound(cmd, text, params); err != nil {
			return err
		}
	}

	return executeQuery(cmd, cfg, run, logger, text, params, opts)
}

func executeQuery(cmd *cobra.Command, cfg *config.Config, run *runner.Runner, logger *slog.Logger, text string, params map[string]any, opts *QueryOptions) error {
	ttl := opts.TTL
	if ttl == 0 {
		ttl = cfg.CacheTTL
	}
	runOpts := runner.Options{TTL: ttl, NoCache: opts.NoCache || cfg.NoCache}

	start := time.Now().UTC()
	res, info, err := run.Run(cmd.Context(), text, params, runOpts)

	// Placeholder failures never reach the engine and are not history.
	if info.SQL != "" {
		rec := &state.QueryRecord{
			SQL:        info.SQL,
			CacheKey:   info.Key,
			FromCache:  info.FromCache,
			DurationMS: info.Elapsed.Milliseconds(),
			StartedAt:  start,
		}
		if res != nil {
			rec.Rows = res.RowCount()
		}
		if err != nil {
			rec.Error = err.Error()
		}
		recordHistory(logger, cfg, rec)
	}

	if err != nil {
		return err
	}

	if !cfg.Silent {
		printRunInfo(cmd.ErrOrStderr(), cfg, info)
	}
	return renderResult(cmd.OutOrStdout(), res, cfg.OutputFormat)
}

// querySource picks the SQL text: argument, file, or piped stdin.
func querySource(args []string, opts *QueryOptions) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case opts.QueryFile != "":
		content, err := os.ReadFile(opts.QueryFile)
		if err != nil {
			return "", fmt.Errorf("failed to read query file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	case !isTerminal(os.Stdin):
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	default:
		return "", nil
	}
}

// buildParams assembles placeholder bindings from config, the params file,
// and flags, in increasing priority.
func buildParams(cfg *config.Config, opts *QueryOptions) (map[string]any, error) {
	params := make(map[string]any)

	// {bucket} comes from config or --bucket; it is spliced verbatim since
	// queries quote it themselves: read_parquet('{bucket}').
	if cfg.Bucket != "" {
		params["bucket"] = placeholder.Raw(ensureBucketURL(cfg.Bucket))
	}

	if opts.ParamsFile != "" {
		content, err := os.ReadFile(opts.ParamsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read params file: %w", err)
		}
		var fromFile map[string]any
		if err := yaml.Unmarshal(content, &fromFile); err != nil {
			return nil, fmt.Errorf("failed to parse params file: %w", err)
		}
		for name, val := range fromFile {
			params[name] = normalizeYAMLValue(val)
		}
	}

	for _, p := range opts.Params {
		name, val, err := splitParam(p)
		if err != nil {
			return nil, err
		}
		params[name] = inferValue(val)
	}
	for _, p := range opts.RawParams {
		name, val, err := splitParam(p)
		if err != nil {
			return nil, err
		}
		params[name] = placeholder.Raw(val)
	}

	return params, nil
}

func splitParam(p string) (string, string, error) {
	name, val, ok := strings.Cut(p, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid --param %q (expected name=value)", p)
	}
	return name, val, nil
}

// inferValue guesses the type of a flag-supplied binding: int, float, bool,
// or string.
func inferValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return s
}

// normalizeYAMLValue maps YAML scalar types onto placeholder value types.
func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case nil, bool, int64, float64, string, time.Time:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// promptUnbound asks the user for values of placeholders that remain
// unbound, mirroring the interactive mode of the original tool. Entered
// values are spliced verbatim.
func promptUnbound(cmd *cobra.Command, text string, params map[string]any) error {
	names, err := placeholder.Names(text)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for _, name := range names {
		if _, ok := params[name]; ok {
			continue
		}
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Value for {%s}: ", name)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read value for {%s}: %w", name, err)
		}
		params[name] = placeholder.Raw(strings.TrimSpace(line))
	}
	return nil
}

// ensureBucketURL prefixes bare bucket names with gs://.
func ensureBucketURL(bucket string) string {
	if bucket == "" || strings.Contains(bucket, "://") {
		return bucket
	}
	return "gs://" + bucket
}

func printRunInfo(w io.Writer, cfg *config.Config, info runner.RunInfo) {
	if info.FromCache {
		_, _ = fmt.Fprintf(w, "(cached, key %s)\n", shortKey(info.Key))
		return
	}
	_, _ = fmt.Fprintf(w, "(executed in %s, key %s)\n", info.Elapsed.Round(time.Millisecond), shortKey(info.Key))
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
