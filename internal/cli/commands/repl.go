package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/maxgreco/duckgs/internal/cli/config"
	"github.com/maxgreco/duckgs/internal/placeholder"
	"github.com/maxgreco/duckgs/internal/runner"
	"github.com/spf13/cobra"
)

// NewREPLCommand creates the repl command. `duckgs query` with no SQL on
// a terminal lands in the same loop.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive SQL session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Current()
			logger := newLogger(cfg)

			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			params := map[string]any{}
			if cfg.Bucket != "" {
				params["bucket"] = placeholder.Raw(ensureBucketURL(cfg.Bucket))
			}
			return runREPL(cmd, cfg, newRunner(cfg, store, logger), logger, params)
		},
	}
}

// runREPL starts an interactive session against the runner, so REPL
// queries get the same placeholder substitution and result caching as
// one-shot invocations.
func runREPL(cmd *cobra.Command, cfg *config.Config, run *runner.Runner, logger *slog.Logger, params map[string]any) error {
	historyFile := filepath.Join(filepath.Dir(cfg.CacheDir), "repl_history")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "duckgs> ",
		HistoryFile:     historyFile,
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "duckgs REPL")
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt("duckgs> ")
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") && buf.Len() == 0 {
			if quit := handleDotCommand(cmd, cfg, line); quit {
				break
			}
			continue
		}

		// Accumulate multi-line SQL until a terminating semicolon.
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt("   ...> ")
			continue
		}
		rl.SetPrompt("duckgs> ")

		query := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		// Same path as a one-shot invocation, so REPL runs land in the
		// query history too.
		if err := executeQuery(cmd, cfg, run, logger, query, params, &QueryOptions{}); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// handleDotCommand runs a REPL dot-command; it returns true on quit.
func handleDotCommand(cmd *cobra.Command, cfg *config.Config, line string) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".cache":
		if err := renderCacheEntries(cmd, cfg); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}

	case ".clear":
		fmt.Print("\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Unknown command: %s (type .help for commands)\n", line)
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .cache          List cached query results
  .clear          Clear the screen
  .quit / .exit   Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - {placeholders} bound via flags or config work here too
  - Use arrow keys to navigate history
`
	_, _ = fmt.Fprintln(w, help)
}

func replCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("SELECT"),
		readline.PcItem("FROM"),
		readline.PcItem("read_parquet('"),
		readline.PcItem(".help"),
		readline.PcItem(".cache"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
