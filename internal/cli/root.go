// Package cli provides the command-line interface for leapdecide.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdecide/internal/cli/commands"
	"github.com/leapstack-labs/leapdecide/internal/config"
	"github.com/leapstack-labs/leapdecide/pkg/decide"
	"github.com/leapstack-labs/leapdecide/pkg/dialect"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// Exit codes returned by Execute's callers.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "leapdecide",
		Short: "leapdecide - policy to SQL decision compiler",
		Long: `leapdecide compiles declarative decision policies into a single SQL
SELECT that assigns an action id to every row of a fact table.

A policy names categorical columns, reusable boolean flags, lookup tables,
and an ordered decision table. The compiled query evaluates the decision
table as one CASE expression over the rows inside a recent time window,
rendered for PostgreSQL, BigQuery, or ClickHouse.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := cfg.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if used := config.GetConfigFileUsed(); used != "" {
				logger.Debug("using config file", "path", used)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.WithConfig(ctx, cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./leapdecide.yaml)")
	pf.StringP("dialect", "d", "", "Target SQL dialect (postgresql|bigquery|clickhouse)")
	pf.String("entry-point", "", "Compilation entry point")
	pf.Int("window-days", 0, "Time window in days")
	pf.String("row-id-column", "", "Row identifier column projected first")
	pf.Bool("transitive", false, "Expand flags that reference other flags")
	pf.Bool("group-flags", false, "Parenthesize multi-token flag substitutions")
	pf.Bool("canonicalize", false, "Validate and normalize the query before printing")
	pf.String("canonicalize-engine", "", "Canonicalization engine (duckdb|format)")
	pf.String("canonicalize-db", "", "DuckDB database used for canonicalization")
	pf.Bool("record", false, "Record compilations in the history store")
	pf.String("state", "", "Path to the history database")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (text|json)")
	pf.StringP("output", "o", "", "Output format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("entry-point", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return decide.EntryPoints(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("canonicalize-engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.EngineDuckDB, config.EngineFormat}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewCompileCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewLintCommand())
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command until it finishes or the process is
// interrupted, and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, rootCmd *cobra.Command, args []string, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

// ExitCode maps an error to a process exit code. Configuration mistakes
// exit with ExitUsage; everything else with ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if decide.IsConfigError(err) {
		return ExitUsage
	}
	return ExitFailure
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leapdecide.

To load completions:

Bash:
  $ source <(leapdecide completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ leapdecide completion bash > /etc/bash_completion.d/leapdecide
  # macOS:
  $ leapdecide completion bash > $(brew --prefix)/etc/bash_completion.d/leapdecide

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ leapdecide completion zsh > "${fpath[1]}/_leapdecide"

Fish:
  $ leapdecide completion fish | source

  # To load completions for each session, execute once:
  $ leapdecide completion fish > ~/.config/fish/completions/leapdecide.fish

PowerShell:
  PS> leapdecide completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
