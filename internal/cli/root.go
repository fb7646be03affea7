// Package cli provides the command-line interface for sqlforge.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlforge/internal/cli/commands"
	"github.com/leapstack-labs/sqlforge/internal/config"
	"github.com/leapstack-labs/sqlforge/pkg/adapter"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"

	// Adapters and dialects register themselves.
	_ "github.com/leapstack-labs/sqlforge/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/sqlforge/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/sqlforge/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/sqlforge/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/ansi"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/duckdb"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/mysql"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/snowflake"
	_ "github.com/leapstack-labs/sqlforge/pkg/dialects/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "sqlforge",
		Short: "sqlforge - SQL compiler and unit-of-work flush scheduler",
		Long: `sqlforge compiles SQL expression trees for several dialects and flushes
batches of pending row mutations in foreign key order.

Describe tables and mutations in a YAML plan file, inspect the ordered
statements with "sqlforge plan" and run them with "sqlforge flush".`,
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
			if cfg.Verbose {
				cfg.Log.Level = "debug"
			}
			logger := config.NewLogger(cmd.ErrOrStderr(), cfg.Log)

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}}\ncommit %s, built %s\n", GitCommit, BuildDate))

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./sqlforge.yaml)")
	pf.String("dialect", "", "SQL dialect used to compile statements")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (text|json)")
	pf.Int("cache-size", 0, "Compiled statement cache size (0 disables caching)")
	pf.Int("batch-size", 0, "Maximum rows per batched INSERT")
	pf.StringP("target", "t", "", "Target database type")
	pf.String("dsn", "", "Target connection string")
	pf.String("database", "", "Target database name or file path")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("dialect", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return dialect.List(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return adapter.ListAdapters(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewDialectsCommand())
	rootCmd.AddCommand(commands.NewPlanCommand())
	rootCmd.AddCommand(commands.NewFlushCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command. Cancelling ctx aborts a running flush,
// which then rolls back.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for sqlforge.

To load completions:

Bash:
  $ source <(sqlforge completion bash)

Zsh:
  $ sqlforge completion zsh > "${fpath[1]}/_sqlforge"

Fish:
  $ sqlforge completion fish | source

PowerShell:
  PS> sqlforge completion powershell | Out-String | Invoke-Expression
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
