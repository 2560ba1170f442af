// Package cli provides the command-line interface for LeapBASIC.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/leapstack-labs/leapbasic/internal/cli/commands"
	"github.com/leapstack-labs/leapbasic/internal/cli/config"
	"github.com/leapstack-labs/leapbasic/pkg/stdlib"
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
		Use:   "leapbasic",
		Short: "LeapBASIC - BASIC built-ins for Starlark",
		Long: `LeapBASIC exposes the classic BASIC built-in library (PRINT, INPUT, LEFT$,
RND, LOAD, SAVE and friends) to Starlark scripts and an interactive REPL.

Built-ins that wait for the user, the clock or storage suspend without
blocking the interpreter, and CTRL+C interrupts them cleanly.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			logger := config.NewLogger(cfg, cmd.ErrOrStderr())

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{.Name}} {{.Version}}
commit %s, built %s
`, GitCommit, BuildDate))

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./leapbasic.yaml, searched upward)")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.BoolP("verbose", "v", false, "Verbose output (debug logging)")
	flags.StringP("output", "o", "", "Output format (text|json|yaml)")
	flags.StringSlice("modules", nil, "Only register these built-in modules")
	flags.String("drive", "", "Current drive for LOAD, SAVE, DIR and KILL")
	flags.Int64("seed", 0, "Seed for RND (0 seeds from the clock)")
	flags.String("prompt", "", "REPL prompt")
	flags.String("history", "", "REPL history file (- disables history)")
	flags.Int("columns", 0, "Console width when not attached to a terminal")
	flags.Int("lines", 0, "Console height when not attached to a terminal")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputText, config.OutputJSON, config.OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("modules", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return stdlib.ModuleNames(), cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(commands.NewREPLCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewCallCommand())
	rootCmd.AddCommand(commands.NewBuiltinsCommand())
	rootCmd.AddCommand(commands.NewDescribeCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for LeapBASIC.

To load completions:

Bash:
  $ source <(leapbasic completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ leapbasic completion bash > /etc/bash_completion.d/leapbasic
  # macOS:
  $ leapbasic completion bash > $(brew --prefix)/etc/bash_completion.d/leapbasic

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ leapbasic completion zsh > "${fpath[1]}/_leapbasic"

Fish:
  $ leapbasic completion fish | source

PowerShell:
  PS> leapbasic completion powershell | Out-String | Invoke-Expression
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
