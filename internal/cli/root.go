// Package cli provides the command-line interface for the onifier.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/commands"
	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/config"
	"github.com/Terr/phoenix-wright-2-onifier/internal/cli/output"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// ErrUsage is returned when the command was run without arguments; the
// help text has already been printed.
var ErrUsage = errors.New("missing arguments")

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pw2-onifier <pw1-rom> <pw2-rom> <output-rom>",
		Short: `"Phoenix Wright 2: Justice For All" Onifier`,
		Long: `Improves a Phoenix Wright 2 ROM by copying the better music from a
Phoenix Wright 1 ROM. Take that!

The sequences, banks and wave archives of the configured tracks are copied
out of the first game's sound archive and relinked into the second game's.
The result is written to a new file; existing files are never overwritten.`,
		Example: `  # Use the built-in track mapping
  pw2-onifier pw1.nds pw2.nds pw2-onified.nds

  # Only replace the courtroom theme
  pw2-onifier --track BGM013=BGM069 pw1.nds pw2.nds pw2-court.nds`,
		Version: Version,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return ErrUsage
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg)
			ctx := context.WithValue(cmd.Context(), config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		RunE:          commands.RunOnify,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./onifier.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (text|json)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|json)")
	rootCmd.PersistentFlags().String("sdat-path", "", "Path of the sound archive inside the ROMs (default: sound_data.sdat)")
	rootCmd.PersistentFlags().StringSlice("track", nil, "Track mapping FROM=TO; repeat to replace the configured mapping")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger builds the slog logger for a run. Logs go to stderr so they
// never mix with command output.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Execute runs the root command with args. Errors are printed to stderr as
// a single "Hold it!" line.
func Execute(args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, ErrUsage) {
		output.NewRenderer(stdout, stderr, output.ModeAuto).Error(fmt.Sprintf("Hold it! %v", err))
	}
	return err
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for pw2-onifier.

Bash:
  $ source <(pw2-onifier completion bash)

Zsh:
  $ pw2-onifier completion zsh > "${fpath[1]}/_pw2-onifier"

Fish:
  $ pw2-onifier completion fish | source

PowerShell:
  PS> pw2-onifier completion powershell | Out-String | Invoke-Expression
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
}
