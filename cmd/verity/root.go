package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/verity/pkg/cli"
	"mercator-hq/verity/pkg/config"
	"mercator-hq/verity/pkg/telemetry/logging"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "verity",
		Short: "Verity - property validation with minimal failure trees",
		Long: `Verity validates documents against declarative rule sets.

Each rule set assigns a boolean rule (all / any / not / leaf constraints) to
a named property. For every property that fails, verity reports the minimal
rule tree responsible for the failure.

Configuration is read from --config (YAML) and VERITY_* environment variables.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "verbose output (debug logging)")

	rootCmd.AddCommand(
		newCheckCmd(flags),
		newLintCmd(flags),
		newServeCmd(flags),
		newHistoryCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := newRootCmd().Execute()
	if err != nil && !cli.IsSilent(err) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

// load reads configuration and builds the logger every command runs with.
// Logs go to stderr so command output on stdout stays machine-readable.
func (f *globalFlags) load(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(f.cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError(f.cfgFile, err.Error())
	}
	if f.verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.LoggingConfig(stderr))
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
