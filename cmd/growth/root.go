package main

import (
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/growth/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	dbPath    string
	formatArg string
	noColor   bool
	verbose   bool
)

// outputFormat is parsed from --format before any subcommand runs.
var outputFormat = cli.FormatText

var rootCmd = &cobra.Command{
	Use:   "growth",
	Short: "Experiment assignment, funnel analytics and strategy rollout",
	Long: `Growth assigns subjects to experiment variants, records funnel events,
compares conversion between variants and governs which version of each
strategy is active.

Every command reads the same configuration file and SQLite database, so
the CLI and a running "growth serve" can be used side by side.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			cli.DisableColor()
		}
		f, err := cli.ParseFormat(formatArg)
		if err != nil {
			return err
		}
		outputFormat = f
		return nil
	},
}

// Execute runs the root command and exits with a code derived from the
// error kind.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.Failure(os.Stderr, "%v", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "override storage.path")
	rootCmd.PersistentFlags().StringVarP(&formatArg, "format", "o", string(cli.FormatText), "output format (text, json, csv)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warn")
}
