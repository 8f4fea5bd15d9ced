package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/growth/pkg/cli"
	"mercator-hq/growth/pkg/growth/rollout"
	"mercator-hq/growth/pkg/growth/service"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage strategy versions",
	Long: `Register strategy versions, choose the active one and roll back to the
last known-good baseline.`,
}

var strategySetFlags struct {
	active   bool
	baseline bool
}

var strategySetCmd = &cobra.Command{
	Use:   "set TYPE VERSION",
	Short: "Register a version and optionally activate it",
	Long: `Register a strategy version. --active makes it the only active version of
its type; --baseline marks it as a rollback target. Prints the active
version afterwards.

Examples:
  growth strategy set pricing v1 --active --baseline
  growth strategy set pricing v2 --active`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "strategy set", func(svc *service.Service) (any, error) {
			active, err := svc.SetStrategyVersion(cmd.Context(), args[0], args[1], rollout.SetOptions{
				Active:   strategySetFlags.active,
				Baseline: strategySetFlags.baseline,
			})
			if err != nil {
				return nil, err
			}
			warnIfAbsent(cmd, active == nil, "No active version for %s", args[0])
			return cli.StrategyView{Version: active}, nil
		})
	},
}

var strategyRollbackCmd = &cobra.Command{
	Use:   "rollback TYPE",
	Short: "Activate the most recent baseline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "strategy rollback", func(svc *service.Service) (any, error) {
			restored, err := svc.RollbackToBaseline(cmd.Context(), args[0])
			if err != nil {
				return nil, err
			}
			warnIfAbsent(cmd, restored == nil, "No baseline for %s, nothing changed", args[0])
			return cli.StrategyView{Version: restored}, nil
		})
	},
}

var strategyActiveCmd = &cobra.Command{
	Use:   "active TYPE",
	Short: "Show the active version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "strategy active", func(svc *service.Service) (any, error) {
			active, err := svc.GetActiveStrategy(cmd.Context(), args[0])
			if err != nil {
				return nil, err
			}
			warnIfAbsent(cmd, active == nil, "No active version for %s", args[0])
			return cli.StrategyView{Version: active}, nil
		})
	},
}

var strategyListCmd = &cobra.Command{
	Use:   "list TYPE",
	Short: "List every version, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "strategy list", func(svc *service.Service) (any, error) {
			versions, err := svc.StrategyVersions(cmd.Context(), args[0])
			if err != nil {
				return nil, err
			}
			return cli.StrategyListView{Versions: versions}, nil
		})
	},
}

// warnIfAbsent notes an empty result on stderr for text output, where a
// bare header would otherwise be ambiguous.
func warnIfAbsent(cmd *cobra.Command, absent bool, format string, args ...any) {
	if absent && outputFormat == cli.FormatText {
		cli.Warning(cmd.ErrOrStderr(), format, args...)
	}
}

func init() {
	strategySetCmd.Flags().BoolVar(&strategySetFlags.active, "active", false, "make this the active version")
	strategySetCmd.Flags().BoolVar(&strategySetFlags.baseline, "baseline", false, "mark this version as a baseline")

	strategyCmd.AddCommand(strategySetCmd, strategyRollbackCmd, strategyActiveCmd, strategyListCmd)
	rootCmd.AddCommand(strategyCmd)
}
