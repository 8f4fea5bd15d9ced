package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/growth/pkg/cli"
	"mercator-hq/growth/pkg/config"
	"mercator-hq/growth/pkg/growth/assignment"
	"mercator-hq/growth/pkg/growth/funnel"
	"mercator-hq/growth/pkg/growth/service"
)

var assignFlags struct {
	variants        []string
	strategyVersion string
}

var assignCmd = &cobra.Command{
	Use:   "assign EXPERIMENT SUBJECT",
	Short: "Assign a subject to an experiment variant",
	Long: `Assign a subject to a variant of an experiment. The first call stores the
assignment; later calls return it unchanged, whatever variants they name.

Examples:
  growth assign exp_quote user-1
  growth assign exp_checkout user-1 --variants control,one_click,express`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "assign", func(svc *service.Service) (any, error) {
			a, err := svc.AssignVariant(cmd.Context(), assignment.Request{
				ExperimentID:    args[0],
				SubjectID:       args[1],
				Variants:        assignFlags.variants,
				StrategyVersion: assignFlags.strategyVersion,
			})
			if err != nil {
				return nil, err
			}
			return cli.AssignmentView{Assignment: a}, nil
		})
	},
}

var eventFlags struct {
	experiment      string
	variant         string
	strategyVersion string
}

var eventCmd = &cobra.Command{
	Use:   "event SUBJECT STAGE",
	Short: "Record a funnel event",
	Long: `Record that a subject reached a funnel stage. With --experiment the event
is attributed to the subject's assigned variant unless --variant is given.

Examples:
  growth event user-1 inquiry --experiment exp_quote
  growth event user-1 ordered --experiment exp_quote --strategy-version v2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "event", func(svc *service.Service) (any, error) {
			e, err := svc.RecordEvent(cmd.Context(), funnel.EventRequest{
				SubjectID:       args[0],
				Stage:           args[1],
				ExperimentID:    eventFlags.experiment,
				Variant:         eventFlags.variant,
				StrategyVersion: eventFlags.strategyVersion,
			})
			if err != nil {
				return nil, err
			}
			return cli.EventView{Event: e}, nil
		})
	},
}

var funnelFlags struct {
	days   int
	bucket string
}

var funnelCmd = &cobra.Command{
	Use:   "funnel",
	Short: "Show distinct subjects per stage over time",
	Long: `Count distinct subjects per funnel stage, bucketed by UTC day or ISO week,
over the last --days days.

Examples:
  growth funnel
  growth funnel --days 28 --bucket week --format csv`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "funnel", func(svc *service.Service) (any, error) {
			stats, err := svc.FunnelStats(cmd.Context(), funnelFlags.days, funnelFlags.bucket)
			if err != nil {
				return nil, err
			}
			return cli.FunnelView{Stats: stats}, nil
		})
	},
}

var compareFlags struct {
	from string
	to   string
}

var compareCmd = &cobra.Command{
	Use:   "compare EXPERIMENT",
	Short: "Compare conversion between experiment variants",
	Long: `Compare the conversion from one funnel stage to another across the
variants of an experiment. With two or more variants a two-proportion
z-test p-value is reported for the first two.

Examples:
  growth compare exp_quote
  growth compare exp_quote --from viewed --to checkout --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, "compare", func(svc *service.Service) (any, error) {
			cmp, err := svc.CompareVariants(cmd.Context(), args[0], compareFlags.from, compareFlags.to)
			if err != nil {
				return nil, err
			}
			return cli.ComparisonView{Comparison: cmp}, nil
		})
	},
}

func init() {
	assignCmd.Flags().StringSliceVar(&assignFlags.variants, "variants", nil, "comma-separated variant labels (default from experiments.default_variants)")
	assignCmd.Flags().StringVar(&assignFlags.strategyVersion, "strategy-version", "", "tag the assignment with a strategy version")

	eventCmd.Flags().StringVar(&eventFlags.experiment, "experiment", "", "experiment to attribute the event to")
	eventCmd.Flags().StringVar(&eventFlags.variant, "variant", "", "explicit variant (overrides the stored assignment)")
	eventCmd.Flags().StringVar(&eventFlags.strategyVersion, "strategy-version", "", "strategy version in effect")

	funnelCmd.Flags().IntVar(&funnelFlags.days, "days", config.DefaultFunnelDays, "window size in days")
	funnelCmd.Flags().StringVar(&funnelFlags.bucket, "bucket", config.DefaultFunnelBucket, "bucket granularity (day or week)")

	compareCmd.Flags().StringVar(&compareFlags.from, "from", "", "denominator stage (default from experiments.default_from_stage)")
	compareCmd.Flags().StringVar(&compareFlags.to, "to", "", "numerator stage (default from experiments.default_to_stage)")

	rootCmd.AddCommand(assignCmd, eventCmd, funnelCmd, compareCmd)
}
