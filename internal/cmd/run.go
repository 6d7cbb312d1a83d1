package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/wavekeeper/internal/orchestrator"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one workflow",
		Long: `Run one workflow against the automation runtime.

The exit code is 0 on success, 1 when the run failed, plus 64 when the run
configuration asks for a shutdown afterwards. Interrupted runs exit with 130.`,
		PersistentPreRunE: validateFormat,
	}
	cmd.PersistentFlags().StringP("format", "f", "text", "summary format: text, json, yaml")

	cmd.AddCommand(
		newRunWorkflowCmd("daily", "Log in and run the daily task", (*orchestrator.Orchestrator).Daily),
		newRunWorkflowCmd("stamina", "Spend stamina that would overflow before the daily reset", (*orchestrator.Orchestrator).Stamina),
		newRunFarmCmd(),
	)
	return cmd
}

type workflow func(*orchestrator.Orchestrator, context.Context) (*orchestrator.Report, error)

func newRunWorkflowCmd(name, short string, run workflow) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := a.context(cmd.Context())
			o, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			report, err := run(o, ctx)
			a.flush()
			if err != nil {
				return err
			}

			if err := a.Render(cmd, format, report, reportView{report}); err != nil {
				return err
			}
			return exitWith(report.ExitCode())
		},
	}
}

func newRunFarmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "farm",
		Short: "Farm and merge echoes until the configured stop time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := a.context(cmd.Context())
			o, err := a.orchestrator(ctx)
			if err != nil {
				return err
			}
			report, err := o.Farm(ctx)
			a.flush()
			if err != nil {
				return err
			}

			if err := a.Render(cmd, format, report, farmReportView{report}); err != nil {
				return err
			}
			return exitWith(report.ExitCode())
		},
	}
}
