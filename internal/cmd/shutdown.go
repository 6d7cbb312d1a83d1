package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/wavekeeper/internal/exitcode"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

func newShutdownFlagCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "shutdown-flag",
		Short: "Report whether the run configuration asks for a shutdown",
		Long: `Read the run configuration and report whether the machine should be shut
down after the given workflow. The exit code is 64 when it should and 0
otherwise, so schedulers can test it without running the workflow.`,
		Example: `  wavekeeper shutdown-flag --mode stamina || shutdown /s /t 60`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mode != "daily" && mode != "stamina" {
				return &usageError{err: fmt.Errorf("unknown mode %q (supported: daily, stamina)", mode), usage: cmd.UsageString()}
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := a.context(cmd.Context())
			rc := sheets.DefaultRunConfig()
			reporter, err := a.reporter(ctx)
			if err != nil {
				return err
			}
			if reporter != nil {
				got, err := reporter.RunConfig(ctx)
				switch {
				case err == nil:
					rc = got
				case !degradable(err):
					return err
				default:
					a.logger.WithError(err).Warn("run config unavailable, using defaults")
				}
			}

			shutdown := rc.ShutdownAfterDaily
			if mode == "stamina" {
				shutdown = rc.ShutdownAfterStamina
			}
			fmt.Fprintf(cmd.OutOrStdout(), "shutdown after %s: %t\n", mode, shutdown)
			if shutdown {
				return exitWith(exitcode.ShutdownFlag)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "daily", "workflow to check: daily or stamina")
	return cmd
}
