// Package cmd implements the wavekeeper command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/wavekeeper/internal/exitcode"
	"github.com/felixgeelhaar/wavekeeper/internal/ux"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wavekeeper",
		Short: "Scheduled stamina and daily-task keeper for Wuthering Waves",
		Long: `wavekeeper drives an automation runtime through the game's daily routine,
spends stamina before it overflows at the daily reset, farms echoes overnight
and reports every run to a spreadsheet, by email and to a local journal.

It is meant to be started by a scheduler. The exit code is 0 unless the run
failed (1); bit 64 is set when the run configuration asks for the machine to
be shut down afterwards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default is ./wavekeeper.yaml or ~/.config/wavekeeper/wavekeeper.yaml)")
	flags.String("env-file", ".env", "dotenv file read before the environment")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.Bool("no-color", false, "disable colored output")

	root.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err: err, usage: c.UsageString()}
	})

	root.AddCommand(
		newRunCmd(),
		newForecastCmd(),
		newConfigCmd(),
		newShutdownFlagCmd(),
		newHistoryCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// ExecuteContext runs the command line and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	root := NewRootCmd()
	return exitCode(root.ErrOrStderr(), root.ExecuteContext(ctx))
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return exitcode.Success
	}

	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}

	var usage *usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(w, "Error: %v\n\n%s", usage.err, usage.usage)
		return exitcode.UsageError
	}

	fmt.Fprintf(w, "Error: %v\n", ux.EnhanceError(err))
	return exitcode.DetermineExitCode(err)
}
