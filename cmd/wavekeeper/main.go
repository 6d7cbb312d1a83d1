package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/wavekeeper/internal/cmd"
	"github.com/felixgeelhaar/wavekeeper/internal/exitcode"
)

func main() {
	// Cancelled on Ctrl+C and on the scheduler's stop signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cmd.ExecuteContext(ctx)
	if ctx.Err() != nil && code == exitcode.Interrupted {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled")
	}
	stop()
	exitcode.Exit(code)
}
