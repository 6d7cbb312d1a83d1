package cmd

import (
	"fmt"

	"github.com/felixgeelhaar/wavekeeper/internal/exitcode"
)

// ExitError ends a command that finished its work with a non-zero exit
// code. Nothing is printed for it.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d (%s)", e.Code, exitcode.GetExitCodeDescription(e.Code))
}

// exitWith returns nil for a zero code.
func exitWith(code int) error {
	if code == exitcode.Success {
		return nil
	}
	return &ExitError{Code: code}
}

type usageError struct {
	err   error
	usage string
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }
