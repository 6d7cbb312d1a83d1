package exitcode

import (
	"os"
	"strings"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates a run that did not fail (success, skipped or needs review)
	Success = 0

	// GeneralError indicates a failed run or a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates missing or invalid configuration
	ConfigError = 3

	// ShutdownFlag is OR'd into the code when the host should be powered off.
	// The wrapping scheduler script inspects this bit.
	ShutdownFlag = 64

	// Interrupted indicates the process was stopped by SIGINT/SIGTERM
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ForRun composes the exit code of a finished run.
func ForRun(failed, shutdown bool) int {
	code := Success
	if failed {
		code = GeneralError
	}
	if shutdown {
		code |= ShutdownFlag
	}
	return code
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	switch code := kerrors.CodeOf(err); {
	case code == kerrors.ErrCodeCancelled:
		return Interrupted
	case strings.HasPrefix(string(code), "CONFIG-"):
		return ConfigError
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts") {
		return UsageError
	}
	if strings.Contains(errMsg, "context canceled") {
		return Interrupted
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	if code != ShutdownFlag && code&ShutdownFlag != 0 {
		return GetExitCodeDescription(code&^ShutdownFlag) + " (shutdown requested)"
	}
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error"
	case ShutdownFlag:
		return "Success (shutdown requested)"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
