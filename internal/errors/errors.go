package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Run errors (RUN-001 to RUN-099) abort a supervised run.
	ErrCodeCancelled         ErrorCode = "RUN-001"
	ErrCodeTimeout           ErrorCode = "RUN-002"
	ErrCodeTaskReportedError ErrorCode = "RUN-003"
	ErrCodeTaskControl       ErrorCode = "RUN-004"

	// Transport errors (TRANSPORT-001 to TRANSPORT-099) are logged and degrade.
	ErrCodeSheets  ErrorCode = "TRANSPORT-001"
	ErrCodeEmail   ErrorCode = "TRANSPORT-002"
	ErrCodeGameAPI ErrorCode = "TRANSPORT-003"
	ErrCodeRuntime ErrorCode = "TRANSPORT-004"
	ErrCodeWebhook ErrorCode = "TRANSPORT-005"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigMissing ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
)

// KeeperError is an error carrying a code, suggestions and an optional docs link.
type KeeperError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *KeeperError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *KeeperError) Unwrap() error {
	return e.Cause
}

// New creates a new KeeperError
func New(code ErrorCode, message string) *KeeperError {
	return &KeeperError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new KeeperError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *KeeperError {
	return &KeeperError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *KeeperError) WithSuggestion(suggestion string) *KeeperError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *KeeperError) WithSuggestions(suggestions ...string) *KeeperError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *KeeperError) WithDocs(url string) *KeeperError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the outermost KeeperError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ke *KeeperError
	if stderrors.As(err, &ke) {
		return ke.Code
	}
	return ""
}

// HasCode reports whether any KeeperError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var ke *KeeperError
		if !stderrors.As(err, &ke) {
			return false
		}
		if ke.Code == code {
			return true
		}
		err = ke.Cause
	}
	return false
}

// IsTransport reports whether err comes from a collaborator (sheet, mail, API, runtime).
func IsTransport(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "TRANSPORT-")
}

// IsRunAbort reports whether err is a cancellation, timeout or task-reported failure.
func IsRunAbort(err error) bool {
	switch CodeOf(err) {
	case ErrCodeCancelled, ErrCodeTimeout, ErrCodeTaskReportedError, ErrCodeTaskControl:
		return true
	}
	return false
}

// Common error constructors for frequently used errors

// NewCancelledError reports that the run was cancelled while task was active.
func NewCancelledError(task string) *KeeperError {
	return New(ErrCodeCancelled, fmt.Sprintf("task %q cancelled", task))
}

// NewTimeoutError reports that task did not finish within limit.
func NewTimeoutError(task string, limit fmt.Stringer) *KeeperError {
	return New(ErrCodeTimeout, fmt.Sprintf("task %q timed out after %s", task, limit)).
		WithSuggestion("Raise the task timeout in the configuration file").
		WithSuggestion("Check that the automation runtime is not stuck on a dialog")
}

// NewTaskReportedError carries the message the task stored under its "Error" key.
func NewTaskReportedError(task, message string) *KeeperError {
	return New(ErrCodeTaskReportedError, fmt.Sprintf("task %q failed: %s", task, message))
}

// NewTaskControlError reports that the runtime rejected an enable/disable/unpause request.
func NewTaskControlError(task, action string, cause error) *KeeperError {
	return Wrap(ErrCodeTaskControl, fmt.Sprintf("could not %s task %q", action, task), cause).
		WithSuggestion("Check that the automation runtime is running and reachable")
}

// NewConfigMissingError reports a required setting that was not provided.
func NewConfigMissingError(key, env string) *KeeperError {
	return New(ErrCodeConfigMissing, fmt.Sprintf("missing configuration: %s", key)).
		WithSuggestion(fmt.Sprintf("Set the %s environment variable or add %s to wavekeeper.yaml", env, key))
}

// NewConfigInvalidError reports a setting with an unusable value.
func NewConfigInvalidError(details string) *KeeperError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'wavekeeper config show' to inspect the effective configuration")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *KeeperError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}
