package ux

import (
	stderrors "errors"
	"fmt"
	"strings"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
)

// ErrorWithSuggestion is an error followed by a recovery hint.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
}

func (e *ErrorWithSuggestion) Unwrap() error { return e.Err }

// NewErrorWithSuggestion returns nil for a nil err.
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{Err: err, Suggestion: suggestion}
}

// hint matches errors by code, message fragment or both. An empty field
// matches anything.
type hint struct {
	code     kerrors.ErrorCode
	contains string
	text     string
}

func (h hint) matches(err error, msg string) bool {
	if h.code != "" && !kerrors.HasCode(err, h.code) {
		return false
	}
	return h.contains == "" || strings.Contains(msg, h.contains)
}

// hints are tried in order; the first match wins.
var hints = []hint{
	{code: kerrors.ErrCodeRuntime, text: "Start the automation runtime and check runtime.url in wavekeeper.yaml"},
	{contains: "connection refused", text: "Start the automation runtime and check runtime.url in wavekeeper.yaml"},
	{code: kerrors.ErrCodeSheets, contains: "403", text: "Share the spreadsheet with the service account's client_email as an editor"},
	{code: kerrors.ErrCodeSheets, text: "Check GOOGLE_SHEET_ID and that the Config, DailyRuns, StaminaRuns and 5to1 worksheets exist"},
	{code: kerrors.ErrCodeEmail, contains: "401", text: "Check MAILGUN_API_KEY; Mailgun rejected the credentials"},
	{code: kerrors.ErrCodeGameAPI, text: "Refresh WAVES_TOKEN from the companion app; tokens expire"},
	{code: kerrors.ErrCodeWebhook, text: "Check the webhook URL in the hooks section of wavekeeper.yaml"},
	{contains: "permission denied", text: "Check file permissions for the journal directory and metrics textfile"},
}

// EnhanceError adds a suggestion to errors that do not carry one.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	var ke *kerrors.KeeperError
	if stderrors.As(err, &ke) && len(ke.Suggestions) > 0 {
		return err
	}
	msg := err.Error()
	for _, h := range hints {
		if h.matches(err, msg) {
			return NewErrorWithSuggestion(err, h.text)
		}
	}
	return err
}
