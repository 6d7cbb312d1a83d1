// Package tui holds the interactive terminal prompts.
package tui

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/wavekeeper/internal/config"
	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// SetupAnswers are the values asked for by the setup form. Numbers are
// kept as text while editing.
type SetupAnswers struct {
	RuntimeURL      string
	SpreadsheetID   string
	CredentialsFile string
	Layout          string
	MailDomain      string
	MailRecipient   string
	Target          string
	BackupWeight    string
	BackupBasis     string
	FarmStopAt      string
	ShutdownAfter   bool
}

// AnswersFrom prefills the form from cfg.
func AnswersFrom(cfg *config.Config) *SetupAnswers {
	return &SetupAnswers{
		RuntimeURL:      cfg.Runtime.URL,
		SpreadsheetID:   cfg.Sheets.SpreadsheetID,
		CredentialsFile: cfg.Sheets.CredentialsFile,
		Layout:          string(cfg.Sheets.Layout),
		MailDomain:      cfg.Mailgun.Domain,
		MailRecipient:   cfg.Mailgun.Recipient,
		Target:          strconv.Itoa(cfg.Policy.Target),
		BackupWeight:    strconv.Itoa(cfg.Policy.BackupWeight),
		BackupBasis:     string(cfg.Policy.BackupBasis),
		FarmStopAt:      cfg.Farm.StopAt,
		ShutdownAfter:   cfg.Farm.ShutdownAfter,
	}
}

// Apply copies the answers into cfg and validates the result.
func (a *SetupAnswers) Apply(cfg *config.Config) error {
	target, err := nonNegative(a.Target)
	if err != nil {
		return kerrors.NewConfigInvalidError("policy.target: " + err.Error())
	}
	weight, err := nonNegative(a.BackupWeight)
	if err != nil {
		return kerrors.NewConfigInvalidError("policy.backup_weight: " + err.Error())
	}
	if err := validURL(a.RuntimeURL); err != nil {
		return kerrors.NewConfigInvalidError("runtime.url: " + err.Error())
	}

	cfg.Runtime.URL = strings.TrimSpace(a.RuntimeURL)
	cfg.Sheets.SpreadsheetID = strings.TrimSpace(a.SpreadsheetID)
	cfg.Sheets.CredentialsFile = strings.TrimSpace(a.CredentialsFile)
	cfg.Sheets.Layout = sheets.Layout(a.Layout)
	cfg.Mailgun.Domain = strings.TrimSpace(a.MailDomain)
	cfg.Mailgun.Recipient = strings.TrimSpace(a.MailRecipient)
	cfg.Policy.Target = target
	cfg.Policy.BackupWeight = weight
	cfg.Policy.BackupBasis = forecast.BackupBasis(a.BackupBasis)
	cfg.Farm.StopAt = strings.TrimSpace(a.FarmStopAt)
	cfg.Farm.ShutdownAfter = a.ShutdownAfter
	return cfg.Validate()
}

func nonNegative(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

func validURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("enter an absolute URL such as http://127.0.0.1:8765")
	}
	return nil
}

func validClock(s string) error {
	_, _, err := forecast.ParseClock(strings.TrimSpace(s))
	return err
}

func validNumber(s string) error {
	_, err := nonNegative(s)
	return err
}

// SetupForm builds the form editing a.
func SetupForm(a *SetupAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Automation runtime URL").
				Description("The bridge that drives the game client").
				Value(&a.RuntimeURL).
				Validate(validURL),
		).Title("Runtime"),

		huh.NewGroup(
			huh.NewInput().
				Title("Spreadsheet ID").
				Description("Leave empty to run without the control panel").
				Value(&a.SpreadsheetID),
			huh.NewInput().
				Title("Service account key file").
				Description("Or set GOOGLE_SERVICE_ACCOUNT_JSON in .env").
				Value(&a.CredentialsFile),
			huh.NewSelect[string]().
				Title("Config sheet layout").
				Options(
					huh.NewOption("Fixed cells", string(sheets.LayoutCells)),
					huh.NewOption("Label/value pairs", string(sheets.LayoutLabels)),
				).
				Value(&a.Layout),
		).Title("Spreadsheet"),

		huh.NewGroup(
			huh.NewInput().
				Title("Mailgun domain").
				Description("Leave empty to disable mail; the API key belongs in .env").
				Value(&a.MailDomain),
			huh.NewInput().
				Title("Mail recipient").
				Value(&a.MailRecipient),
		).Title("Mail"),

		huh.NewGroup(
			huh.NewInput().
				Title("Target level after spending").
				Value(&a.Target).
				Validate(validNumber),
			huh.NewInput().
				Title("Backup stamina weight").
				Value(&a.BackupWeight).
				Validate(validNumber),
			huh.NewSelect[string]().
				Title("Backup basis").
				Options(
					huh.NewOption("Backup level at reset", string(forecast.BasisAbsolute)),
					huh.NewOption("Backup growth until reset", string(forecast.BasisGrowth)),
				).
				Value(&a.BackupBasis),
		).Title("Burn policy"),

		huh.NewGroup(
			huh.NewInput().
				Title("Stop farming at (HH:MM, reset zone)").
				Value(&a.FarmStopAt).
				Validate(validClock),
			huh.NewConfirm().
				Title("Shut down after the farm session?").
				Affirmative("Yes").
				Negative("No").
				Value(&a.ShutdownAfter),
		).Title("Farm"),
	)
}

// RunSetup shows the form. Aborting it is a cancellation.
func RunSetup(a *SetupAnswers) error {
	if err := SetupForm(a).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return kerrors.NewCancelledError("setup")
		}
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// IsInteractive returns true if stdin is a terminal.
func IsInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// ShouldPrompt is false in CI and when stdin is not a terminal.
func ShouldPrompt() bool {
	for _, name := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"} {
		if os.Getenv(name) != "" {
			return false
		}
	}
	return IsInteractive()
}
