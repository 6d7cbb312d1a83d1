// Package hooks runs reporting hooks after a run: appending result rows,
// copying stamina to the Config worksheet, emailing a summary and calling
// webhooks. Hook failures are logged and never change a run's outcome.
package hooks

import (
	"context"
	"slices"
	"time"

	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// EventType represents the type of run event
type EventType string

const (
	EventRunComplete   EventType = "on_run_complete"
	EventRunSkipped    EventType = "on_run_skipped"
	EventRunFailed     EventType = "on_run_failed"
	EventFarmIteration EventType = "on_farm_iteration"
)

// RunEvents are the events carrying a RunResult.
var RunEvents = []EventType{EventRunComplete, EventRunSkipped, EventRunFailed}

// AllEvents lists every event type.
var AllEvents = append(slices.Clone(RunEvents), EventFarmIteration)

// Event represents a finished run or farm iteration
type Event struct {
	Type      EventType          `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Run       *ledger.RunResult  `json:"run,omitempty"`
	Farm      *ledger.FarmResult `json:"farm,omitempty"`
	// RunConfig is the configuration the run was started with, when known.
	RunConfig *sheets.RunConfig `json:"run_config,omitempty"`
}

// RunEvent wraps a closed RunResult in the event matching its status.
func RunEvent(res *ledger.RunResult, rc *sheets.RunConfig) *Event {
	typ := EventRunComplete
	switch res.Status {
	case ledger.StatusSkipped:
		typ = EventRunSkipped
	case ledger.StatusFailed, ledger.StatusRunning:
		typ = EventRunFailed
	}
	return &Event{Type: typ, Timestamp: time.Now(), Run: res, RunConfig: rc}
}

// FarmEvent wraps a closed FarmResult.
func FarmEvent(res *ledger.FarmResult) *Event {
	return &Event{Type: EventFarmIteration, Timestamp: time.Now(), Farm: res}
}

// ID returns the id of the record the event carries.
func (e *Event) ID() string {
	switch {
	case e.Run != nil:
		return e.Run.ID
	case e.Farm != nil:
		return e.Farm.ID
	}
	return ""
}

// Hook is the interface that all hooks must implement
type Hook interface {
	Name() string
	EventTypes() []EventType
	Execute(ctx context.Context, event *Event) error
	Enabled() bool
}

// HookConfig represents hook configuration
type HookConfig struct {
	Name    string      `yaml:"name" json:"name" mapstructure:"name"`
	Type    string      `yaml:"type" json:"type" mapstructure:"type"`
	Events  []EventType `yaml:"events" json:"events" mapstructure:"events"`
	Enabled bool        `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// Config contains hook-specific configuration
	Config map[string]any `yaml:"config" json:"config,omitempty" mapstructure:"config"`

	// Timeout for hook execution; zero uses DefaultTimeout
	Timeout time.Duration `yaml:"timeout" json:"timeout,omitempty" mapstructure:"timeout"`

	// FailureMode is "ignore" (debug log) or "warn" (warning log)
	FailureMode string `yaml:"failure_mode" json:"failure_mode,omitempty" mapstructure:"failure_mode"`
}

// ExecutionResult contains the result of hook execution
type ExecutionResult struct {
	HookName  string        `json:"hook_name"`
	EventType EventType     `json:"event_type"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// HookFactory creates hooks from configuration
type HookFactory func(config *HookConfig) (Hook, error)

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// ValidFailureModes defines valid failure modes
var ValidFailureModes = []string{"ignore", "warn"}

// IsValidFailureMode checks if a failure mode is valid
func IsValidFailureMode(mode string) bool {
	return slices.Contains(ValidFailureModes, mode)
}

// Built-in hook types.
const (
	TypeSheetAppend  = "sheet_append"
	TypeSheetStamina = "sheet_stamina"
	TypeMailgun      = "mailgun"
	TypeWebhook      = "webhook"
)

// DefaultConfigs returns the hooks used when none are configured: result
// rows and stamina cells when a spreadsheet is set up, and the summary email
// when Mailgun is.
func DefaultConfigs(sheetsEnabled, mailEnabled bool) []HookConfig {
	var cfgs []HookConfig
	if sheetsEnabled {
		cfgs = append(cfgs,
			HookConfig{Name: "sheet-rows", Type: TypeSheetAppend, Events: AllEvents, Enabled: true, FailureMode: "warn"},
			HookConfig{Name: "sheet-stamina", Type: TypeSheetStamina, Events: RunEvents, Enabled: true, FailureMode: "warn"},
		)
	}
	if mailEnabled {
		cfgs = append(cfgs,
			HookConfig{Name: "email", Type: TypeMailgun, Events: RunEvents, Enabled: true, FailureMode: "warn"})
	}
	return cfgs
}
