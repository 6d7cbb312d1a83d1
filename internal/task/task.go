// Package task defines the capabilities wavekeeper needs from the automation
// runtime: task handles that can be switched on and off, and the executor
// that runs them.
package task

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrorKey is the info entry a task sets when it fails.
const ErrorKey = "Error"

// Info is the free-form key/value map a task publishes while running.
type Info map[string]any

// Error returns the message stored under ErrorKey, if any.
func (i Info) Error() (string, bool) {
	v, ok := i[ErrorKey]
	if !ok || v == nil {
		return "", false
	}
	msg := fmt.Sprint(v)
	if msg == "" {
		return "", false
	}
	return msg, true
}

// Int returns the value under key as an int. Numbers, numeric strings and
// floats with no fractional part are accepted.
func (i Info) Int(key string) (int, bool) {
	v, ok := i[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// IntPtr is Int returning nil when the value is absent or not integral.
func (i Info) IntPtr(key string) *int {
	if n, ok := i.Int(key); ok {
		return &n
	}
	return nil
}

// FirstInt returns the first key that holds an integer.
func (i Info) FirstInt(keys ...string) *int {
	for _, k := range keys {
		if p := i.IntPtr(k); p != nil {
			return p
		}
	}
	return nil
}

// Status is a snapshot of a task's flags and info.
type Status struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
	Info    Info `json:"info"`
}

// Task is a handle to a long-running unit of work inside the runtime.
type Task interface {
	Name() string
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	Unpause(ctx context.Context) error
	Status(ctx context.Context) (Status, error)
	// SetRunning updates the task's running flag.
	SetRunning(ctx context.Context, running bool) error
}

// Executor is the runtime session that schedules tasks.
type Executor interface {
	// ExitRequested reports whether the runtime-wide cancellation signal is set.
	ExitRequested(ctx context.Context) (bool, error)
	// RequestExit sets the cancellation signal.
	RequestExit(ctx context.Context) error
	// CurrentTask returns the name of the task being executed, or "" when idle.
	CurrentTask(ctx context.Context) (string, error)
}
