package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/wavekeeper/internal/log"
)

// Executor executes hooks one after another.
type Executor struct {
	// defaultTimeout is used if hook doesn't specify one
	defaultTimeout time.Duration
	timeouts       map[string]time.Duration
	now            func() time.Time
}

// NewExecutor creates a new hook executor
func NewExecutor() *Executor {
	return &Executor{
		defaultTimeout: DefaultTimeout,
		timeouts:       map[string]time.Duration{},
		now:            time.Now,
	}
}

// SetDefaultTimeout sets the default timeout for hook execution
func (e *Executor) SetDefaultTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e.defaultTimeout = timeout
}

// SetTimeout overrides the timeout of one hook.
func (e *Executor) SetTimeout(hookName string, timeout time.Duration) {
	if timeout > 0 {
		e.timeouts[hookName] = timeout
	}
}

func (e *Executor) timeoutFor(hookName string) time.Duration {
	if d, ok := e.timeouts[hookName]; ok {
		return d
	}
	return e.defaultTimeout
}

// ExecuteAll runs hooks in order. A cancelled ctx stops the remaining hooks.
func (e *Executor) ExecuteAll(ctx context.Context, hooks []Hook, event *Event) []ExecutionResult {
	results := make([]ExecutionResult, 0, len(hooks))
	for _, h := range hooks {
		if ctx.Err() != nil {
			results = append(results, ExecutionResult{
				HookName:  h.Name(),
				EventType: event.Type,
				Error:     fmt.Sprintf("not run: %v", ctx.Err()),
				Timestamp: e.now(),
			})
			continue
		}
		results = append(results, e.Execute(ctx, h, event))
	}
	return results
}

// Execute executes a single hook under its timeout. Panics are converted
// into failed results.
func (e *Executor) Execute(ctx context.Context, hook Hook, event *Event) (result ExecutionResult) {
	result = ExecutionResult{
		HookName:  hook.Name(),
		EventType: event.Type,
		Timestamp: e.now(),
	}

	hookCtx, cancel := context.WithTimeout(ctx, e.timeoutFor(hook.Name()))
	defer cancel()

	start := e.now()
	defer func() {
		result.Duration = e.now().Sub(start)
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := hook.Execute(hookCtx, event); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

// HandleResults logs failed results at the level their failure mode asks for.
// It returns the number of failures.
func HandleResults(ctx context.Context, results []ExecutionResult, modes map[string]string) int {
	logger := log.FromContext(ctx).WithComponent("hooks")
	failures := 0
	for _, r := range results {
		if r.Success {
			logger.DebugContext(ctx, "hook succeeded", "hook", r.HookName, "event", string(r.EventType), "duration", r.Duration)
			continue
		}
		failures++
		args := []any{"hook", r.HookName, "event", string(r.EventType), "error", r.Error, "duration", r.Duration}
		if modes[r.HookName] == "ignore" {
			logger.DebugContext(ctx, "hook failed", args...)
		} else {
			logger.WarnContext(ctx, "hook failed", args...)
		}
	}
	return failures
}
