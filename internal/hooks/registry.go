package hooks

import (
	"context"
	"fmt"
	"sync"
)

// Registry manages hooks and their lifecycle
type Registry struct {
	mu sync.RWMutex

	// hooks maps event types to registered hooks, in registration order
	hooks map[EventType][]Hook

	// factories maps hook types to their factory functions
	factories map[string]HookFactory

	// modes holds each hook's failure mode
	modes map[string]string

	executor *Executor
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		hooks:     make(map[EventType][]Hook),
		factories: make(map[string]HookFactory),
		modes:     make(map[string]string),
		executor:  NewExecutor(),
	}
}

// RegisterFactory registers a hook factory
func (r *Registry) RegisterFactory(hookType string, factory HookFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[hookType] = factory
}

// Register adds a hook to the registry. Disabled hooks are ignored.
func (r *Registry) Register(hook Hook) error {
	if hook == nil {
		return fmt.Errorf("hook cannot be nil")
	}
	if !hook.Enabled() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, eventType := range hook.EventTypes() {
		r.hooks[eventType] = append(r.hooks[eventType], hook)
	}
	return nil
}

// RegisterFromConfig creates and registers a hook from configuration
func (r *Registry) RegisterFromConfig(config *HookConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if !config.Enabled {
		return nil
	}
	if config.FailureMode != "" && !IsValidFailureMode(config.FailureMode) {
		return fmt.Errorf("hook %s: invalid failure mode %q", config.Name, config.FailureMode)
	}

	r.mu.RLock()
	factory, exists := r.factories[config.Type]
	r.mu.RUnlock()
	if !exists {
		return fmt.Errorf("unknown hook type: %s", config.Type)
	}

	hook, err := factory(config)
	if err != nil {
		return fmt.Errorf("failed to create hook %s: %w", config.Name, err)
	}

	r.mu.Lock()
	r.modes[config.Name] = config.FailureMode
	r.executor.SetTimeout(config.Name, config.Timeout)
	r.mu.Unlock()

	return r.Register(hook)
}

// RegisterAll registers every config, stopping at the first error.
func (r *Registry) RegisterAll(configs []HookConfig) error {
	for i := range configs {
		if err := r.RegisterFromConfig(&configs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Trigger executes all hooks registered for the event and logs failures.
func (r *Registry) Trigger(ctx context.Context, event *Event) []ExecutionResult {
	r.mu.RLock()
	hooks := r.hooks[event.Type]
	modes := r.modes
	r.mu.RUnlock()

	if len(hooks) == 0 {
		return nil
	}
	results := r.executor.ExecuteAll(ctx, hooks, event)
	HandleResults(ctx, results, modes)
	return results
}

// HasHooksFor checks if there are any hooks registered for an event type
func (r *Registry) HasHooksFor(eventType EventType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks[eventType]) > 0
}

// Count returns the number of distinct registered hooks
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, hooks := range r.hooks {
		for _, hook := range hooks {
			seen[hook.Name()] = true
		}
	}
	return len(seen)
}
