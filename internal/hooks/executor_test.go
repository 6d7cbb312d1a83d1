package hooks

import (
	"context"
	"strings"
	"testing"
	"time"
)

type funcHook struct {
	name string
	fn   func(ctx context.Context) error
}

func (f *funcHook) Name() string                               { return f.name }
func (f *funcHook) EventTypes() []EventType                    { return AllEvents }
func (f *funcHook) Enabled() bool                              { return true }
func (f *funcHook) Execute(ctx context.Context, _ *Event) error { return f.fn(ctx) }

func TestExecutorTimeout(t *testing.T) {
	e := NewExecutor()
	e.SetTimeout("slow", 10*time.Millisecond)

	slow := &funcHook{name: "slow", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	start := time.Now()
	result := e.Execute(context.Background(), slow, &Event{Type: EventRunComplete})
	if result.Success {
		t.Error("expected timeout failure")
	}
	if !strings.Contains(result.Error, "deadline") {
		t.Errorf("unexpected error %q", result.Error)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("hook timeout not applied")
	}
}

func TestExecutorRecoversPanics(t *testing.T) {
	boom := &funcHook{name: "boom", fn: func(context.Context) error { panic("nil sheet") }}

	result := NewExecutor().Execute(context.Background(), boom, &Event{Type: EventRunFailed})
	if result.Success {
		t.Error("panicking hook reported success")
	}
	if result.Error != "panic: nil sheet" {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestExecuteAllAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran []string
	mk := func(name string, cancelAfter bool) Hook {
		return &funcHook{name: name, fn: func(context.Context) error {
			ran = append(ran, name)
			if cancelAfter {
				cancel()
			}
			return nil
		}}
	}

	results := NewExecutor().ExecuteAll(ctx, []Hook{mk("a", true), mk("b", false)}, &Event{Type: EventRunComplete})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if len(ran) != 1 || ran[0] != "a" {
		t.Errorf("ran = %v, want [a]", ran)
	}
	if results[1].Success {
		t.Error("skipped hook reported success")
	}
}

func TestHandleResults(t *testing.T) {
	results := []ExecutionResult{
		{HookName: "a", Success: true},
		{HookName: "b", Error: "x"},
		{HookName: "c", Error: "y"},
	}
	if n := HandleResults(context.Background(), results, map[string]string{"b": "ignore"}); n != 2 {
		t.Errorf("failures = %d, want 2", n)
	}
}
