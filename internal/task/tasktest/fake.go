// Package tasktest provides scripted in-memory tasks and executors.
package tasktest

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/felixgeelhaar/wavekeeper/internal/task"
)

// Run scripts one enable cycle of a Task.
type Run struct {
	// Duration after enable at which the task disables itself. Zero means
	// the task never finishes on its own.
	Duration time.Duration
	// Info is published when the cycle starts.
	Info task.Info
	// Error, when set, is stored under task.ErrorKey on completion.
	Error string
	// Linger keeps the executor reporting the task as current after it
	// disabled itself.
	Linger time.Duration
}

// Task is a scripted task.Task. Each Enable starts the next Run; the last
// Run repeats.
type Task struct {
	mu          sync.Mutex
	name        string
	runs        []Run
	cycle       int
	enabled     bool
	running     bool
	info        task.Info
	startedAt   time.Time
	completedAt time.Time
	linger      time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
	// StatusErr is returned by Status while non-nil.
	StatusErr error
	// EnableErr is returned by Enable while non-nil.
	EnableErr error

	Enables  int
	Disables int
	Unpauses int
}

// NewTask returns a scripted task.
func NewTask(name string, runs ...Run) *Task {
	if len(runs) == 0 {
		runs = []Run{{}}
	}
	return &Task{name: name, runs: runs, info: task.Info{}}
}

func (t *Task) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return time.Now()
}

func (t *Task) currentRun() Run {
	idx := t.cycle - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(t.runs) {
		idx = len(t.runs) - 1
	}
	return t.runs[idx]
}

// advance applies self-completion. Callers hold t.mu.
func (t *Task) advance(now time.Time) {
	if !t.enabled || t.cycle == 0 {
		return
	}
	run := t.currentRun()
	if run.Duration <= 0 || now.Sub(t.startedAt) < run.Duration {
		return
	}
	t.enabled = false
	t.completedAt = now
	t.linger = run.Linger
	if run.Error != "" {
		t.info[task.ErrorKey] = run.Error
	}
}

// Name implements task.Task.
func (t *Task) Name() string { return t.name }

// Enable implements task.Task.
func (t *Task) Enable(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.EnableErr != nil {
		return t.EnableErr
	}
	t.Enables++
	t.cycle++
	t.enabled = true
	t.running = true
	t.startedAt = t.now()
	t.completedAt = time.Time{}
	t.info = task.Info{}
	maps.Copy(t.info, t.currentRun().Info)
	return nil
}

// Disable implements task.Task.
func (t *Task) Disable(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Disables++
	if t.enabled {
		t.enabled = false
		t.completedAt = t.now()
		t.linger = 0
	}
	return nil
}

// Unpause implements task.Task.
func (t *Task) Unpause(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Unpauses++
	return nil
}

// Status implements task.Task.
func (t *Task) Status(context.Context) (task.Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.StatusErr != nil {
		return task.Status{}, t.StatusErr
	}
	t.advance(t.now())
	return task.Status{Enabled: t.enabled, Running: t.running, Info: maps.Clone(t.info)}, nil
}

// SetStatusErr changes StatusErr while the task is in use.
func (t *Task) SetStatusErr(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.StatusErr = err
}

// Counts returns the Enable, Disable and Unpause call counts.
func (t *Task) Counts() (enables, disables, unpauses int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Enables, t.Disables, t.Unpauses
}

// SetRunning implements task.Task.
func (t *Task) SetRunning(_ context.Context, running bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = running
	return nil
}

// Running reports the running flag.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Enabled reports the enabled flag after applying self-completion.
func (t *Task) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance(t.now())
	return t.enabled
}

func (t *Task) current(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.advance(now)
	if t.enabled {
		return true
	}
	return t.linger > 0 && !t.completedAt.IsZero() && now.Before(t.completedAt.Add(t.linger))
}

// Executor is a task.Executor over a fixed set of scripted tasks.
type Executor struct {
	mu    sync.Mutex
	tasks []*Task
	exit  bool

	// Clock defaults to time.Now.
	Clock func() time.Time
	// ExitAt sets the cancellation signal once reached. Zero means never.
	ExitAt time.Time
}

// NewExecutor returns an executor that schedules tasks.
func NewExecutor(tasks ...*Task) *Executor {
	return &Executor{tasks: tasks}
}

func (e *Executor) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// ExitRequested implements task.Executor.
func (e *Executor) ExitRequested(context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ExitAt.IsZero() && !e.now().Before(e.ExitAt) {
		e.exit = true
	}
	return e.exit, nil
}

// RequestExit implements task.Executor.
func (e *Executor) RequestExit(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.exit = true
	return nil
}

// CurrentTask implements task.Executor.
func (e *Executor) CurrentTask(context.Context) (string, error) {
	e.mu.Lock()
	tasks := e.tasks
	e.mu.Unlock()
	now := e.now()
	for _, t := range tasks {
		if t.current(now) {
			return t.Name(), nil
		}
	}
	return "", nil
}
