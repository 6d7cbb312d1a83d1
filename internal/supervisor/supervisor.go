// Package supervisor drives runtime tasks to completion by polling.
//
// The runtime offers no completion notification, so a supervised task is
// considered finished once it has disabled itself and the executor reports
// no current task. Every tick checks cancellation first, so a shutdown
// request always wins over a task that finished in the same tick.
package supervisor

import (
	"context"
	"time"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
	"github.com/felixgeelhaar/wavekeeper/internal/task"
)

// Default poll intervals.
const (
	DefaultPollInterval         = time.Second
	DefaultDeadlinePollInterval = 10 * time.Second
)

// DefaultPollBudget is how long a tick's runtime reads may take once the
// limit is closer than that.
const DefaultPollBudget = 2 * time.Second

// Outcome classifies how a supervised task ended.
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomeStoppedByDeadline Outcome = "stopped_by_deadline"
	OutcomeFailed            Outcome = "failed"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeCancelled         Outcome = "cancelled"
)

// Observer is told about every supervised task once it ends.
type Observer func(taskName string, outcome Outcome, elapsed time.Duration)

// Supervisor runs tasks on one executor. It keeps no state between calls.
type Supervisor struct {
	exec             task.Executor
	interval         time.Duration
	deadlineInterval time.Duration
	pollBudget       time.Duration
	now              func() time.Time
	logger           *log.Logger
	observer         Observer
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithPollInterval sets the tick used by Run.
func WithPollInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.interval = d }
}

// WithDeadlinePollInterval sets the tick used by RunUntil.
func WithDeadlinePollInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.deadlineInterval = d }
}

// WithPollBudget replaces DefaultPollBudget.
func WithPollBudget(d time.Duration) Option {
	return func(s *Supervisor) { s.pollBudget = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) { s.now = now }
}

// WithLogger sets the logger. Without it the context logger is used.
func WithLogger(l *log.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// WithObserver registers an Observer.
func WithObserver(o Observer) Option {
	return func(s *Supervisor) { s.observer = o }
}

// New returns a Supervisor for exec.
func New(exec task.Executor, opts ...Option) *Supervisor {
	s := &Supervisor{
		exec:             exec,
		interval:         DefaultPollInterval,
		deadlineInterval: DefaultDeadlinePollInterval,
		pollBudget:       DefaultPollBudget,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) log(ctx context.Context) *log.Logger {
	if s.logger != nil {
		return s.logger
	}
	return log.FromContext(ctx)
}

// pollContext bounds one tick's runtime reads so that a stalled transport
// cannot hold the loop past limit by more than the poll budget.
func (s *Supervisor) pollContext(ctx context.Context, limit time.Time) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, max(limit.Sub(s.now()), s.pollBudget))
}

// Result describes a supervised task that ended without error.
type Result struct {
	Outcome Outcome
	// Info is the last info map read from the task.
	Info    task.Info
	Elapsed time.Duration
}

// StoppedByDeadline reports whether RunUntil disabled the task itself.
func (r Result) StoppedByDeadline() bool { return r.Outcome == OutcomeStoppedByDeadline }

// Run enables t and waits until it completes, fails, times out or is
// cancelled. Cancellation comes from ctx or from the executor's exit flag.
func (s *Supervisor) Run(ctx context.Context, t task.Task, timeout time.Duration) (Result, error) {
	started := s.now()
	limit := started.Add(timeout)
	return s.supervise(ctx, t, started, s.interval, limit, func(now time.Time) (bool, error) {
		if now.Before(limit) {
			return false, nil
		}
		return false, kerrors.NewTimeoutError(t.Name(), timeout)
	})
}

// RunUntil enables t and waits until it completes on its own or the wall
// clock reaches deadline. At the deadline a still-enabled task is disabled
// and the result is marked OutcomeStoppedByDeadline.
func (s *Supervisor) RunUntil(ctx context.Context, t task.Task, deadline time.Time) (Result, error) {
	started := s.now()
	return s.supervise(ctx, t, started, s.deadlineInterval, deadline, func(now time.Time) (bool, error) {
		if now.Before(deadline) {
			return false, nil
		}
		pctx, cancel := s.pollContext(ctx, deadline)
		st, err := t.Status(pctx)
		cancel()
		if err != nil || st.Enabled {
			if err := t.Disable(ctx); err != nil {
				return false, controlError(ctx, t, "disable", err)
			}
			if err := t.Unpause(ctx); err != nil {
				return false, controlError(ctx, t, "unpause", err)
			}
		}
		s.log(ctx).InfoContext(ctx, "task stopped at deadline", "task", t.Name(), "deadline", deadline)
		return true, nil
	})
}

// supervise runs the shared loop. expired is consulted after the
// cancellation and completion checks of each tick; it returns stop=true to
// end successfully at the limit, or an error to abort. Ticks never sleep
// past limit.
func (s *Supervisor) supervise(
	ctx context.Context,
	t task.Task,
	started time.Time,
	interval time.Duration,
	limit time.Time,
	expired func(now time.Time) (stop bool, err error),
) (res Result, err error) {
	logger := s.log(ctx).With("task", t.Name())

	defer func() {
		res.Elapsed = s.now().Sub(started)
		if s.observer != nil {
			outcome := res.Outcome
			switch {
			case kerrors.HasCode(err, kerrors.ErrCodeCancelled):
				outcome = OutcomeCancelled
			case kerrors.HasCode(err, kerrors.ErrCodeTimeout):
				outcome = OutcomeTimeout
			case err != nil:
				outcome = OutcomeFailed
			}
			s.observer(t.Name(), outcome, res.Elapsed)
		}
	}()

	if err := t.Enable(ctx); err != nil {
		return Result{}, controlError(ctx, t, "enable", err)
	}
	if err := t.Unpause(ctx); err != nil {
		return Result{}, controlError(ctx, t, "unpause", err)
	}
	logger.InfoContext(ctx, "task started")

	var info task.Info
	for {
		pctx, cancel := s.pollContext(ctx, limit)
		if s.cancelled(ctx, pctx, logger) {
			cancel()
			return Result{Info: info}, kerrors.NewCancelledError(t.Name())
		}
		done, doneErr := s.completed(pctx, t, logger, &info)
		cancel()
		if doneErr != nil {
			return Result{Info: info}, doneErr
		}
		if done {
			logger.InfoContext(ctx, "task completed", "elapsed", s.now().Sub(started).Round(time.Second))
			return Result{Outcome: OutcomeCompleted, Info: info}, nil
		}

		stop, expErr := expired(s.now())
		if expErr != nil {
			return Result{Info: info}, expErr
		}
		if stop {
			pctx, cancel := s.pollContext(ctx, limit)
			if st, err := t.Status(pctx); err == nil {
				info = st.Info
			}
			cancel()
			return Result{Outcome: OutcomeStoppedByDeadline, Info: info}, nil
		}

		wait := min(interval, max(0, limit.Sub(s.now())))
		if !sleep(ctx, wait) {
			return Result{Info: info}, kerrors.NewCancelledError(t.Name())
		}
	}
}

// controlError classifies a failed task control call. A failure caused by
// ctx ending is a cancellation, not a control error.
func controlError(ctx context.Context, t task.Task, op string, err error) error {
	if ctx.Err() != nil {
		return kerrors.NewCancelledError(t.Name())
	}
	return kerrors.NewTaskControlError(t.Name(), op, err)
}

// cancelled checks ctx itself, then reads the executor's exit flag under pctx.
func (s *Supervisor) cancelled(ctx, pctx context.Context, logger *log.Logger) bool {
	if ctx.Err() != nil {
		return true
	}
	exit, err := s.exec.ExitRequested(pctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		logger.WarnContext(ctx, "could not read exit flag", "error", err.Error())
		return false
	}
	return exit
}

// completed reports whether t has finished. A status read failure is
// logged and treated as still running.
func (s *Supervisor) completed(ctx context.Context, t task.Task, logger *log.Logger, info *task.Info) (bool, error) {
	st, err := t.Status(ctx)
	if err != nil {
		logger.WarnContext(ctx, "could not read task status", "error", err.Error())
		return false, nil
	}
	*info = st.Info
	if st.Enabled {
		return false, nil
	}
	current, err := s.exec.CurrentTask(ctx)
	if err != nil {
		logger.WarnContext(ctx, "could not read current task", "error", err.Error())
		return false, nil
	}
	if current != "" {
		return false, nil
	}
	if msg, ok := st.Info.Error(); ok {
		return false, kerrors.NewTaskReportedError(t.Name(), msg)
	}
	if err := t.SetRunning(ctx, false); err != nil {
		logger.WarnContext(ctx, "could not clear running flag", "error", err.Error())
	}
	return true, nil
}

// sleep waits for d or until ctx is done. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
