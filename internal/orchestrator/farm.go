package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/exitcode"
	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
	"github.com/felixgeelhaar/wavekeeper/internal/hooks"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/supervisor"
)

// Runtime task options and info keys of the farm and merge tasks.
const (
	OptionRepeatFarm = "Repeat Farm Count"

	InfoFightCount     = "Fight Count"
	InfoMergeCount     = "Merge Count"
	InfoRemainingMerge = "Remaining Merge Count"
)

// EchoesPerFight is the average number of echoes one fight drops.
const EchoesPerFight = 0.6

const echoReadAttempts = 3

// FarmReport is the outcome of a farm session.
type FarmReport struct {
	Deadline   time.Time            `json:"deadline" yaml:"deadline"`
	Iterations []*ledger.FarmResult `json:"iterations" yaml:"iterations"`
	Shutdown   bool                 `json:"shutdown" yaml:"shutdown"`
}

// Failed reports whether an iteration failed.
func (r *FarmReport) Failed() bool {
	for _, it := range r.Iterations {
		if it.Status.Failed() {
			return true
		}
	}
	return false
}

// ExitCode is 1 when an iteration failed, 0 otherwise, with the shutdown
// bit set when configured.
func (r *FarmReport) ExitCode() int {
	return exitcode.ForRun(r.Failed(), r.Shutdown)
}

// RepeatCount is how many fights fill the bag from echoes to echoCap. An
// unknown echo count yields fallback.
func RepeatCount(echoes *int, echoCap, fallback int) int {
	if echoes == nil {
		return fallback
	}
	return max(0, int(math.Round(float64(echoCap-*echoes)/EchoesPerFight)))
}

// Farm repeats farm iterations until the configured stop time: fight until
// the bag is full or the deadline passes, let the character settle, then
// merge echoes five into one. A failed iteration ends the session. The
// error is non-nil only when ctx was cancelled before the session began.
func (o *Orchestrator) Farm(ctx context.Context) (*FarmReport, error) {
	if ctx.Err() != nil {
		return nil, kerrors.NewCancelledError(o.cfg.Tasks.Farm.Name)
	}
	h, m, err := forecast.ParseClock(o.cfg.Farm.StopAt)
	if err != nil {
		return nil, kerrors.NewConfigInvalidError("farm.stop_at: " + err.Error())
	}
	stop := forecast.DailyReset{Hour: h, Minute: m, Location: o.cfg.Reset.Location()}
	deadline := stop.Next(o.now())

	report := &FarmReport{Deadline: deadline, Shutdown: o.cfg.Farm.ShutdownAfter}
	o.logger(ctx).Info("farm session started", "until", deadline, "remaining", deadline.Sub(o.now()).Round(time.Second))

	for o.now().Before(deadline) {
		it := o.farmOnce(ctx, deadline)
		report.Iterations = append(report.Iterations, it)
		if it.Status.Failed() || ctx.Err() != nil {
			break
		}
	}
	o.logger(ctx).Info("farm session ended", "iterations", len(report.Iterations), "failed", report.Failed())
	return report, nil
}

func (o *Orchestrator) farmOnce(ctx context.Context, deadline time.Time) (res *ledger.FarmResult) {
	res = ledger.NewFarm(o.now())
	logger := o.logger(ctx).With("iteration_id", res.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("farm iteration panicked", "panic", r)
			res.Fail(fmt.Errorf("panic: %v", r))
		}
		res.Close(o.now())
		o.reportFarm(context.WithoutCancel(ctx), res)
	}()

	if err := o.farm(ctx, res, deadline); err != nil {
		res.Fail(err)
		logger.LogError(ctx, "farm iteration failed", err)
		o.observeError("orchestrator", err)
		if kerrors.HasCode(err, kerrors.ErrCodeCancelled) {
			o.propagateExit(ctx)
		}
	}
	return res
}

func (o *Orchestrator) farm(ctx context.Context, res *ledger.FarmResult, deadline time.Time) error {
	logger := o.logger(ctx)
	farmTask, mergeTask := o.cfg.Tasks.Farm, o.cfg.Tasks.Merge

	res.EchoStart = o.readEcho(ctx)
	repeat := RepeatCount(res.EchoStart, o.cfg.Farm.EchoCap, o.cfg.Farm.RepeatFallback)
	if err := o.deps.Runtime.Configure(ctx, farmTask.Name, map[string]any{OptionRepeatFarm: repeat}); err != nil {
		return err
	}
	logger.Info("farm task configured", "repeat", repeat)

	out, err := o.sup.RunUntil(ctx, o.deps.Runtime.Task(farmTask.Name), deadline)
	if err != nil {
		return err
	}
	end := o.now()
	res.EndedAt = &end
	res.FightCount = out.Info.IntPtr(InfoFightCount)

	logger.Info("waiting for the character to settle", "delay", o.cfg.Farm.SettleDelay)
	if !sleep(ctx, o.cfg.Farm.SettleDelay) {
		return kerrors.NewCancelledError(mergeTask.Name)
	}
	res.EchoEnd = o.readEcho(ctx)

	merged, err := supervisor.Retry(ctx, o.cfg.Retry,
		o.sup.TaskAttempt(o.deps.Runtime.Task(mergeTask.Name), mergeTask.Timeout, InfoMergeCount, InfoRemainingMerge))
	res.MergeCount = ledger.Int(merged.Total)
	if err != nil {
		return err
	}
	if merged.Exhausted {
		logger.Warn("echoes left unmerged", "attempts", merged.Attempts, "merged", merged.Total)
	}

	res.Succeed()
	return nil
}

// readEcho reads the bag's echo count, retrying a few times.
func (o *Orchestrator) readEcho(ctx context.Context) *int {
	logger := o.logger(ctx)
	for attempt := 1; attempt <= echoReadAttempts; attempt++ {
		n, err := o.deps.Runtime.ReadEchoCount(ctx)
		if err != nil {
			logger.Warn("echo count probe failed", "attempt", attempt, "error", err)
			o.observeError("runtime", err)
		}
		if n != nil {
			return n
		}
		if ctx.Err() != nil {
			break
		}
	}
	logger.Warn("echo count unreadable")
	return nil
}

func (o *Orchestrator) reportFarm(ctx context.Context, res *ledger.FarmResult) {
	logger := o.logger(ctx)
	logger.Info("farm iteration finished",
		"iteration_id", res.ID,
		"status", string(res.Status),
		"fights", deref(res.FightCount),
		"merged", deref(res.MergeCount))

	if o.deps.Hooks != nil {
		o.observeHooks(o.deps.Hooks.Trigger(ctx, hooks.FarmEvent(res)))
	}
	if o.deps.Journal != nil {
		if _, err := o.deps.Journal.SaveFarm(res); err != nil {
			logger.LogError(ctx, "could not journal farm iteration", err)
			o.observeError("journal", err)
		}
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveFarm(res)
	}
}

// deref renders an optional count for logging.
func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
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
