// Package orchestrator runs wavekeeper's workflows: the daily routine, the
// stamina burn before the daily reset and the overnight echo farm. Every run
// is recorded in a ledger result that is closed, reported and journaled on
// all exit paths, including panics.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/wavekeeper/internal/config"
	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/exitcode"
	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
	"github.com/felixgeelhaar/wavekeeper/internal/gameapi"
	"github.com/felixgeelhaar/wavekeeper/internal/hooks"
	"github.com/felixgeelhaar/wavekeeper/internal/journal"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/log"
	"github.com/felixgeelhaar/wavekeeper/internal/metrics"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
	"github.com/felixgeelhaar/wavekeeper/internal/supervisor"
	"github.com/felixgeelhaar/wavekeeper/internal/task"
)

// Runtime is the automation runtime as the workflows use it. bridge.Client
// implements it.
type Runtime interface {
	task.Executor
	Task(name string) task.Task
	Configure(ctx context.Context, taskName string, options map[string]any) error
	ReadStamina(ctx context.Context) (current, backup *int, err error)
	ReadEchoCount(ctx context.Context) (*int, error)
	ExitGame(ctx context.Context) error
}

// RunConfigSource supplies the operator's switches. sheets.Reporter
// implements it. Values returned alongside an error are ignored.
type RunConfigSource interface {
	RunConfig(ctx context.Context) (sheets.RunConfig, error)
}

// AccountAPI reads account state without the runtime. gameapi.Client
// implements it.
type AccountAPI interface {
	DailyInfo(ctx context.Context) (gameapi.DailyInfo, error)
}

// Deps are the collaborators of a run. Only Runtime is required.
type Deps struct {
	Runtime   Runtime
	RunConfig RunConfigSource
	GameAPI   AccountAPI
	Hooks     *hooks.Registry
	Journal   *journal.Journal
	Metrics   *metrics.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now for run timestamps, reset arithmetic and the
// supervisors' deadlines.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithSupervisorOptions appends options to the task supervisor.
func WithSupervisorOptions(opts ...supervisor.Option) Option {
	return func(o *Orchestrator) { o.supOpts = append(o.supOpts, opts...) }
}

// Orchestrator composes the supervisors, the forecast and the reporters.
type Orchestrator struct {
	cfg     *config.Config
	deps    Deps
	reset   forecast.DailyReset
	now     func() time.Time
	sup     *supervisor.Supervisor
	supOpts []supervisor.Option
}

// New builds an Orchestrator from a validated configuration.
func New(cfg *config.Config, deps Deps, opts ...Option) (*Orchestrator, error) {
	if deps.Runtime == nil {
		return nil, kerrors.NewConfigMissingError("runtime.url", "WAVEKEEPER_RUNTIME_URL")
	}
	reset, err := cfg.Reset.Daily()
	if err != nil {
		return nil, kerrors.NewConfigInvalidError("reset.time: " + err.Error())
	}

	o := &Orchestrator{cfg: cfg, deps: deps, reset: reset, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	supOpts := []supervisor.Option{
		supervisor.WithPollInterval(cfg.Tasks.PollInterval),
		supervisor.WithDeadlinePollInterval(cfg.Tasks.DeadlinePollInterval),
		supervisor.WithClock(o.now),
	}
	if deps.Metrics != nil {
		supOpts = append(supOpts, supervisor.WithObserver(deps.Metrics.TaskObserver()))
	}
	o.sup = supervisor.New(deps.Runtime, append(supOpts, o.supOpts...)...)
	return o, nil
}

// Report is the outcome of a daily or stamina run.
type Report struct {
	Result    *ledger.RunResult `json:"result" yaml:"result"`
	RunConfig sheets.RunConfig  `json:"run_config" yaml:"run_config"`
	// Shutdown is the run configuration's "shut down afterwards" switch.
	Shutdown bool `json:"shutdown" yaml:"shutdown"`
}

// ExitCode is 1 for a failed run, 0 otherwise, with the shutdown bit set
// when requested.
func (r *Report) ExitCode() int {
	return exitcode.ForRun(r.Result.Status.Failed(), r.Shutdown)
}

func (o *Orchestrator) logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent("orchestrator")
}

func (o *Orchestrator) observeError(component string, err error) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveError(component, err)
	}
}

// runConfig fetches the operator's switches. A missing or unreachable
// source yields the defaults; a misconfigured one (CONFIG-*) is returned.
func (o *Orchestrator) runConfig(ctx context.Context) (sheets.RunConfig, error) {
	if o.deps.RunConfig == nil {
		return sheets.DefaultRunConfig(), nil
	}
	rc, err := o.deps.RunConfig.RunConfig(ctx)
	if err == nil {
		return rc, nil
	}
	if strings.HasPrefix(string(kerrors.CodeOf(err)), "CONFIG-") {
		return sheets.RunConfig{}, err
	}
	o.logger(ctx).LogError(ctx, "run config unavailable, using defaults", err)
	o.observeError("sheets", err)
	return sheets.DefaultRunConfig(), nil
}

// login brings the game to the main screen.
func (o *Orchestrator) login(ctx context.Context) error {
	t := o.cfg.Tasks.Login
	_, err := o.sup.Run(ctx, o.deps.Runtime.Task(t.Name), t.Timeout)
	return err
}

// readStamina asks the runtime first and the game API second. Values no
// source could provide are nil.
func (o *Orchestrator) readStamina(ctx context.Context) (current, backup *int) {
	logger := o.logger(ctx)
	current, backup, err := o.deps.Runtime.ReadStamina(ctx)
	if err != nil {
		logger.Warn("runtime stamina probe failed", "error", err)
		o.observeError("runtime", err)
	}
	if current != nil {
		return current, backup
	}
	if o.deps.GameAPI == nil {
		return nil, nil
	}
	info, err := o.deps.GameAPI.DailyInfo(ctx)
	if err != nil {
		logger.Warn("game API stamina read failed", "error", err)
		o.observeError("game_api", err)
		return nil, nil
	}
	logger.Debug("stamina read from game API", "current", info.Stamina, "backup", info.Backup)
	return ledger.Int(info.Stamina), ledger.Int(info.Backup)
}

// fillEnd reads the end stamina when the task did not report it.
func (o *Orchestrator) fillEnd(ctx context.Context, res *ledger.RunResult) {
	if res.StaminaLeft != nil && res.BackupLeft != nil {
		return
	}
	current, backup := o.readStamina(ctx)
	if current != nil && backup != nil {
		res.SetEnd(current, backup)
		return
	}
	o.logger(ctx).Warn("could not capture stamina after task", "run_id", res.ID)
}

// review downgrades a successful run whose end stamina is unknown.
func (o *Orchestrator) review(res *ledger.RunResult) {
	if res.Status == ledger.StatusSuccess && res.StaminaLeft == nil {
		res.NeedsReview("end stamina could not be read")
	}
}

// skip records a run the configuration switched off. The runtime is not
// touched.
func (o *Orchestrator) skip(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig, reason string) {
	o.logger(ctx).Info("skipping run", "kind", string(res.Kind), "reason", reason)
	res.Skip(reason)
	res.Close(res.StartedAt)
	o.report(ctx, res, rc)
}

// cycle runs body and finalizes res whatever happens: panics become
// failures, the result is closed and projected, the game is exited when
// requested and the reporters run.
func (o *Orchestrator) cycle(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig, exitGame bool,
	body func(context.Context, *ledger.RunResult) error) {
	logger := o.logger(ctx).With("run_id", res.ID, "kind", string(res.Kind))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run panicked", "panic", r)
			res.Fail(fmt.Errorf("panic: %v", r))
		}
		o.finish(ctx, res, rc, exitGame)
	}()

	if err := body(ctx, res); err != nil {
		res.Fail(err)
		logger.LogError(ctx, "run failed", err)
		o.observeError("orchestrator", err)
		if kerrors.HasCode(err, kerrors.ErrCodeCancelled) {
			o.propagateExit(ctx)
		}
	}
}

// propagateExit forwards a cancellation to the runtime.
func (o *Orchestrator) propagateExit(ctx context.Context) {
	if err := o.deps.Runtime.RequestExit(context.WithoutCancel(ctx)); err != nil {
		o.logger(ctx).Warn("could not forward exit request to runtime", "error", err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig, exitGame bool) {
	// Reporting outlives an interrupt.
	ctx = context.WithoutCancel(ctx)

	res.Close(o.now())
	res.Project(o.cfg.Policy, o.reset, o.now())

	if exitGame {
		if err := o.deps.Runtime.ExitGame(ctx); err != nil {
			o.logger(ctx).Warn("could not exit game", "error", err)
			o.observeError("runtime", err)
		}
	}
	o.report(ctx, res, rc)
}

// report hands a closed result to the hooks, the journal and the metrics.
// Failures are logged and never change the result.
func (o *Orchestrator) report(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig) {
	logger := o.logger(ctx)
	logger.Info("run finished",
		"run_id", res.ID,
		"kind", string(res.Kind),
		"status", string(res.Status),
		"duration", res.Duration(o.now()).Round(time.Second),
		"decision", res.Decision)

	if o.deps.Hooks != nil {
		o.observeHooks(o.deps.Hooks.Trigger(ctx, hooks.RunEvent(res, &rc)))
	}
	if o.deps.Journal != nil {
		if path, err := o.deps.Journal.SaveRun(res); err != nil {
			logger.LogError(ctx, "could not journal run", err)
			o.observeError("journal", err)
		} else {
			logger.Debug("run journaled", "path", path)
		}
	}
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveRun(res, o.now())
	}
}

func (o *Orchestrator) observeHooks(results []hooks.ExecutionResult) {
	if o.deps.Metrics == nil {
		return
	}
	for _, r := range results {
		if !r.Success {
			o.deps.Metrics.HookFailures.WithLabelValues(r.HookName).Inc()
		}
	}
}
