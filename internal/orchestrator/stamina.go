package orchestrator

import (
	"context"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// Runtime task options of the tacet task.
const (
	OptionMaxSpend    = "Max Stamina to Spend"
	OptionSingleSpend = "Prefer Single Spend"
)

// Stamina spends stamina on the tacet task when the forecast says the pools
// would overflow before the next daily reset. The error is non-nil only
// when ctx was cancelled before a result existed or the run configuration
// is invalid.
func (o *Orchestrator) Stamina(ctx context.Context) (*Report, error) {
	if ctx.Err() != nil {
		return nil, kerrors.NewCancelledError(o.cfg.Tasks.Tacet.Name)
	}
	rc, err := o.runConfig(ctx)
	if err != nil {
		return nil, err
	}
	res := ledger.New(ledger.KindStamina, o.now())
	report := &Report{Result: res, RunConfig: rc, Shutdown: rc.ShutdownAfterStamina}

	if !rc.RunStamina {
		o.skip(ctx, res, rc, "stamina run disabled in the run configuration")
		return report, nil
	}
	o.cycle(ctx, res, rc, rc.ExitGameAfterStamina, func(ctx context.Context, res *ledger.RunResult) error {
		return o.stamina(ctx, res, rc)
	})
	return report, nil
}

func (o *Orchestrator) stamina(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig) error {
	if err := o.login(ctx); err != nil {
		return err
	}

	current, backup := o.readStamina(ctx)
	startBackup := backup
	if startBackup == nil {
		startBackup = ledger.Int(0)
	}
	res.SetStart(current, startBackup)

	minutes := o.reset.MinutesUntil(o.now())
	d := o.cfg.Policy.DecideBurn(current, backup, minutes)
	o.logger(ctx).Info("burn decided",
		"should_run", d.ShouldRun,
		"amount", d.Amount,
		"minutes_to_reset", minutes,
		"reason", d.Reason)

	res.Decision = d.Reason
	res.ProjectedDaily = d.Projected
	if d.ShouldRun {
		res.ProjectedDaily = d.ProjectedAfter
	}

	if !d.ShouldRun {
		res.Skip(d.Reason)
		res.StaminaUsed = ledger.Int(0)
		// Nothing was spent.
		res.SetEnd(current, startBackup)
		return nil
	}

	t := o.cfg.Tasks.Tacet
	if err := o.deps.Runtime.Configure(ctx, t.Name, map[string]any{
		OptionTacetSerial: rc.TacetSerial,
		OptionMaxSpend:    d.Amount,
		OptionSingleSpend: true,
	}); err != nil {
		return err
	}

	out, err := o.sup.Run(ctx, o.deps.Runtime.Task(t.Name), t.Timeout)
	if err != nil {
		return err
	}

	res.Succeed()
	res.StaminaUsed = ledger.Int(d.Amount)
	res.SetEnd(out.Info.IntPtr(InfoCurrentStamina), out.Info.IntPtr(InfoBackupStamina))
	o.fillEnd(ctx, res)
	o.review(res)
	return nil
}
