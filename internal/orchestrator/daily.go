package orchestrator

import (
	"context"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// Runtime task options and info keys of the daily task.
const (
	OptionTacetSerial   = "Which Tacet Suppression to Farm"
	OptionNightmareNest = "Auto Farm all Nightmare Nest"

	InfoDailyPoints      = "daily points"
	InfoTotalDailyPoints = "total daily points"
	InfoCurrentStamina   = "current_stamina"
	InfoBackupStamina    = "back_up_stamina"
)

// Daily runs the daily routine: log in, run the daily task and record the
// points and stamina it leaves behind. The error is non-nil only when ctx
// was cancelled before a result existed or the run configuration is
// invalid.
func (o *Orchestrator) Daily(ctx context.Context) (*Report, error) {
	if ctx.Err() != nil {
		return nil, kerrors.NewCancelledError(o.cfg.Tasks.Daily.Name)
	}
	rc, err := o.runConfig(ctx)
	if err != nil {
		return nil, err
	}
	res := ledger.New(ledger.KindDaily, o.now())
	res.RunNightmare = rc.RunNightmare
	report := &Report{Result: res, RunConfig: rc, Shutdown: rc.ShutdownAfterDaily}

	if !rc.RunDaily {
		o.skip(ctx, res, rc, "daily run disabled in the run configuration")
		return report, nil
	}
	o.cycle(ctx, res, rc, rc.ExitGameAfterDaily, func(ctx context.Context, res *ledger.RunResult) error {
		return o.daily(ctx, res, rc)
	})
	return report, nil
}

func (o *Orchestrator) daily(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig) error {
	if err := o.login(ctx); err != nil {
		return err
	}

	t := o.cfg.Tasks.Daily
	if err := o.deps.Runtime.Configure(ctx, t.Name, map[string]any{
		OptionTacetSerial:   rc.TacetSerial,
		OptionNightmareNest: rc.RunNightmare,
	}); err != nil {
		return err
	}
	o.logger(ctx).Info("daily task configured", "tacet", rc.TacetSerial, "nightmare", rc.RunNightmare)
	res.Decision = "run daily task"
	res.SetStart(o.readStamina(ctx))

	out, err := o.sup.Run(ctx, o.deps.Runtime.Task(t.Name), t.Timeout)
	if err != nil {
		return err
	}

	res.Succeed()
	res.DailyPoints = out.Info.FirstInt(InfoDailyPoints, InfoTotalDailyPoints)
	res.SetEnd(out.Info.IntPtr(InfoCurrentStamina), out.Info.IntPtr(InfoBackupStamina))
	o.fillEnd(ctx, res)
	if res.DailyPoints == nil {
		res.DailyPoints = o.dailyPoints(ctx)
	}
	res.Backfill(o.cfg.Stamina.BackfillUnit)
	o.review(res)
	return nil
}

// dailyPoints asks the game API for today's activity points.
func (o *Orchestrator) dailyPoints(ctx context.Context) *int {
	if o.deps.GameAPI == nil {
		return nil
	}
	info, err := o.deps.GameAPI.DailyInfo(ctx)
	if err != nil {
		o.logger(ctx).Warn("game API daily points read failed", "error", err)
		o.observeError("game_api", err)
		return nil
	}
	return ledger.Int(info.DailyPoints)
}
