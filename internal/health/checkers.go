package health

import (
	"context"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/wavekeeper/internal/gameapi"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// FuncChecker adapts a function.
type FuncChecker struct {
	name string
	fn   func(context.Context) *Result
}

// NewFuncChecker returns a checker named name that calls fn.
func NewFuncChecker(name string, fn func(context.Context) *Result) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }
func (c *FuncChecker) Check(ctx context.Context) *Result { return c.fn(ctx) }

// Runtime is the part of the automation runtime the check calls.
type Runtime interface {
	CurrentTask(ctx context.Context) (string, error)
	ExitRequested(ctx context.Context) (bool, error)
}

// NewRuntimeChecker checks that the runtime answers. A pending exit
// request degrades it since every supervised task would be cancelled.
func NewRuntimeChecker(rt Runtime) Checker {
	return NewFuncChecker("runtime", func(ctx context.Context) *Result {
		current, err := rt.CurrentTask(ctx)
		if err != nil {
			return Unhealthy("runtime unreachable").WithDetail("error", err.Error())
		}
		exit, err := rt.ExitRequested(ctx)
		if err != nil {
			return Unhealthy("runtime unreachable").WithDetail("error", err.Error())
		}
		if exit {
			return Degraded("runtime has an exit request pending")
		}
		r := Healthy("runtime reachable")
		if current != "" {
			r.WithDetail("current_task", current)
		}
		return r
	})
}

// RunConfigSource reads the operator's switches.
type RunConfigSource interface {
	RunConfig(ctx context.Context) (sheets.RunConfig, error)
}

// NewRunConfigChecker checks the spreadsheet. A nil source means none is
// configured, which degrades runs to the default switches.
func NewRunConfigChecker(src RunConfigSource) Checker {
	return NewFuncChecker("sheets", func(ctx context.Context) *Result {
		if src == nil {
			return Degraded("no spreadsheet configured, runs use the default switches")
		}
		rc, err := src.RunConfig(ctx)
		if err != nil {
			return Unhealthy("run configuration unreadable").WithDetail("error", err.Error())
		}
		return Healthy("run configuration read").
			WithDetail("run_daily", rc.RunDaily).
			WithDetail("run_stamina", rc.RunStamina)
	})
}

// AccountAPI reads the account's daily figures.
type AccountAPI interface {
	DailyInfo(ctx context.Context) (gameapi.DailyInfo, error)
}

// NewAccountChecker checks the companion API. A nil api is degraded: the
// runtime probe is then the only stamina source.
func NewAccountChecker(api AccountAPI) Checker {
	return NewFuncChecker("game-api", func(ctx context.Context) *Result {
		if api == nil {
			return Degraded("companion API not configured, stamina comes from the runtime only")
		}
		info, err := api.DailyInfo(ctx)
		if err != nil {
			return Degraded("companion API failed").WithDetail("error", err.Error())
		}
		return Healthy("companion API answered").
			WithDetail("stamina", info.Stamina).
			WithDetail("backup", info.Backup)
	})
}

// NewConfiguredChecker reports whether an optional adapter is set up.
func NewConfiguredChecker(name string, enabled bool, missing string) Checker {
	return NewFuncChecker(name, func(context.Context) *Result {
		if !enabled {
			return Degraded(missing)
		}
		return Healthy("configured")
	})
}

// NewDirChecker checks that dir can be created and written.
func NewDirChecker(name, dir string) Checker {
	return NewFuncChecker(name, func(context.Context) *Result {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Unhealthy("cannot create " + dir).WithDetail("error", err.Error())
		}
		f, err := os.CreateTemp(dir, ".doctor-*")
		if err != nil {
			return Unhealthy("cannot write to " + dir).WithDetail("error", err.Error())
		}
		tmp := f.Name()
		_ = f.Close()
		_ = os.Remove(tmp)
		abs, _ := filepath.Abs(dir)
		return Healthy("writable").WithDetail("dir", abs)
	})
}
