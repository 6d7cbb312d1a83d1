package cmd

import (
	"context"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/felixgeelhaar/wavekeeper/internal/bridge"
	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/gameapi"
	"github.com/felixgeelhaar/wavekeeper/internal/hooks"
	"github.com/felixgeelhaar/wavekeeper/internal/httpclient"
	"github.com/felixgeelhaar/wavekeeper/internal/notify"
	"github.com/felixgeelhaar/wavekeeper/internal/orchestrator"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// degradable reports whether err may be logged and ignored. Configuration
// mistakes are not.
func degradable(err error) bool {
	return !strings.HasPrefix(string(kerrors.CodeOf(err)), "CONFIG-")
}

func (a *app) httpClient() *retryablehttp.Client {
	return httpclient.New(a.cfg.HTTP, a.logger.WithComponent("http"))
}

// reporter connects to the spreadsheet. It returns nil when no spreadsheet
// is configured or it cannot be reached.
func (a *app) reporter(ctx context.Context) (*sheets.Reporter, error) {
	if !a.cfg.Sheets.Enabled() {
		a.logger.Debug("no spreadsheet configured")
		return nil, nil
	}
	store, err := sheets.NewGoogleStore(ctx, a.cfg.Sheets)
	if err != nil {
		if !degradable(err) {
			return nil, err
		}
		a.logger.WithError(err).Warn("spreadsheet unavailable, continuing without it")
		a.metrics.ObserveError("sheets", err)
		return nil, nil
	}
	return sheets.NewReporter(store, a.cfg.Sheets), nil
}

// orchestrator wires the adapters named in the configuration.
func (a *app) orchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	client := a.httpClient()
	deps := orchestrator.Deps{
		Runtime: bridge.New(a.cfg.Runtime, client),
		Journal: a.journal(),
		Metrics: a.metrics,
	}
	hookDeps := hooks.Deps{HTTP: client}

	reporter, err := a.reporter(ctx)
	if err != nil {
		return nil, err
	}
	if reporter != nil {
		deps.RunConfig = reporter
		hookDeps.Sheets = reporter
	}

	if a.cfg.Mailgun.Enabled() {
		mailer, err := notify.NewMailer(a.cfg.Mailgun, client)
		if err != nil {
			return nil, err
		}
		hookDeps.Mailer = mailer
	}

	if a.cfg.GameAPI.Enabled() {
		api, err := gameapi.NewClient(a.cfg.GameAPI, client)
		if err != nil {
			return nil, err
		}
		deps.GameAPI = api
	}

	registry := hooks.NewRegistry()
	hooks.RegisterBuiltinHooks(registry, hookDeps)
	// A hook whose adapter is unavailable is dropped; reporting never
	// blocks a run.
	for _, hc := range a.cfg.HookConfigs() {
		if err := registry.RegisterFromConfig(&hc); err != nil {
			a.logger.WithError(err).Warn("hook not registered", "hook", hc.Name, "type", hc.Type)
		}
	}
	deps.Hooks = registry
	a.logger.Debug("hooks registered", "count", registry.Count())

	a.cfg.WarnPolicyDefaults(a.logger)
	return orchestrator.New(a.cfg, deps)
}
