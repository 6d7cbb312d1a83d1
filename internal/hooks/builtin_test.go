package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

type fakeSheets struct {
	runs     []*ledger.RunResult
	farms    []*ledger.FarmResult
	stamina  []*ledger.RunResult
	failWith error
}

func (f *fakeSheets) AppendResult(_ context.Context, res *ledger.RunResult) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.runs = append(f.runs, res)
	return nil
}

func (f *fakeSheets) AppendFarm(_ context.Context, res *ledger.FarmResult) error {
	f.farms = append(f.farms, res)
	return nil
}

func (f *fakeSheets) RecordStamina(_ context.Context, res *ledger.RunResult) (bool, error) {
	if res.StaminaLeft == nil {
		return false, nil
	}
	f.stamina = append(f.stamina, res)
	return true, nil
}

type fakeMailer struct {
	sent []sheets.RunConfig
}

func (f *fakeMailer) SendReport(_ context.Context, _ *ledger.RunResult, rc sheets.RunConfig) error {
	f.sent = append(f.sent, rc)
	return nil
}

func closedRun(kind ledger.Kind, status ledger.Status) *ledger.RunResult {
	res := ledger.New(kind, time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC))
	res.Status = status
	res.StaminaLeft = ledger.Int(40)
	res.Close(res.StartedAt.Add(10 * time.Minute))
	return res
}

func newBuiltinRegistry(t *testing.T, deps Deps, cfgs []HookConfig) *Registry {
	t.Helper()
	r := NewRegistry()
	RegisterBuiltinHooks(r, deps)
	require.NoError(t, r.RegisterAll(cfgs))
	return r
}

func TestDefaultHooks(t *testing.T) {
	sh := &fakeSheets{}
	mail := &fakeMailer{}
	r := newBuiltinRegistry(t, Deps{Sheets: sh, Mailer: mail}, DefaultConfigs(true, true))
	assert.Equal(t, 3, r.Count())

	rc := sheets.RunConfig{RunDaily: true, RunNightmare: true}
	res := closedRun(ledger.KindDaily, ledger.StatusSuccess)
	results := r.Trigger(context.Background(), RunEvent(res, &rc))
	require.Len(t, results, 3)
	for _, res := range results {
		assert.True(t, res.Success, res.HookName)
	}

	assert.Len(t, sh.runs, 1)
	assert.Len(t, sh.stamina, 1)
	require.Len(t, mail.sent, 1)
	assert.True(t, mail.sent[0].RunNightmare)

	farm := ledger.NewFarm(time.Now())
	farm.Succeed()
	farm.Close(time.Now())
	results = r.Trigger(context.Background(), FarmEvent(farm))
	require.Len(t, results, 1, "only row appends run for farm iterations")
	assert.Len(t, sh.farms, 1)
}

func TestDefaultHooksWithoutAdapters(t *testing.T) {
	assert.Empty(t, DefaultConfigs(false, false))
	assert.Len(t, DefaultConfigs(false, true), 1)

	r := NewRegistry()
	RegisterBuiltinHooks(r, Deps{})
	assert.Error(t, r.RegisterAll(DefaultConfigs(true, false)), "sheet hooks need a spreadsheet")
}

func TestMailgunHookUsesDefaultRunConfig(t *testing.T) {
	mail := &fakeMailer{}
	r := newBuiltinRegistry(t, Deps{Mailer: mail}, DefaultConfigs(false, true))

	r.Trigger(context.Background(), RunEvent(closedRun(ledger.KindStamina, ledger.StatusSkipped), nil))
	require.Len(t, mail.sent, 1)
	assert.Equal(t, sheets.DefaultRunConfig(), mail.sent[0])
}

func TestSheetHookFailureDoesNotStopOthers(t *testing.T) {
	sh := &fakeSheets{failWith: kerrors.New(kerrors.ErrCodeSheets, "quota exceeded")}
	mail := &fakeMailer{}
	r := newBuiltinRegistry(t, Deps{Sheets: sh, Mailer: mail}, DefaultConfigs(true, true))

	results := r.Trigger(context.Background(), RunEvent(closedRun(ledger.KindDaily, ledger.StatusFailed), nil))
	require.Len(t, results, 3)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "quota exceeded")
	assert.Len(t, mail.sent, 1)
}

func TestRunEventTypes(t *testing.T) {
	tests := []struct {
		status ledger.Status
		want   EventType
	}{
		{ledger.StatusSuccess, EventRunComplete},
		{ledger.StatusNeedsReview, EventRunComplete},
		{ledger.StatusSkipped, EventRunSkipped},
		{ledger.StatusFailed, EventRunFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			res := &ledger.RunResult{ID: "r1", Status: tt.status}
			ev := RunEvent(res, nil)
			assert.Equal(t, tt.want, ev.Type)
			assert.Equal(t, "r1", ev.ID())
		})
	}
}

func TestWebhookHook(t *testing.T) {
	var got Event
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hook, err := NewWebhookHook(&HookConfig{
		Name:    "ntfy",
		Type:    TypeWebhook,
		Enabled: true,
		Config: map[string]any{
			"url":     srv.URL,
			"headers": map[string]any{"Authorization": "Bearer abc"},
		},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, AllEvents, hook.EventTypes())

	res := closedRun(ledger.KindStamina, ledger.StatusSuccess)
	require.NoError(t, hook.Execute(context.Background(), RunEvent(res, nil)))
	assert.Equal(t, "Bearer abc", auth)
	assert.Equal(t, EventRunComplete, got.Type)
	require.NotNil(t, got.Run)
	assert.Equal(t, res.ID, got.Run.ID)
}

func TestWebhookHookStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.RetryMax = 0
	hook, err := NewWebhookHook(&HookConfig{Name: "w", Enabled: true, Config: map[string]any{"url": srv.URL}}, client)
	require.NoError(t, err)

	err = hook.Execute(context.Background(), &Event{Type: EventRunFailed})
	require.Error(t, err)
	assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeWebhook))
	assert.Contains(t, err.Error(), "400")
}

func TestWebhookHookRequiresURL(t *testing.T) {
	_, err := NewWebhookHook(&HookConfig{Name: "w", Config: map[string]any{}}, nil)
	assert.Error(t, err)

	var target *kerrors.KeeperError
	assert.False(t, errors.As(err, &target))
}
