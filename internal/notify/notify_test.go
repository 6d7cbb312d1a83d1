package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/httpclient"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:          "key-123",
		Domain:          "mg.example.com",
		Recipient:       "me@example.com",
		BaseURL:         baseURL,
		TemplateDaily:   "daily-report",
		TemplateStamina: "stamina-report",
	}
}

func noRetry() httpclient.Options {
	return httpclient.Options{Timeout: time.Second, RetryMax: 0}
}

type captured struct {
	path     string
	user     string
	password string
	form     url.Values
}

func mailgunServer(t *testing.T, status int, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.user, got.password, _ = r.BasicAuth()
		got.form = r.PostForm
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"Queued. Thank you."}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewMailerRequiresCredentials(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"api key", func(c *Config) { c.APIKey = "" }},
		{"domain", func(c *Config) { c.Domain = "" }},
		{"recipient", func(c *Config) { c.Recipient = "" }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig("")
			tc.mutate(&cfg)
			assert.False(t, cfg.Enabled())
			_, err := NewMailer(cfg, httpclient.New(noRetry(), nil))
			assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeConfigMissing))
		})
	}
}

func TestSend(t *testing.T) {
	var got captured
	srv := mailgunServer(t, http.StatusOK, &got)
	m, err := NewMailer(testConfig(srv.URL), httpclient.New(noRetry(), nil))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{
		Subject:   "hello",
		Template:  "daily-report",
		Variables: map[string]any{"title": "日常任务 · 成功"},
		Text:      "plain",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v3/mg.example.com/messages", got.path)
	assert.Equal(t, "api", got.user)
	assert.Equal(t, "key-123", got.password)
	assert.Equal(t, "wavekeeper <postmaster@mg.example.com>", got.form.Get("from"))
	assert.Equal(t, "me@example.com", got.form.Get("to"))
	assert.Equal(t, "daily-report", got.form.Get("template"))
	assert.Equal(t, "plain", got.form.Get("text"))
	assert.JSONEq(t, `{"title":"日常任务 · 成功"}`, got.form.Get("h:X-Mailgun-Variables"))
}

func TestSendRejectedIsEmailError(t *testing.T) {
	var got captured
	srv := mailgunServer(t, http.StatusUnauthorized, &got)
	m, err := NewMailer(testConfig(srv.URL), httpclient.New(noRetry(), nil))
	require.NoError(t, err)

	err = m.Send(context.Background(), Message{Subject: "s", Template: "t"})
	assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeEmail))
	assert.True(t, kerrors.IsTransport(err))
	assert.Contains(t, err.Error(), "401")
}

func TestSendWithoutTemplate(t *testing.T) {
	m, err := NewMailer(testConfig("http://unused"), httpclient.New(noRetry(), nil))
	require.NoError(t, err)
	err = m.Send(context.Background(), Message{Subject: "s"})
	assert.True(t, kerrors.HasCode(err, kerrors.ErrCodeConfigMissing))
}

func finishedRun(kind ledger.Kind) *ledger.RunResult {
	start := time.Date(2025, 11, 29, 20, 0, 0, 0, time.UTC)
	res := ledger.New(kind, start)
	res.StaminaStart = ledger.Int(240)
	res.BackupStart = ledger.Int(360)
	res.StaminaUsed = ledger.Int(60)
	res.StaminaLeft = ledger.Int(180)
	res.BackupLeft = ledger.Int(300)
	res.Succeed()
	res.Close(start.Add(5*time.Minute + 54*time.Second))
	return res
}

func TestVariablesDaily(t *testing.T) {
	res := finishedRun(ledger.KindDaily)
	res.DailyPoints = ledger.Int(120)
	res.RunNightmare = true
	rc := sheets.RunConfig{RunDaily: true, TacetName: "无光之森"}

	vars := Variables(res, rc, time.Now())
	assert.Equal(t, "日常任务 · 成功", vars["title"])
	assert.Equal(t, "#22c55e", vars["status_color"])
	assert.Equal(t, "2025-11-29 20:05:54", vars["ended_at"])
	assert.Equal(t, "5m 54s", vars["duration"])
	assert.Equal(t, "120", vars["daily_points"])
	assert.Equal(t, "是", vars["daily_complete_label"])
	assert.Equal(t, "是", vars["run_nightmare"])
	assert.Equal(t, "无光之森", vars["tacet_name"])
	assert.Equal(t, "none", vars["notes_display"])
	assert.Equal(t, "none", vars["error_display"])
	assert.NotContains(t, vars, "run_stamina")
}

func TestVariablesStaminaSkipped(t *testing.T) {
	res := finishedRun(ledger.KindStamina)
	res.Skip("no overflow risk")
	res.ProjectedDaily = ledger.Int(210)

	vars := Variables(res, sheets.DefaultRunConfig(), time.Now())
	assert.Equal(t, "体力任务 · 跳过", vars["title"])
	assert.Equal(t, "210", vars["projected_daily_stamina"])
	assert.Equal(t, "block", vars["notes_display"])
	assert.Equal(t, "table-row", vars["decision_display"])
	assert.Equal(t, "none", vars["error_display"])
	assert.NotContains(t, vars, "daily_points")
}

func TestSubjectAndSummary(t *testing.T) {
	res := finishedRun(ledger.KindStamina)
	assert.Equal(t, "2025-11-29 WW Stamina: success", Subject(res, time.Now()))

	vars := Variables(res, sheets.DefaultRunConfig(), time.Now())
	text := TextSummary(ledger.KindStamina, vars)
	assert.Contains(t, text, "体力: 240 -> 180")
	assert.Contains(t, text, "体力消耗: 60")
	assert.NotContains(t, text, "错误")
}

func TestSendReportPicksTemplate(t *testing.T) {
	var got captured
	srv := mailgunServer(t, http.StatusOK, &got)
	m, err := NewMailer(testConfig(srv.URL), httpclient.New(noRetry(), nil))
	require.NoError(t, err)

	require.NoError(t, m.SendReport(context.Background(), finishedRun(ledger.KindStamina), sheets.DefaultRunConfig()))
	assert.Equal(t, "stamina-report", got.form.Get("template"))

	var vars map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.form.Get("h:X-Mailgun-Variables")), &vars))
	assert.Equal(t, "180", vars["stamina_left"])
}
