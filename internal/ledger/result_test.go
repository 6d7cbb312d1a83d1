package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
)

var start = time.Date(2026, 10, 17, 5, 0, 0, 0, forecast.ServerReset().Location)

func TestNewRunResult(t *testing.T) {
	r := New(KindDaily, start)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, StatusRunning, r.Status)
	assert.Nil(t, r.EndedAt)
	assert.NotEqual(t, r.ID, New(KindDaily, start).ID)
}

func TestCloseAssignsTerminalStatus(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(r *RunResult)
		wantStatus Status
		wantError  string
	}{
		{"succeeded", func(r *RunResult) { r.Succeed() }, StatusSuccess, ""},
		{"skipped", func(r *RunResult) { r.Skip("daily disabled") }, StatusSkipped, ""},
		{"failed", func(r *RunResult) { r.Fail(errors.New("[RUN-002] timed out")) }, StatusFailed, "[RUN-002] timed out"},
		{"needs review", func(r *RunResult) { r.Succeed(); r.NeedsReview("end stamina unreadable") }, StatusNeedsReview, "end stamina unreadable"},
		{"left running", func(*RunResult) {}, StatusFailed, "run ended without a result"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(KindStamina, start)
			tt.setup(r)
			r.Close(start.Add(time.Minute))

			require.NotNil(t, r.EndedAt)
			assert.Equal(t, tt.wantStatus, r.Status)
			assert.Equal(t, tt.wantError, r.Error)
		})
	}
}

func TestCloseKeepsFirstEndTime(t *testing.T) {
	r := New(KindDaily, start)
	r.Succeed()
	r.Close(start.Add(time.Minute))
	r.Close(start.Add(time.Hour))

	assert.Equal(t, start.Add(time.Minute), *r.EndedAt)
	assert.Equal(t, time.Minute, r.Duration(start.Add(24*time.Hour)))
}

func TestBackfill(t *testing.T) {
	tests := []struct {
		name     string
		start    *int
		backup   *int
		left     *int
		backLeft *int
		preset   *int
		unit     int
		wantUsed *int
	}{
		{"exact units", Int(200), Int(100), Int(80), Int(100), nil, 60, Int(120)},
		{"rounds to nearest", Int(200), Int(0), Int(127), Int(0), nil, 10, Int(70)},
		{"tie rounds to even down", Int(200), Int(0), Int(175), Int(0), nil, 10, Int(20)},
		{"tie rounds to even up", Int(200), Int(0), Int(165), Int(0), nil, 10, Int(40)},
		{"gain clamps to zero", Int(100), Int(0), Int(150), Int(10), nil, 10, Int(0)},
		{"unit one keeps raw", Int(100), Int(5), Int(40), Int(0), nil, 1, Int(65)},
		{"missing start", nil, Int(0), Int(40), Int(0), nil, 10, nil},
		{"missing backup left", Int(100), Int(0), Int(40), nil, nil, 10, nil},
		{"preset kept", Int(200), Int(0), Int(0), Int(0), Int(60), 10, Int(60)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(KindDaily, start)
			r.SetStart(tt.start, tt.backup)
			r.SetEnd(tt.left, tt.backLeft)
			r.StaminaUsed = tt.preset

			r.Backfill(tt.unit)
			assert.Equal(t, tt.wantUsed, r.StaminaUsed)
		})
	}
}

func TestSetEndKeepsKnownValues(t *testing.T) {
	r := New(KindDaily, start)
	r.SetEnd(Int(40), Int(10))
	r.SetEnd(nil, Int(12))

	assert.Equal(t, 40, *r.StaminaLeft)
	assert.Equal(t, 12, *r.BackupLeft)
}

func TestProject(t *testing.T) {
	p := forecast.DefaultPolicy()
	reset := forecast.ServerReset()

	r := New(KindDaily, start)
	r.Project(p, reset, start)
	assert.Nil(t, r.NextDailyStamina, "no end snapshot, no projection")

	// 05:00 -> 04:30 next day is 1410 minutes: 0 + 235 current, nothing left for backup.
	r.SetEnd(Int(0), nil)
	r.Close(start)
	r.Project(p, reset, start.Add(time.Hour))
	require.NotNil(t, r.NextDailyStamina)
	assert.Equal(t, 235, *r.NextDailyStamina)
	assert.Equal(t, 0, *r.NextDailyBackup)
}

func TestRunResultRows(t *testing.T) {
	end := start.Add(26*time.Hour + 3*time.Minute + 4*time.Second)

	daily := New(KindDaily, start)
	daily.SetStart(Int(200), Int(50))
	daily.SetEnd(Int(20), Int(50))
	daily.StaminaUsed = Int(180)
	daily.DailyPoints = Int(100)
	daily.NextDailyStamina = Int(240)
	daily.NextDailyBackup = Int(10)
	daily.RunNightmare = true
	daily.Succeed()
	daily.Close(end)

	row, err := daily.Row(end)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2026-10-17 05:00:00", "2026-10-18 07:03:04", "1d 2h 3m 4s", "success",
		"200", "50", "180", "20", "50",
		"100", "240", "10", "是",
		"", "",
	}, row)
	assert.Len(t, row, len(DailyHeader))

	stamina := New(KindStamina, start)
	stamina.SetStart(Int(230), nil)
	stamina.StaminaUsed = Int(120)
	stamina.Decision = "overflow 110 at reset, spending 120"
	stamina.Fail(errors.New("boom"))

	row, err = stamina.Row(start.Add(90 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2026-10-17 05:00:00", "2026-10-17 05:01:30", "1m 30s", "failed",
		"230", "", "120", "", "",
		"", "",
		"overflow 110 at reset, spending 120", "boom",
	}, row)
	assert.Len(t, row, len(StaminaHeader))

	_, err = New(KindFarm, start).Row(end)
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0s"},
		{-5, "0s"},
		{59, "59s"},
		{60, "1m"},
		{3600, "1h"},
		{3661, "1h 1m 1s"},
		{86400, "1d"},
		{100000, "1d 3h 46m 40s"},
		{4*86400 + 3*3600 + 2*60 + 30, "4d 3h 2m 30s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}

func TestRoundHalfEven(t *testing.T) {
	tests := []struct{ v, unit, want int }{
		{0, 10, 0},
		{4, 10, 0},
		{5, 10, 0},
		{6, 10, 1},
		{15, 10, 2},
		{25, 10, 2},
		{35, 10, 4},
		{90, 60, 2},
		{30, 60, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, roundHalfEven(tt.v, tt.unit), "roundHalfEven(%d, %d)", tt.v, tt.unit)
	}
}
