package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/supervisor"
)

func TestNewMetrics(t *testing.T) {
	_, m := NewRegistry()

	tests := []struct {
		name   string
		metric interface{}
	}{
		{"Runs", m.Runs},
		{"RunDuration", m.RunDuration},
		{"SupervisedTasks", m.SupervisedTasks},
		{"TaskDuration", m.TaskDuration},
		{"StaminaBurned", m.StaminaBurned},
		{"Stamina", m.Stamina},
		{"FarmIterations", m.FarmIterations},
		{"FarmFights", m.FarmFights},
		{"EchoesMerged", m.EchoesMerged},
		{"HookFailures", m.HookFailures},
		{"Errors", m.Errors},
		{"LastRun", m.LastRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestObserveRun(t *testing.T) {
	_, m := NewRegistry()
	start := time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC)

	res := ledger.New(ledger.KindStamina, start)
	res.Succeed()
	res.StaminaUsed = ledger.Int(120)
	res.StaminaLeft = ledger.Int(30)
	res.BackupLeft = ledger.Int(200)
	res.Close(start.Add(10 * time.Minute))
	m.ObserveRun(res, start.Add(time.Hour))

	skipped := ledger.New(ledger.KindStamina, start)
	skipped.Skip("below target")
	skipped.StaminaUsed = ledger.Int(0)
	skipped.Close(start.Add(time.Minute))
	m.ObserveRun(skipped, start.Add(time.Hour))

	if got := testutil.ToFloat64(m.Runs.WithLabelValues("stamina", "success")); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues("stamina", "skipped")); got != 1 {
		t.Errorf("skipped runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StaminaBurned); got != 120 {
		t.Errorf("stamina burned = %v, want 120", got)
	}
	if got := testutil.ToFloat64(m.Stamina.WithLabelValues(PoolCurrent)); got != 30 {
		t.Errorf("current stamina = %v, want 30", got)
	}
	if got := testutil.ToFloat64(m.Stamina.WithLabelValues(PoolBackup)); got != 200 {
		t.Errorf("backup stamina = %v, want 200", got)
	}
	if got := testutil.ToFloat64(m.LastRun.WithLabelValues("stamina")); got != float64(start.Add(time.Minute).Unix()) {
		t.Errorf("last run = %v", got)
	}
	if n := testutil.CollectAndCount(m.RunDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestDailyRunDoesNotCountAsBurn(t *testing.T) {
	_, m := NewRegistry()
	res := ledger.New(ledger.KindDaily, time.Now())
	res.Succeed()
	res.StaminaUsed = ledger.Int(180)
	res.Close(time.Now())
	m.ObserveRun(res, time.Now())

	if got := testutil.ToFloat64(m.StaminaBurned); got != 0 {
		t.Errorf("stamina burned = %v, want 0", got)
	}
}

func TestObserveFarm(t *testing.T) {
	_, m := NewRegistry()
	farm := ledger.NewFarm(time.Now())
	farm.FightCount = ledger.Int(25)
	farm.MergeCount = ledger.Int(6)
	farm.Succeed()
	farm.Close(time.Now())
	m.ObserveFarm(farm)

	if got := testutil.ToFloat64(m.FarmIterations.WithLabelValues("success")); got != 1 {
		t.Errorf("iterations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FarmFights); got != 25 {
		t.Errorf("fights = %v, want 25", got)
	}
	if got := testutil.ToFloat64(m.EchoesMerged); got != 6 {
		t.Errorf("merged = %v, want 6", got)
	}
}

func TestTaskObserver(t *testing.T) {
	_, m := NewRegistry()
	observe := m.TaskObserver()
	observe("Daily Task", supervisor.OutcomeCompleted, 3*time.Minute)
	observe("Daily Task", supervisor.OutcomeTimeout, 20*time.Minute)

	if got := testutil.ToFloat64(m.SupervisedTasks.WithLabelValues("Daily Task", "completed")); got != 1 {
		t.Errorf("completed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SupervisedTasks.WithLabelValues("Daily Task", "timeout")); got != 1 {
		t.Errorf("timeout = %v, want 1", got)
	}
}

func TestObserveError(t *testing.T) {
	_, m := NewRegistry()
	m.ObserveError("sheets", kerrors.New(kerrors.ErrCodeSheets, "quota"))
	m.ObserveError("sheets", errors.New("plain"))
	m.ObserveError("sheets", nil)

	if got := testutil.ToFloat64(m.Errors.WithLabelValues("TRANSPORT-001", "sheets")); got != 1 {
		t.Errorf("coded errors = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Errors.WithLabelValues("unknown", "sheets")); got != 1 {
		t.Errorf("uncoded errors = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.HookFailures.WithLabelValues("email").Inc()

	path := filepath.Join(t.TempDir(), "textfile", "wavekeeper.prom")
	if err := WriteTextfile(reg, path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `wavekeeper_hook_failures_total{hook="email"} 1`) {
		t.Errorf("textfile missing hook failure sample:\n%s", data)
	}
}
