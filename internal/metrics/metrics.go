// Package metrics records run outcomes as Prometheus metrics. wavekeeper is
// a scheduled job rather than a server, so metrics are written to a
// node-exporter textfile at the end of each invocation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	kerrors "github.com/felixgeelhaar/wavekeeper/internal/errors"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/supervisor"
)

// Metrics holds all Prometheus metrics for wavekeeper
type Metrics struct {
	// Run metrics
	Runs        *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	// Supervised task metrics
	SupervisedTasks *prometheus.CounterVec
	TaskDuration    *prometheus.HistogramVec

	// Stamina metrics
	StaminaBurned prometheus.Counter
	Stamina       *prometheus.GaugeVec

	// Farm metrics
	FarmIterations *prometheus.CounterVec
	FarmFights     prometheus.Counter
	EchoesMerged   prometheus.Counter

	// Hook failures by hook name
	HookFailures *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec

	LastRun *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavekeeper_runs_total",
				Help: "Total number of finished runs",
			},
			[]string{"kind", "status"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wavekeeper_run_duration_seconds",
				Help:    "Run duration in seconds",
				Buckets: []float64{60, 300, 600, 900, 1200, 1800, 3600, 7200},
			},
			[]string{"kind"},
		),

		SupervisedTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavekeeper_supervised_tasks_total",
				Help: "Total number of supervised automation tasks by outcome",
			},
			[]string{"task", "outcome"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wavekeeper_task_duration_seconds",
				Help:    "Supervised task duration in seconds",
				Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 3600},
			},
			[]string{"task"},
		),

		StaminaBurned: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wavekeeper_stamina_burned_total",
				Help: "Total stamina spent by stamina runs",
			},
		),
		Stamina: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wavekeeper_stamina",
				Help: "Last observed stamina by pool",
			},
			[]string{"pool"},
		),

		FarmIterations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavekeeper_farm_iterations_total",
				Help: "Total number of farm iterations",
			},
			[]string{"status"},
		),
		FarmFights: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wavekeeper_farm_fights_total",
				Help: "Total number of farm fights",
			},
		),
		EchoesMerged: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wavekeeper_echoes_merged_total",
				Help: "Total number of echo merges",
			},
		),

		HookFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavekeeper_hook_failures_total",
				Help: "Total number of failed reporting hooks",
			},
			[]string{"hook"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wavekeeper_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),

		LastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wavekeeper_last_run_timestamp_seconds",
				Help: "Unix time the last run of each kind ended",
			},
			[]string{"kind"},
		),
	}
}

// Stamina pools.
const (
	PoolCurrent = "current"
	PoolBackup  = "backup"
)

// ObserveRun records a closed daily or stamina run.
func (m *Metrics) ObserveRun(res *ledger.RunResult, now time.Time) {
	kind := string(res.Kind)
	m.Runs.WithLabelValues(kind, string(res.Status)).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(res.Duration(now).Seconds())

	end := now
	if res.EndedAt != nil {
		end = *res.EndedAt
	}
	m.LastRun.WithLabelValues(kind).Set(float64(end.Unix()))

	if res.Kind == ledger.KindStamina && res.StaminaUsed != nil && *res.StaminaUsed > 0 {
		m.StaminaBurned.Add(float64(*res.StaminaUsed))
	}
	if res.StaminaLeft != nil {
		m.Stamina.WithLabelValues(PoolCurrent).Set(float64(*res.StaminaLeft))
	}
	if res.BackupLeft != nil {
		m.Stamina.WithLabelValues(PoolBackup).Set(float64(*res.BackupLeft))
	}
}

// ObserveFarm records a closed farm iteration.
func (m *Metrics) ObserveFarm(res *ledger.FarmResult) {
	m.FarmIterations.WithLabelValues(string(res.Status)).Inc()
	if res.FightCount != nil {
		m.FarmFights.Add(float64(*res.FightCount))
	}
	if res.MergeCount != nil {
		m.EchoesMerged.Add(float64(*res.MergeCount))
	}
}

// ObserveError counts err under its error code. Errors without one count
// as "unknown".
func (m *Metrics) ObserveError(component string, err error) {
	if err == nil {
		return
	}
	code := string(kerrors.CodeOf(err))
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code, component).Inc()
}

// TaskObserver returns a supervisor.Observer feeding the task metrics.
func (m *Metrics) TaskObserver() supervisor.Observer {
	return func(taskName string, outcome supervisor.Outcome, elapsed time.Duration) {
		m.SupervisedTasks.WithLabelValues(taskName, string(outcome)).Inc()
		m.TaskDuration.WithLabelValues(taskName).Observe(elapsed.Seconds())
	}
}
