// Package ledger records the outcome of one run and renders it as a
// spreadsheet row.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/wavekeeper/internal/forecast"
)

// Kind names the workflow that produced a result.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindStamina Kind = "stamina"
	KindFarm    Kind = "farm"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSuccess     Status = "success"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
	StatusNeedsReview Status = "needs_review"
)

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusSkipped, StatusFailed, StatusNeedsReview:
		return true
	}
	return false
}

// Failed reports whether s should produce a failing exit code.
func (s Status) Failed() bool { return s == StatusFailed }

// RunResult is the record of one daily or stamina run.
type RunResult struct {
	ID        string     `json:"id" yaml:"id"`
	Kind      Kind       `json:"kind" yaml:"kind"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Status    Status     `json:"status" yaml:"status"`

	StaminaStart *int `json:"stamina_start,omitempty" yaml:"stamina_start,omitempty"`
	BackupStart  *int `json:"backup_start,omitempty" yaml:"backup_start,omitempty"`
	StaminaUsed  *int `json:"stamina_used,omitempty" yaml:"stamina_used,omitempty"`
	StaminaLeft  *int `json:"stamina_left,omitempty" yaml:"stamina_left,omitempty"`
	BackupLeft   *int `json:"backup_left,omitempty" yaml:"backup_left,omitempty"`

	// ProjectedDaily is the weighted level expected at the next reset after spending.
	ProjectedDaily   *int `json:"projected_daily,omitempty" yaml:"projected_daily,omitempty"`
	NextDailyStamina *int `json:"next_daily_stamina,omitempty" yaml:"next_daily_stamina,omitempty"`
	NextDailyBackup  *int `json:"next_daily_backup,omitempty" yaml:"next_daily_backup,omitempty"`

	DailyPoints  *int `json:"daily_points,omitempty" yaml:"daily_points,omitempty"`
	RunNightmare bool `json:"run_nightmare" yaml:"run_nightmare"`

	Decision string `json:"decision,omitempty" yaml:"decision,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// New starts a result in the running state.
func New(kind Kind, startedAt time.Time) *RunResult {
	return &RunResult{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: startedAt,
		Status:    StatusRunning,
	}
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Succeed marks the run successful.
func (r *RunResult) Succeed() { r.Status = StatusSuccess }

// Skip marks the run skipped with the reason as its decision.
func (r *RunResult) Skip(reason string) {
	r.Status = StatusSkipped
	r.Decision = reason
}

// Fail marks the run failed and records err verbatim.
func (r *RunResult) Fail(err error) {
	r.Status = StatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// NeedsReview marks a run that finished but left values a human should check.
func (r *RunResult) NeedsReview(note string) {
	r.Status = StatusNeedsReview
	if note != "" {
		if r.Error != "" {
			r.Error += "; "
		}
		r.Error += note
	}
}

// Close stamps EndedAt once. A run still in the running state is failed.
func (r *RunResult) Close(now time.Time) {
	if r.EndedAt == nil {
		r.EndedAt = &now
	}
	if !r.Status.Terminal() {
		r.Status = StatusFailed
		if r.Error == "" {
			r.Error = "run ended without a result"
		}
	}
}

// Duration is EndedAt minus StartedAt, or now minus StartedAt while open.
func (r *RunResult) Duration(now time.Time) time.Duration {
	end := now
	if r.EndedAt != nil {
		end = *r.EndedAt
	}
	return max(0, end.Sub(r.StartedAt))
}

// SetStart records the start snapshot.
func (r *RunResult) SetStart(current, backup *int) {
	r.StaminaStart, r.BackupStart = current, backup
}

// SetEnd records the end snapshot. Nil values keep what is already there.
func (r *RunResult) SetEnd(current, backup *int) {
	if current != nil {
		r.StaminaLeft = current
	}
	if backup != nil {
		r.BackupLeft = backup
	}
}

// Backfill derives StaminaUsed from the four snapshots, rounded to the
// nearest multiple of unit with ties to even. It does nothing when the
// value is already set or any snapshot is missing.
func (r *RunResult) Backfill(unit int) {
	if r.StaminaUsed != nil {
		return
	}
	if r.StaminaStart == nil || r.BackupStart == nil || r.StaminaLeft == nil || r.BackupLeft == nil {
		return
	}
	consumed := max(0, (*r.StaminaStart+*r.BackupStart)-(*r.StaminaLeft+*r.BackupLeft))
	if unit <= 1 {
		r.StaminaUsed = Int(consumed)
		return
	}
	r.StaminaUsed = Int(roundHalfEven(consumed, unit) * unit)
}

// Project fills the next-reset forecast from the end snapshot.
func (r *RunResult) Project(p forecast.Policy, reset forecast.DailyReset, now time.Time) {
	if r.StaminaLeft == nil {
		return
	}
	end := now
	if r.EndedAt != nil {
		end = *r.EndedAt
	}
	backup := 0
	if r.BackupLeft != nil {
		backup = *r.BackupLeft
	}
	s := p.Predict(*r.StaminaLeft, backup, reset.MinutesUntil(end))
	r.NextDailyStamina = Int(s.Current)
	r.NextDailyBackup = Int(s.Backup)
}

// Row renders the result in its kind's column layout.
func (r *RunResult) Row(now time.Time) ([]string, error) {
	end := now
	if r.EndedAt != nil {
		end = *r.EndedAt
	}
	basic := basicColumns(r.StartedAt, end, r.Status)
	stamina := []string{
		cell(r.StaminaStart), cell(r.BackupStart), cell(r.StaminaUsed), cell(r.StaminaLeft), cell(r.BackupLeft),
	}
	next := []string{cell(r.NextDailyStamina), cell(r.NextDailyBackup)}
	info := []string{r.Decision, r.Error}

	switch r.Kind {
	case KindDaily:
		row := append(basic, stamina...)
		row = append(row, cell(r.DailyPoints))
		row = append(row, next...)
		row = append(row, yesNo(r.RunNightmare))
		return append(row, info...), nil
	case KindStamina:
		row := append(basic, stamina...)
		row = append(row, next...)
		return append(row, info...), nil
	default:
		return nil, fmt.Errorf("no row layout for %q results", r.Kind)
	}
}

// roundHalfEven returns v/unit rounded to nearest, ties to even.
func roundHalfEven(v, unit int) int {
	q, rem := v/unit, v%unit
	switch {
	case 2*rem > unit:
		q++
	case 2*rem == unit && q%2 == 1:
		q++
	}
	return q
}
