package ledger

import (
	"time"

	"github.com/google/uuid"
)

// FarmResult is the record of one farm iteration.
type FarmResult struct {
	ID        string     `json:"id" yaml:"id"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" yaml:"ended_at,omitempty"`
	Status    Status     `json:"status" yaml:"status"`

	FightCount *int `json:"fight_count,omitempty" yaml:"fight_count,omitempty"`
	// FightSpeed is fights per hour.
	FightSpeed *int `json:"fight_speed,omitempty" yaml:"fight_speed,omitempty"`

	EchoStart  *int `json:"echo_start,omitempty" yaml:"echo_start,omitempty"`
	EchoEnd    *int `json:"echo_end,omitempty" yaml:"echo_end,omitempty"`
	EchoGained *int `json:"echo_gained,omitempty" yaml:"echo_gained,omitempty"`
	MergeCount *int `json:"merge_count,omitempty" yaml:"merge_count,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewFarm starts a farm record in the running state.
func NewFarm(startedAt time.Time) *FarmResult {
	return &FarmResult{ID: uuid.NewString(), StartedAt: startedAt, Status: StatusRunning}
}

// Succeed marks the iteration successful.
func (f *FarmResult) Succeed() { f.Status = StatusSuccess }

// Fail marks the iteration failed and records err verbatim.
func (f *FarmResult) Fail(err error) {
	f.Status = StatusFailed
	if err != nil {
		f.Error = err.Error()
	}
}

// Close stamps EndedAt once and derives speed and gain.
func (f *FarmResult) Close(now time.Time) {
	if f.EndedAt == nil {
		f.EndedAt = &now
	}
	if !f.Status.Terminal() {
		f.Status = StatusFailed
		if f.Error == "" {
			f.Error = "iteration ended without a result"
		}
	}
	f.derive(*f.EndedAt)
}

func (f *FarmResult) derive(end time.Time) {
	if secs := wholeSeconds(f.StartedAt, end); f.FightCount != nil && secs > 0 {
		f.FightSpeed = Int(max(0, roundHalfEven(*f.FightCount*3600, secs)))
	}
	if f.EchoStart != nil && f.EchoEnd != nil {
		f.EchoGained = Int(max(0, *f.EchoEnd-*f.EchoStart))
	}
}

// Row renders the farm layout.
func (f *FarmResult) Row(now time.Time) []string {
	end := now
	if f.EndedAt != nil {
		end = *f.EndedAt
	}
	f.derive(end)
	row := basicColumns(f.StartedAt, end, f.Status)
	return append(row,
		cell(f.FightCount), cell(f.FightSpeed),
		cell(f.EchoStart), cell(f.EchoEnd), cell(f.EchoGained), cell(f.MergeCount),
		f.Error,
	)
}
