package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFarmRow(t *testing.T) {
	f := NewFarm(start)
	f.FightCount = Int(50)
	f.EchoStart = Int(1200)
	f.EchoEnd = Int(1340)
	f.MergeCount = Int(20)
	f.Succeed()
	f.Close(start.Add(30 * time.Minute))

	assert.Equal(t, []string{
		"2026-10-17 05:00:00", "2026-10-17 05:30:00", "30m", "success",
		"50", "100", "1200", "1340", "140", "20",
		"",
	}, f.Row(start.Add(2*time.Hour)))
}

func TestFarmDerivations(t *testing.T) {
	tests := []struct {
		name       string
		fights     *int
		echoStart  *int
		echoEnd    *int
		elapsed    time.Duration
		wantSpeed  *int
		wantGained *int
	}{
		{"speed ties to even", Int(1), nil, nil, 7200 * time.Second / 5, Int(2), nil},
		{"zero elapsed leaves speed empty", Int(3), nil, nil, 0, nil, nil},
		{"echo loss clamps to zero", nil, Int(500), Int(450), time.Minute, nil, Int(0)},
		{"missing echo end", nil, Int(500), nil, time.Minute, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFarm(start)
			f.FightCount = tt.fights
			f.EchoStart, f.EchoEnd = tt.echoStart, tt.echoEnd
			f.Succeed()
			f.Close(start.Add(tt.elapsed))

			assert.Equal(t, tt.wantSpeed, f.FightSpeed)
			assert.Equal(t, tt.wantGained, f.EchoGained)
		})
	}
}

func TestFarmFail(t *testing.T) {
	f := NewFarm(start)
	f.Fail(errors.New("[RUN-003] task \"Farm\" failed: no target"))
	f.Close(start)

	row := f.Row(start)
	assert.Equal(t, "failed", row[3])
	assert.Equal(t, "[RUN-003] task \"Farm\" failed: no target", row[len(row)-1])
}
