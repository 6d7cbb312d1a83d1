// Package forecast predicts the two-tier stamina pool and decides how much
// of it to spend before the daily reset. All arithmetic is integral.
package forecast

import (
	"fmt"
)

// BackupBasis selects which backup quantity the overflow projection weighs.
type BackupBasis string

const (
	// BasisAbsolute weighs the projected backup level.
	BasisAbsolute BackupBasis = "absolute"
	// BasisGrowth weighs only the backup regenerated until the reset.
	BasisGrowth BackupBasis = "growth"
)

// Rounding selects how the overflow amount is fitted to SpendUnit.
type Rounding string

const (
	// RoundDown spends whole units not exceeding the overflow.
	RoundDown Rounding = "down"
	// RoundUp spends enough whole units to cover the overflow.
	RoundUp Rounding = "up"
)

// Policy holds the pool constants and the spending rule.
type Policy struct {
	CurrentCap          int         `yaml:"current_cap" mapstructure:"current_cap" json:"current_cap"`
	BackupCap           int         `yaml:"backup_cap" mapstructure:"backup_cap" json:"backup_cap"`
	CurrentRegenMinutes int         `yaml:"current_regen_minutes" mapstructure:"current_regen_minutes" json:"current_regen_minutes"`
	BackupRegenMinutes  int         `yaml:"backup_regen_minutes" mapstructure:"backup_regen_minutes" json:"backup_regen_minutes"`
	SpendUnit           int         `yaml:"spend_unit" mapstructure:"spend_unit" json:"spend_unit"`
	BackupWeight        int         `yaml:"backup_weight" mapstructure:"backup_weight" json:"backup_weight"`
	Target              int         `yaml:"target" mapstructure:"target" json:"target"`
	BackupBasis         BackupBasis `yaml:"backup_basis" mapstructure:"backup_basis" json:"backup_basis"`
	Rounding            Rounding    `yaml:"rounding" mapstructure:"rounding" json:"rounding"`
}

// DefaultPolicy returns the live game constants with weight 2 and target 190.
func DefaultPolicy() Policy {
	return Policy{
		CurrentCap:          240,
		BackupCap:           480,
		CurrentRegenMinutes: 6,
		BackupRegenMinutes:  12,
		SpendUnit:           60,
		BackupWeight:        2,
		Target:              190,
		BackupBasis:         BasisAbsolute,
		Rounding:            RoundDown,
	}
}

// Validate reports the first unusable field.
func (p Policy) Validate() error {
	switch {
	case p.CurrentCap <= 0 || p.BackupCap < 0:
		return fmt.Errorf("caps must be positive (current=%d backup=%d)", p.CurrentCap, p.BackupCap)
	case p.CurrentRegenMinutes <= 0 || p.BackupRegenMinutes <= 0:
		return fmt.Errorf("regen minutes must be positive (current=%d backup=%d)", p.CurrentRegenMinutes, p.BackupRegenMinutes)
	case p.SpendUnit <= 0:
		return fmt.Errorf("spend unit must be positive, got %d", p.SpendUnit)
	case p.BackupWeight < 0:
		return fmt.Errorf("backup weight must not be negative, got %d", p.BackupWeight)
	case p.Target < 0 || p.Target > p.CurrentCap:
		return fmt.Errorf("target %d outside [0, %d]", p.Target, p.CurrentCap)
	}
	switch p.BackupBasis {
	case BasisAbsolute, BasisGrowth, "":
	default:
		return fmt.Errorf("unknown backup basis %q", p.BackupBasis)
	}
	switch p.Rounding {
	case RoundDown, RoundUp, "":
	default:
		return fmt.Errorf("unknown rounding %q", p.Rounding)
	}
	return nil
}

// State is a clamped pair of pool levels.
type State struct {
	Current int `json:"current" yaml:"current"`
	Backup  int `json:"backup" yaml:"backup"`
}

// Total returns Current + Backup.
func (s State) Total() int { return s.Current + s.Backup }

func clamp(v, hi int) int {
	return max(0, min(v, hi))
}

// Clamp bounds current and backup to their caps.
func (p Policy) Clamp(current, backup int) State {
	return State{Current: clamp(current, p.CurrentCap), Backup: clamp(backup, p.BackupCap)}
}

// Predict returns the levels after minutes of regeneration. Current fills
// first; backup regenerates only from the minutes left once current is full.
func (p Policy) Predict(current, backup, minutes int) State {
	s := p.Clamp(current, backup)
	minutes = max(0, minutes)

	gained := min(p.CurrentCap-s.Current, minutes/p.CurrentRegenMinutes)
	s.Current += gained
	minutes -= gained * p.CurrentRegenMinutes

	s.Backup += min(p.BackupCap-s.Backup, minutes/p.BackupRegenMinutes)
	return s
}

// MinutesUntilFull returns the minutes current needs to reach its cap.
func (p Policy) MinutesUntilFull(current int) int {
	return (p.CurrentCap - clamp(current, p.CurrentCap)) * p.CurrentRegenMinutes
}

// AfterConsume drains amount from current first, then from backup.
func (p Policy) AfterConsume(current, backup, amount int) State {
	amount = max(0, amount)
	s := State{Current: max(0, current), Backup: max(0, backup)}
	take := min(s.Current, amount)
	s.Current -= take
	amount -= take
	s.Backup -= min(s.Backup, amount)
	return s
}

// BurnDecision is the outcome of DecideBurn.
type BurnDecision struct {
	ShouldRun bool `json:"should_run" yaml:"should_run"`
	// Amount is a multiple of SpendUnit, zero when ShouldRun is false.
	Amount int `json:"amount" yaml:"amount"`
	// Projected is the weighted level expected at the reset without spending.
	Projected *int `json:"projected,omitempty" yaml:"projected,omitempty"`
	// ProjectedAfter is Projected minus Amount.
	ProjectedAfter *int `json:"projected_after,omitempty" yaml:"projected_after,omitempty"`
	// AtReset is the predicted pool state at the reset without spending.
	AtReset *State `json:"at_reset,omitempty" yaml:"at_reset,omitempty"`
	Reason  string `json:"reason" yaml:"reason"`
}

// DecideBurn decides whether to spend before the reset that is
// minutesToReset away, and how much. A nil current means the level could
// not be read; a nil backup is treated as zero.
func (p Policy) DecideBurn(current, backup *int, minutesToReset int) BurnDecision {
	if current == nil {
		return BurnDecision{
			ShouldRun: true,
			Amount:    p.SpendUnit,
			Reason:    fmt.Sprintf("unreadable, defaulting to %d", p.SpendUnit),
		}
	}

	b := 0
	if backup != nil {
		b = *backup
	}
	now := p.Clamp(*current, b)
	at := p.Predict(now.Current, now.Backup, minutesToReset)

	basis := at.Backup
	if p.BackupBasis == BasisGrowth {
		basis = at.Backup - now.Backup
	}
	projected := at.Current + p.BackupWeight*basis

	d := BurnDecision{Projected: &projected, AtReset: &at}
	if projected <= p.CurrentCap {
		d.Reason = fmt.Sprintf("no overflow risk: %d+%d at reset", at.Current, at.Backup)
		return d
	}

	needed := projected - p.Target
	available := now.Total()
	var amount int
	if p.Rounding == RoundUp {
		amount = min(ceilUnit(needed, p.SpendUnit), floorUnit(available, p.SpendUnit))
	} else {
		amount = floorUnit(min(available, needed), p.SpendUnit)
	}

	if amount < p.SpendUnit {
		d.Reason = fmt.Sprintf("insufficient spendable amount: overflow %d, unit %d", projected-p.CurrentCap, p.SpendUnit)
		return d
	}

	after := projected - amount
	d.ShouldRun = true
	d.Amount = amount
	d.ProjectedAfter = &after
	d.Reason = fmt.Sprintf("overflow %d at reset, spending %d", projected-p.CurrentCap, amount)
	return d
}

func floorUnit(v, unit int) int {
	if v <= 0 {
		return 0
	}
	return v / unit * unit
}

func ceilUnit(v, unit int) int {
	if v <= 0 {
		return 0
	}
	return (v + unit - 1) / unit * unit
}
