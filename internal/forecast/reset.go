package forecast

import (
	"fmt"
	"time"
)

// DailyReset is a wall-clock time of day in a fixed location.
type DailyReset struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ServerReset is the game's daily reset, 04:30 at UTC+8.
func ServerReset() DailyReset {
	return DailyReset{Hour: 4, Minute: 30, Location: time.FixedZone("UTC+08", 8*60*60)}
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

func (r DailyReset) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

// Next returns the first occurrence strictly after now.
func (r DailyReset) Next(now time.Time) time.Time {
	local := now.In(r.location())
	target := time.Date(local.Year(), local.Month(), local.Day(), r.Hour, r.Minute, 0, 0, r.location())
	if !target.After(local) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// MinutesUntil returns the whole minutes from now to Next(now).
func (r DailyReset) MinutesUntil(now time.Time) int {
	return int(r.Next(now).Sub(now) / time.Minute)
}

// String renders the reset as "HH:MM zone".
func (r DailyReset) String() string {
	return fmt.Sprintf("%02d:%02d %s", r.Hour, r.Minute, r.location())
}
