package ledger

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the sheet-friendly timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Column headers for each layout, in row order.
var (
	DailyHeader = []string{
		"started_at", "ended_at", "duration", "status",
		"stamina_start", "backup_start", "stamina_used", "stamina_left", "backup_left",
		"daily_points", "next_daily_stamina", "next_daily_backup", "run_nightmare",
		"decision", "error",
	}
	StaminaHeader = []string{
		"started_at", "ended_at", "duration", "status",
		"stamina_start", "backup_start", "stamina_used", "stamina_left", "backup_left",
		"next_daily_stamina", "next_daily_backup",
		"decision", "error",
	}
	FarmHeader = []string{
		"started_at", "ended_at", "duration", "status",
		"fight_count", "fight_speed", "echo_start", "echo_end", "echo_gained", "merge_count",
		"error",
	}
)

// FormatTimestamp renders t in its own location.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatDuration renders whole seconds as "4d 3h 2m 30s", omitting zero
// parts; zero renders as "0s".
func FormatDuration(seconds int) string {
	seconds = max(0, seconds)
	days, seconds := seconds/86400, seconds%86400
	hours, seconds := seconds/3600, seconds%3600
	minutes, seconds := seconds/60, seconds%60

	var parts []string
	if days > 0 {
		parts = append(parts, strconv.Itoa(days)+"d")
	}
	if hours > 0 {
		parts = append(parts, strconv.Itoa(hours)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.Itoa(minutes)+"m")
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, strconv.Itoa(seconds)+"s")
	}
	return strings.Join(parts, " ")
}

func wholeSeconds(start, end time.Time) int {
	return int(max(0, end.Sub(start)).Round(time.Second) / time.Second)
}

func basicColumns(start, end time.Time, status Status) []string {
	return []string{
		FormatTimestamp(start),
		FormatTimestamp(end),
		FormatDuration(wholeSeconds(start, end)),
		string(status),
	}
}

func cell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
