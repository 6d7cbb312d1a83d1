package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/sheets"
)

// DailyPointsGoal is the activity score that completes the daily tasks.
const DailyPointsGoal = 100

type statusStyle struct{ label, color string }

var statusStyles = map[ledger.Status]statusStyle{
	ledger.StatusSuccess:     {"成功", "#22c55e"},
	ledger.StatusFailed:      {"失败", "#ef4444"},
	ledger.StatusSkipped:     {"跳过", "#9ca3af"},
	ledger.StatusNeedsReview: {"需复查", "#f59e0b"},
	ledger.StatusRunning:     {"运行中", "#3b82f6"},
}

// StatusStyle returns the template label and accent colour for s.
func StatusStyle(s ledger.Status) (label, color string) {
	if st, ok := statusStyles[s]; ok {
		return st.label, st.color
	}
	return string(s), "#3b82f6"
}

var modeNames = map[ledger.Kind]string{
	ledger.KindDaily:   "日常任务",
	ledger.KindStamina: "体力任务",
}

// Subject renders "2006-01-02 WW Daily: success".
func Subject(res *ledger.RunResult, now time.Time) string {
	kind := string(res.Kind)
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	return fmt.Sprintf("%s WW %s: %s", endOf(res, now).Format("2006-01-02"), kind, res.Status)
}

func endOf(res *ledger.RunResult, now time.Time) time.Time {
	if res.EndedAt != nil {
		return *res.EndedAt
	}
	return now
}

func str(v *int) string {
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

func display(visible bool, shown string) string {
	if visible {
		return shown
	}
	return "none"
}

// Variables builds the Mailgun template variables for a daily or stamina run.
func Variables(res *ledger.RunResult, rc sheets.RunConfig, now time.Time) map[string]any {
	end := endOf(res, now)
	label, color := StatusStyle(res.Status)
	mode := modeNames[res.Kind]

	vars := map[string]any{
		"title":                     mode + " · " + label,
		"run_mode_name":             mode,
		"status_label":              label,
		"status_color":              color,
		"started_at":                ledger.FormatTimestamp(res.StartedAt),
		"ended_at":                  ledger.FormatTimestamp(end),
		"duration":                  ledger.FormatDuration(int(res.Duration(now).Round(time.Second) / time.Second)),
		"stamina_start":             str(res.StaminaStart),
		"backup_start":              str(res.BackupStart),
		"stamina_used":              str(res.StaminaUsed),
		"stamina_left":              str(res.StaminaLeft),
		"backup_stamina":            str(res.BackupLeft),
		"next_daily_stamina":        str(res.NextDailyStamina),
		"next_daily_backup_stamina": str(res.NextDailyBackup),
		"tacet_name":                rc.TacetName,
		"tacet_set1":                rc.TacetSet1,
		"tacet_set2":                rc.TacetSet2,
		"decision":                  res.Decision,
		"error":                     res.Error,
		"notes_display":             display(res.Decision != "" || res.Error != "", "block"),
		"decision_display":          display(res.Decision != "", "table-row"),
		"error_display":             display(res.Error != "", "table-row"),
	}

	switch res.Kind {
	case ledger.KindDaily:
		complete := ""
		if res.DailyPoints != nil {
			complete = yesNo(*res.DailyPoints >= DailyPointsGoal)
		}
		vars["daily_points"] = str(res.DailyPoints)
		vars["daily_complete_label"] = complete
		vars["run_daily"] = yesNo(rc.RunDaily)
		vars["run_nightmare"] = yesNo(res.RunNightmare)
	case ledger.KindStamina:
		vars["run_stamina"] = yesNo(rc.RunStamina)
		vars["projected_daily_stamina"] = str(res.ProjectedDaily)
	}
	return vars
}

// TextSummary renders the plain-text part from the template variables.
func TextSummary(kind ledger.Kind, vars map[string]any) string {
	get := func(k string) string {
		if v, ok := vars[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}
	lines := []string{
		get("title"),
		"开始: " + get("started_at"),
		"结束: " + get("ended_at"),
		"时长: " + get("duration"),
		fmt.Sprintf("体力: %s -> %s", get("stamina_start"), get("stamina_left")),
	}
	switch kind {
	case ledger.KindDaily:
		lines = append(lines, "日常积分: "+get("daily_points"))
	case ledger.KindStamina:
		lines = append(lines, "体力消耗: "+get("stamina_used"))
	}
	if d := get("decision"); d != "" {
		lines = append(lines, "提示: "+d)
	}
	if e := get("error"); e != "" {
		lines = append(lines, "错误: "+e)
	}
	return strings.Join(lines, "\n")
}

// TemplateFor returns the configured template for kind.
func (m *Mailer) TemplateFor(kind ledger.Kind) string {
	switch kind {
	case ledger.KindDaily:
		return m.cfg.TemplateDaily
	case ledger.KindStamina:
		return m.cfg.TemplateStamina
	}
	return ""
}

// SendReport emails the summary of a finished run.
func (m *Mailer) SendReport(ctx context.Context, res *ledger.RunResult, rc sheets.RunConfig) error {
	now := time.Now()
	vars := Variables(res, rc, now)
	return m.Send(ctx, Message{
		Subject:   Subject(res, now),
		Template:  m.TemplateFor(res.Kind),
		Variables: vars,
		Text:      TextSummary(res.Kind, vars),
	})
}
