package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/felixgeelhaar/wavekeeper/internal/journal"
	"github.com/felixgeelhaar/wavekeeper/internal/ledger"
	"github.com/felixgeelhaar/wavekeeper/internal/orchestrator"
	"github.com/felixgeelhaar/wavekeeper/internal/ux"
)

func optInt(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func pools(current, backup *int) string {
	return optInt(current) + " + " + optInt(backup)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func seconds(d time.Duration) int { return int(d.Round(time.Second) / time.Second) }

// runView renders a daily or stamina result.
type runView struct {
	*ledger.RunResult
}

func (v runView) RenderText(s ux.Styles) string {
	r := v.RunResult
	title := fmt.Sprintf("%s run  %s", r.Kind, s.StatusBadge(string(r.Status)))
	pairs := [][2]string{
		{"ID", r.ID},
		{"Started", ledger.FormatTimestamp(r.StartedAt)},
		{"Duration", ledger.FormatDuration(seconds(r.Duration(time.Now())))},
		{"Stamina start", pools(r.StaminaStart, r.BackupStart)},
		{"Stamina end", pools(r.StaminaLeft, r.BackupLeft)},
		{"Stamina used", optInt(r.StaminaUsed)},
	}
	if r.Kind == ledger.KindDaily {
		pairs = append(pairs, [2]string{"Daily points", optInt(r.DailyPoints)})
	}
	pairs = append(pairs, [2]string{"At next reset", pools(r.NextDailyStamina, r.NextDailyBackup)})
	if r.Decision != "" {
		pairs = append(pairs, [2]string{"Decision", r.Decision})
	}
	if r.Error != "" {
		pairs = append(pairs, [2]string{"Error", r.Error})
	}
	return s.Header(title) + "\n" + s.Fields(pairs)
}

// reportView adds the exit code to a run.
type reportView struct {
	*orchestrator.Report
}

func (v reportView) RenderText(s ux.Styles) string {
	out := runView{v.Result}.RenderText(s)
	if v.Shutdown {
		out += "\n" + s.Label("Shutdown requested")
	}
	return out
}

// farmView renders one farm iteration.
type farmView struct {
	*ledger.FarmResult
}

func farmRow(f *ledger.FarmResult, s ux.Styles) []string {
	end := time.Now()
	if f.EndedAt != nil {
		end = *f.EndedAt
	}
	return []string{
		shortID(f.ID),
		s.StatusBadge(string(f.Status)),
		ledger.FormatTimestamp(f.StartedAt),
		ledger.FormatDuration(seconds(end.Sub(f.StartedAt))),
		optInt(f.FightCount),
		optInt(f.FightSpeed),
		optInt(f.EchoGained),
		optInt(f.MergeCount),
		f.Error,
	}
}

var farmHeaders = []string{"ID", "STATUS", "STARTED", "DURATION", "FIGHTS", "PER HOUR", "ECHOES", "MERGED", "ERROR"}

func (v farmView) RenderText(s ux.Styles) string {
	return s.Table(farmHeaders, [][]string{farmRow(v.FarmResult, s)})
}

// farmReportView renders a farm session.
type farmReportView struct {
	*orchestrator.FarmReport
}

func (v farmReportView) RenderText(s ux.Styles) string {
	rows := make([][]string, 0, len(v.Iterations))
	for _, it := range v.Iterations {
		rows = append(rows, farmRow(it, s))
	}
	head := s.Header(fmt.Sprintf("Farm session until %s", ledger.FormatTimestamp(v.Deadline)))
	if len(rows) == 0 {
		return head + "\nno iterations ran"
	}
	return head + "\n" + s.Table(farmHeaders, rows)
}

// entriesView renders the journal listing.
type entriesView []journal.Entry

func (v entriesView) RenderText(s ux.Styles) string {
	if len(v) == 0 {
		return "journal is empty"
	}
	rows := make([][]string, 0, len(v))
	for _, e := range v {
		rows = append(rows, []string{
			shortID(e.ID),
			string(e.Kind),
			s.StatusBadge(string(e.Status)),
			ledger.FormatTimestamp(e.StartedAt),
		})
	}
	return s.Table([]string{"ID", "KIND", "STATUS", "STARTED"}, rows)
}
