// Package sheets reads the run configuration from, and writes run results
// to, the Google spreadsheet that acts as wavekeeper's control panel.
package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout selects how the run configuration is located on the Config sheet.
type Layout string

const (
	// LayoutCells reads values from fixed cell positions.
	LayoutCells Layout = "cells"
	// LayoutLabels scans each row as label/value pairs.
	LayoutLabels Layout = "labels"
)

// RunConfig is the operator's per-run switches.
type RunConfig struct {
	RunDaily           bool `json:"run_daily" yaml:"run_daily"`
	ExitGameAfterDaily bool `json:"exit_game_after_daily" yaml:"exit_game_after_daily"`
	ShutdownAfterDaily bool `json:"shutdown_after_daily" yaml:"shutdown_after_daily"`
	RunNightmare       bool `json:"run_nightmare" yaml:"run_nightmare"`

	RunStamina           bool `json:"run_stamina" yaml:"run_stamina"`
	ExitGameAfterStamina bool `json:"exit_game_after_stamina" yaml:"exit_game_after_stamina"`
	ShutdownAfterStamina bool `json:"shutdown_after_stamina" yaml:"shutdown_after_stamina"`

	TacetSerial int    `json:"tacet_serial" yaml:"tacet_serial"`
	TacetName   string `json:"tacet_name" yaml:"tacet_name"`
	TacetSet1   string `json:"tacet_set1" yaml:"tacet_set1"`
	TacetSet2   string `json:"tacet_set2" yaml:"tacet_set2"`
}

// DefaultRunConfig is used for every value the sheet does not provide, and
// in full when the sheet cannot be read.
func DefaultRunConfig() RunConfig {
	return RunConfig{RunDaily: true, RunStamina: true, TacetSerial: 1}
}

// ParseRunConfig decodes the Config sheet's values with the given layout.
func ParseRunConfig(layout Layout, rows [][]string) (RunConfig, error) {
	switch layout {
	case LayoutCells, "":
		return ParseCells(rows), nil
	case LayoutLabels:
		return ParseLabels(rows), nil
	default:
		return DefaultRunConfig(), fmt.Errorf("unknown config layout %q", layout)
	}
}

type cellRef struct{ row, col int }

var (
	cellRunDaily             = cellRef{12, 1}
	cellExitGameAfterDaily   = cellRef{13, 1}
	cellShutdownAfterDaily   = cellRef{14, 1}
	cellTacetName            = cellRef{15, 1}
	cellTacetSet1            = cellRef{16, 1}
	cellRunNightmare         = cellRef{17, 1}
	cellRunStamina           = cellRef{12, 3}
	cellExitGameAfterStamina = cellRef{13, 3}
	cellShutdownAfterStamina = cellRef{14, 3}
	cellTacetSerial          = cellRef{15, 3}
	cellTacetSet2            = cellRef{16, 3}
)

// ParseCells reads the fixed-position layout. Rows and columns are 0-based.
func ParseCells(rows [][]string) RunConfig {
	get := func(c cellRef) cell {
		if c.row >= len(rows) || c.col >= len(rows[c.row]) {
			return cell{}
		}
		return cell{raw: rows[c.row][c.col], ok: true}
	}

	cfg := DefaultRunConfig()
	setBool(&cfg.RunDaily, get(cellRunDaily))
	setBool(&cfg.ExitGameAfterDaily, get(cellExitGameAfterDaily))
	setBool(&cfg.ShutdownAfterDaily, get(cellShutdownAfterDaily))
	setBool(&cfg.RunNightmare, get(cellRunNightmare))
	setBool(&cfg.RunStamina, get(cellRunStamina))
	setBool(&cfg.ExitGameAfterStamina, get(cellExitGameAfterStamina))
	setBool(&cfg.ShutdownAfterStamina, get(cellShutdownAfterStamina))
	setInt(&cfg.TacetSerial, get(cellTacetSerial))
	setString(&cfg.TacetName, get(cellTacetName))
	setString(&cfg.TacetSet1, get(cellTacetSet1))
	setString(&cfg.TacetSet2, get(cellTacetSet2))
	return cfg
}

// Labels recognised by ParseLabels.
const (
	LabelRunDaily             = "日常任务"
	LabelRunStamina           = "体力任务"
	LabelRunNightmare         = "梦魇巢穴"
	LabelTacetSerial          = "序号"
	LabelShutdownAfterDaily   = "日常后关机"
	LabelShutdownAfterStamina = "体力后关机"
	LabelExitGameAfterDaily   = "日常后退出"
	LabelExitGameAfterStamina = "体力后退出"
	LabelTacetName            = "无音区选择"
	LabelTacetSet1            = "套装1"
	LabelTacetSet2            = "套装2"
)

// ParseLabels reads each row as consecutive (label, value) cell pairs. The
// first occurrence of a label wins.
func ParseLabels(rows [][]string) RunConfig {
	pairs := map[string]string{}
	for _, row := range rows {
		for i := 0; i < len(row); i += 2 {
			key := strings.TrimSpace(row[i])
			if key == "" {
				continue
			}
			val := ""
			if i+1 < len(row) {
				val = strings.TrimSpace(row[i+1])
			}
			if _, seen := pairs[key]; !seen {
				pairs[key] = val
			}
		}
	}
	get := func(label string) cell {
		v, ok := pairs[label]
		return cell{raw: v, ok: ok}
	}

	cfg := DefaultRunConfig()
	setBool(&cfg.RunDaily, get(LabelRunDaily))
	setBool(&cfg.RunStamina, get(LabelRunStamina))
	setBool(&cfg.RunNightmare, get(LabelRunNightmare))
	setBool(&cfg.ShutdownAfterDaily, get(LabelShutdownAfterDaily))
	setBool(&cfg.ShutdownAfterStamina, get(LabelShutdownAfterStamina))
	setBool(&cfg.ExitGameAfterDaily, get(LabelExitGameAfterDaily))
	setBool(&cfg.ExitGameAfterStamina, get(LabelExitGameAfterStamina))
	setInt(&cfg.TacetSerial, get(LabelTacetSerial))
	setString(&cfg.TacetName, get(LabelTacetName))
	setString(&cfg.TacetSet1, get(LabelTacetSet1))
	setString(&cfg.TacetSet2, get(LabelTacetSet2))
	return cfg
}

// ParseBool accepts true, 1, yes, y and 是, ignoring case and surrounding
// space. Anything else is false.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "是":
		return true
	}
	return false
}

// cell is a looked-up value; ok is false when the sheet has no such cell.
type cell struct {
	raw string
	ok  bool
}

func setBool(dst *bool, c cell) {
	if c.ok {
		*dst = ParseBool(c.raw)
	}
}

// setInt keeps the default for values that are not integers.
func setInt(dst *int, c cell) {
	if !c.ok {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(c.raw)); err == nil {
		*dst = n
	}
}

func setString(dst *string, c cell) {
	if c.ok {
		*dst = strings.TrimSpace(c.raw)
	}
}
