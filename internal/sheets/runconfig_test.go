package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grid builds an n-row sheet and applies the given cell values.
func grid(n int, cells map[[2]int]string) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = make([]string, 4)
	}
	for pos, v := range cells {
		rows[pos[0]][pos[1]] = v
	}
	return rows
}

func TestParseBool(t *testing.T) {
	for _, raw := range []string{"true", "TRUE", " 1 ", "yes", "Y", "是"} {
		assert.True(t, ParseBool(raw), raw)
	}
	for _, raw := range []string{"", "false", "0", "no", "否", "maybe"} {
		assert.False(t, ParseBool(raw), raw)
	}
}

func TestParseCells(t *testing.T) {
	rows := grid(18, map[[2]int]string{
		{12, 1}: "是", {13, 1}: "否", {14, 1}: "TRUE", {15, 1}: " 无光之森 ", {16, 1}: "沉日劫明", {17, 1}: "yes",
		{12, 3}: "0", {13, 3}: "y", {14, 3}: "", {15, 3}: "3", {16, 3}: "轻云出月",
	})

	got := ParseCells(rows)
	assert.Equal(t, RunConfig{
		RunDaily:             true,
		ExitGameAfterDaily:   false,
		ShutdownAfterDaily:   true,
		RunNightmare:         true,
		RunStamina:           false,
		ExitGameAfterStamina: true,
		ShutdownAfterStamina: false,
		TacetSerial:          3,
		TacetName:            "无光之森",
		TacetSet1:            "沉日劫明",
		TacetSet2:            "轻云出月",
	}, got)
}

func TestParseCellsMissingCellsKeepDefaults(t *testing.T) {
	assert.Equal(t, DefaultRunConfig(), ParseCells(nil))

	// Only the first three rows of the block are present.
	rows := grid(15, map[[2]int]string{{12, 1}: "否"})
	got := ParseCells(rows)
	assert.False(t, got.RunDaily)
	assert.False(t, got.RunStamina, "present but empty cells are false")
	assert.Equal(t, 1, got.TacetSerial)
}

func TestParseCellsBadSerial(t *testing.T) {
	rows := grid(18, map[[2]int]string{{15, 3}: "two"})
	assert.Equal(t, 1, ParseCells(rows).TacetSerial)
}

func TestParseLabels(t *testing.T) {
	rows := [][]string{
		{"日常任务", "是", "体力任务", "否"},
		{"", "", "梦魇巢穴", "1"},
		{"序号", " 4 ", "无音区选择", "无光之森"},
		{"套装1", "沉日劫明", "套装2"},
		{"日常后关机", "yes", "体力后退出", "是"},
		{"日常任务", "否"},
	}

	got := ParseLabels(rows)
	assert.True(t, got.RunDaily, "first occurrence wins")
	assert.False(t, got.RunStamina)
	assert.True(t, got.RunNightmare)
	assert.Equal(t, 4, got.TacetSerial)
	assert.Equal(t, "无光之森", got.TacetName)
	assert.Equal(t, "沉日劫明", got.TacetSet1)
	assert.Equal(t, "", got.TacetSet2, "trailing label without value")
	assert.True(t, got.ShutdownAfterDaily)
	assert.False(t, got.ShutdownAfterStamina)
	assert.True(t, got.ExitGameAfterStamina)
}

func TestParseLabelsEmpty(t *testing.T) {
	assert.Equal(t, DefaultRunConfig(), ParseLabels([][]string{{"unrelated", "x"}}))
}

func TestParseRunConfig(t *testing.T) {
	rows := [][]string{{"日常任务", "否"}}

	got, err := ParseRunConfig(LayoutLabels, rows)
	require.NoError(t, err)
	assert.False(t, got.RunDaily)

	got, err = ParseRunConfig("", rows)
	require.NoError(t, err)
	assert.True(t, got.RunDaily, "cells layout ignores labels")

	_, err = ParseRunConfig("columns", rows)
	assert.Error(t, err)
}
