package ux

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var statusColors = map[string]lipgloss.Color{
	"success":      lipgloss.Color("#22c55e"),
	"failed":       lipgloss.Color("#ef4444"),
	"skipped":      lipgloss.Color("#9ca3af"),
	"needs_review": lipgloss.Color("#f59e0b"),
	"running":      lipgloss.Color("#3b82f6"),
	"healthy":      lipgloss.Color("#22c55e"),
	"degraded":     lipgloss.Color("#f59e0b"),
	"unhealthy":    lipgloss.Color("#ef4444"),
}

// Styles renders text output. The zero value renders without color.
type Styles struct {
	color  bool
	header lipgloss.Style
	label  lipgloss.Style
}

// NewStyles returns the styles used for terminal output.
func NewStyles(noColor bool) Styles {
	if noColor {
		return Styles{}
	}
	return Styles{
		color:  true,
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// StatusBadge renders a run status in its color.
func (s Styles) StatusBadge(status string) string {
	c, ok := statusColors[status]
	if !s.color || !ok {
		return status
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(status)
}

// Header renders a section or column header.
func (s Styles) Header(text string) string {
	if !s.color {
		return text
	}
	return s.header.Render(text)
}

// Label renders a field label.
func (s Styles) Label(text string) string {
	if !s.color {
		return text
	}
	return s.label.Render(text)
}

// Table lays out rows in columns separated by two spaces. Widths are
// measured in terminal cells, so wide characters and styled cells line up.
func (s Styles) Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string, style func(string) string) {
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			if style != nil {
				cell = style(cell)
			}
			b.WriteString(cell)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", pad+2))
			}
		}
		b.WriteString("\n")
	}
	writeRow(headers, s.Header)
	for _, row := range rows {
		writeRow(row, nil)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Fields renders label/value pairs one per line with aligned values.
func (s Styles) Fields(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		pad := strings.Repeat(" ", width-lipgloss.Width(p[0])+2)
		lines = append(lines, s.Label(p[0]+":")+pad+p[1])
	}
	return strings.Join(lines, "\n")
}
