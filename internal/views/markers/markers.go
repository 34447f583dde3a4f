// Package markers renders a summary row and a table of every marker the
// tracker has reported.
package markers

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/theme"
)

// Model holds the marker table state.
type Model struct {
	Width int
	// Followed is the ID the display controller is locked onto, if any.
	Followed string

	rows []*targets.TargetState
	now  func() time.Time
}

func New() Model {
	return Model{now: time.Now}
}

// SetTargets replaces the rows. States are shown in the given order.
func (m *Model) SetTargets(states []*targets.TargetState) {
	m.rows = states
}

// View renders the stats row and the table.
func (m Model) View() string {
	width := max(m.Width, 40)
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsRow(width),
		m.renderTable(width),
	)
}

func (m Model) renderStatsRow(width int) string {
	var visible, lost int
	for _, st := range m.rows {
		if st.Status.Visible() {
			visible++
		} else {
			lost++
		}
	}

	statStyle := lipgloss.NewStyle().Padding(0, 1)
	stats := []string{
		statStyle.Foreground(theme.ColorBright).Render(fmt.Sprintf("Markers: %d", len(m.rows))),
		statStyle.Foreground(theme.ColorTracked).Render(fmt.Sprintf("Visible: %d", visible)),
		statStyle.Foreground(theme.ColorDimmed).Render(fmt.Sprintf("Lost: %d", lost)),
	}
	content := strings.Join(stats, lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | "))

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) renderTable(width int) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBright).Render("  Markers")
	if len(m.rows) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			theme.StyleDimmed.Render("  No markers reported yet"),
		)
	}

	const (
		colFollow = 2
		colName   = 24
		colStatus = 18
		colAge    = 8
	)
	colInfo := max(width-colFollow-colName-colStatus-colAge-8, 8)

	dim := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	lines := []string{
		header,
		dim.Render(fmt.Sprintf("  %-*s %-*s %-*s %-*s %s",
			colFollow, "", colName, "Name", colStatus, "Status", colAge, "Age", "Info")),
		dim.Render("  " + strings.Repeat("─", min(width-4, colFollow+colName+colStatus+colAge+colInfo+4))),
	}

	now := m.now
	if now == nil {
		now = time.Now
	}
	for _, st := range m.rows {
		mark := " "
		if st.Target.ID == m.Followed {
			mark = "▸"
		}
		status := st.Status.String()
		line := fmt.Sprintf("  %-*s %s %s %s %s",
			colFollow, mark,
			lipgloss.NewStyle().Foreground(theme.ColorBright).Width(colName).Render(truncate(st.Target.DisplayName(), colName-1)),
			lipgloss.NewStyle().Foreground(theme.StatusColor(status)).Width(colStatus).Render(status),
			dim.Width(colAge).Render(formatAge(now().Sub(st.UpdatedAt))),
			dim.Render(truncate(st.Info, colInfo)),
		)
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return "now"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}
