// Package status renders the viewer's top bar.
package status

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/memelens/memelens/internal/theme"
)

// Model holds what the bar shows. The app refreshes the fields from the
// controller before each render.
type Model struct {
	Simulated bool
	Connected bool
	Scanning  bool // camera active, so a missing connection is worth showing
	State     string
	Target    string
	Index     int
	Max       int
	Loading   bool
	Err       string
	Width     int

	spinner spinner.Model
}

func New() Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorFetch)
	return Model{spinner: s}
}

// Tick starts the spinner animation.
func (m Model) Tick() tea.Msg {
	return m.spinner.Tick()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	width := max(m.Width, 40)
	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")

	content := m.connection() + sep + lipgloss.NewStyle().
		Foreground(theme.StateColor(m.State)).
		Render(theme.StateGlyph(m.State)+" "+m.State)

	if m.Target != "" {
		content += sep + "marker " + m.Target
	}
	if m.Max > 0 {
		content += sep + fmt.Sprintf("meme %d/%d", m.Index, m.Max)
	}
	if m.Loading {
		content += sep + m.spinner.View() + " loading"
	}
	if m.Err != "" {
		content += sep + theme.StyleError.Render("✗ "+m.Err)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) connection() string {
	switch {
	case m.Simulated:
		return lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("◆ Simulated")
	case m.Connected:
		return lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	case m.Scanning:
		return lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Connecting...")
	default:
		return theme.StyleDimmed.Render("○ Camera off")
	}
}
