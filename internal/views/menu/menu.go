// Package menu renders the start screen.
package menu

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/memelens/memelens/internal/fetch"
	"github.com/memelens/memelens/internal/theme"
	"github.com/memelens/memelens/internal/views/surface"
)

const Title = "MEMELENS"

// DefaultHelp is the markdown shown under the title.
const DefaultHelp = `Point the camera at a **marker** and a meme appears on it.

1. Press **s** to start scanning.
2. When the marker is found the first meme loads onto it.
3. Press **n** or **space** for the next one. The slideshow wraps around.
4. Press **esc** to stop scanning and come back here.

Press **q** to close.`

const maxBackgroundCols = 48

// Model holds the rendered help text and optional background image.
type Model struct {
	help       string
	background *fetch.Image

	width    int
	rendered string
	bg       string
}

func New(help string, background *fetch.Image) Model {
	if help == "" {
		help = DefaultHelp
	}
	m := Model{help: help, background: background}
	m.SetWidth(80)
	return m
}

// SetWidth re-renders the help text and background for a new terminal
// width.
func (m *Model) SetWidth(width int) {
	if width <= 0 || width == m.width {
		return
	}
	m.width = width
	m.rendered = renderMarkdown(m.help, min(width-4, 80))

	m.bg = ""
	if m.background != nil {
		cols, rows := surface.CellsFor(m.background.Aspect(), min(width/2, maxBackgroundCols))
		m.bg = surface.Render(m.background.Image, cols, rows)
	}
}

func renderMarkdown(md string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(wrap, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// View renders the menu centered in width x height.
func (m Model) View(width, height int) string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorMenu).
		Padding(0, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorMenu).
		Render(Title)

	parts := []string{title}
	if m.bg != "" {
		parts = append(parts, "", m.bg)
	}
	parts = append(parts, "", m.rendered)

	body := lipgloss.JoinVertical(lipgloss.Center, parts...)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}
