// Package theme provides the Lip Gloss palette and shared styles for the
// viewer. It is a leaf package with no internal imports so every view can
// use it.
package theme

import "github.com/charmbracelet/lipgloss"

// Controller state colors.
var (
	ColorMenu     = lipgloss.Color("#7c3aed")
	ColorScanning = lipgloss.Color("#d97706")
	ColorVisible  = lipgloss.Color("#16a34a")
)

// Tracking status colors.
var (
	ColorTracked  = lipgloss.Color("#22c55e")
	ColorExtended = lipgloss.Color("#06b6d4")
	ColorLimited  = lipgloss.Color("#854d0e")
	ColorNoPose   = lipgloss.Color("#374151")
)

// Debug log kind colors.
var (
	ColorFetch = lipgloss.Color("#3b82f6")
	ColorState = lipgloss.Color("#a855f7")
	ColorWS    = lipgloss.Color("#2563eb")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorDefault = lipgloss.Color("#9ca3af")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// StateColor returns the color for a controller state name.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "menu":
		return ColorMenu
	case "scanning":
		return ColorScanning
	case "target_visible":
		return ColorVisible
	default:
		return ColorDefault
	}
}

// StatusColor returns the color for a tracking status name.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "tracked":
		return ColorTracked
	case "extended_tracked":
		return ColorExtended
	case "limited":
		return ColorLimited
	case "no_pose":
		return ColorNoPose
	default:
		return ColorDefault
	}
}

// StateGlyph returns a glyph for a controller state name.
func StateGlyph(state string) string {
	switch state {
	case "menu":
		return "☰"
	case "scanning":
		return "◌"
	case "target_visible":
		return "◉"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)
)
