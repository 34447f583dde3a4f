package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the viewer.
type KeyMap struct {
	Scan    key.Binding
	Close   key.Binding
	Advance key.Binding
	Exit    key.Binding
	Debug   key.Binding
	Markers key.Binding
	Quit    key.Binding

	// Simulated tracking, only active without a tracker.
	Found    key.Binding
	Lost     key.Binding
	Extended key.Binding

	// Event log overlay.
	Up    key.Binding
	Down  key.Binding
	Clear key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Scan: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "scan"),
		),
		Close: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "close"),
		),
		Advance: key.NewBinding(
			key.WithKeys("n", " "),
			key.WithHelp("n/space", "next meme"),
		),
		Exit: key.NewBinding(
			key.WithKeys("esc", "m"),
			key.WithHelp("esc", "menu"),
		),
		Debug: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "event log"),
		),
		Markers: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "markers"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Found: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "marker found"),
		),
		Lost: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "marker lost"),
		),
		Extended: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "extended"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "scroll down"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear"),
		),
	}
}
