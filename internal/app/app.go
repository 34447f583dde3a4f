// Package app is the viewer's root Bubble Tea model. It owns the display
// controller and turns key presses, tracker messages and fetch completions
// into controller calls, all on the Update goroutine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/memelens/memelens/internal/client"
	"github.com/memelens/memelens/internal/config"
	"github.com/memelens/memelens/internal/display"
	"github.com/memelens/memelens/internal/fetch"
	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/theme"
	"github.com/memelens/memelens/internal/tracking"
	"github.com/memelens/memelens/internal/views/debug"
	"github.com/memelens/memelens/internal/views/markers"
	"github.com/memelens/memelens/internal/views/menu"
	"github.com/memelens/memelens/internal/views/status"
	"github.com/memelens/memelens/internal/views/surface"
)

// SimulatedTargetID names the marker driven by the f/l/e keys when no
// tracker is configured.
const SimulatedTargetID = "sim-marker"

// Options configures New.
type Options struct {
	Config *config.Config
	// WS connects to the tracker. Nil runs with simulated tracking keys.
	WS         *client.WSClient
	Fetcher    Fetcher
	Background *fetch.Image
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

type frameMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	keys   KeyMap
	help   help.Model
	width  int
	height int

	ctrl     *display.Controller
	feed     *tracking.Feed
	surfaces *surface.Factory
	fx       *effects
	cam      *camera

	simulated bool
	simTarget tracking.Target

	// seen records every marker reported, followed or not.
	seen *targets.Store

	overlay     bool
	markersOpen bool
	animating   bool

	// Sub-views. The event log is shared with the controller's notify
	// callback, so it lives behind a pointer.
	log       *debug.Model
	statusBar status.Model
	menu      menu.Model
	markers   markers.Model
}

// New builds the viewer model and its controller.
func New(opts Options) (Model, error) {
	if opts.Config == nil {
		return Model{}, errors.New("app: config is required")
	}
	if opts.Fetcher == nil {
		return Model{}, errors.New("app: fetcher is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config

	ctx, cancel := context.WithCancel(context.Background())
	fx := &effects{}
	feed := tracking.NewFeed()
	factory := surface.NewFactory(cfg.Surface.CellsPerUnit)
	cam := &camera{fx: fx, ws: opts.WS, parent: ctx}
	log := debug.New()

	simID := cfg.Tracker.Target
	if simID == "" {
		simID = SimulatedTargetID
	}

	ctrl, err := display.New(display.Options{
		Sequence:   cfg.Sequence(),
		BaseSize:   cfg.Slideshow.BaseSize,
		Source:     tracking.Follow(feed, cfg.Tracker.Target),
		Camera:     cam,
		Surfaces:   factory,
		Dispatcher: &dispatcher{fx: fx, ctx: ctx, fetcher: opts.Fetcher},
		Quitter:    &quitter{fx: fx},
		Logger:     logger,
		Metrics:    opts.Metrics,
		Notify:     log.Add,
	})
	if err != nil {
		cancel()
		return Model{}, err
	}

	return Model{
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		ctrl:      ctrl,
		feed:      feed,
		surfaces:  factory,
		fx:        fx,
		cam:       cam,
		simulated: opts.WS == nil,
		simTarget: tracking.Target{ID: simID, Name: "simulated marker"},
		seen:      targets.NewStore(),
		log:       &log,
		statusBar: status.New(),
		menu:      menu.New("", opts.Background),
		markers:   markers.New(),
	}, nil
}

// Controller exposes the display controller, mainly for tests and teardown.
func (m Model) Controller() *display.Controller {
	return m.ctrl
}

// Shutdown tears the controller down and cancels outstanding work. Safe to
// call after the program has exited.
func (m Model) Shutdown() {
	m.ctrl.Shutdown()
	m.cancel()
}

// Init starts the status bar spinner.
func (m Model) Init() tea.Cmd {
	return m.statusBar.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.help.Width = msg.Width
		m.menu.SetWidth(msg.Width)
		m.markers.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case linkMsg:
		return m.handleLink(msg)

	case fetchDoneMsg:
		m.ctrl.Complete(msg.result)
		cmd := tea.Batch(m.fx.drain(), m.animate())
		return m, cmd

	case frameMsg:
		m.animating = false
		var cmd tea.Cmd
		if p := m.surfaces.Current(); p != nil && p.Step() {
			cmd = m.animate()
		}
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.statusBar, cmd = m.statusBar.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Shutdown()
		return m, tea.Batch(m.fx.drain(), tea.Quit)
	}

	if m.markersOpen {
		if key.Matches(msg, m.keys.Exit) || key.Matches(msg, m.keys.Markers) {
			m.markersOpen = false
		}
		return m, nil
	}

	if m.overlay {
		switch {
		case key.Matches(msg, m.keys.Exit), key.Matches(msg, m.keys.Debug):
			m.overlay = false
		case key.Matches(msg, m.keys.Up):
			m.log.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.log.ScrollDown(1)
		case key.Matches(msg, m.keys.Clear):
			m.log.Clear()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Debug):
		m.overlay = true
	case key.Matches(msg, m.keys.Markers):
		m.markersOpen = true
	case key.Matches(msg, m.keys.Scan):
		if err := m.ctrl.Scan(); err != nil {
			m.logger.Error("scan failed", "error", err)
		}
	case key.Matches(msg, m.keys.Close):
		m.ctrl.Close()
	case key.Matches(msg, m.keys.Advance):
		m.ctrl.Advance()
	case key.Matches(msg, m.keys.Exit):
		m.ctrl.Exit()
	case m.simulated && key.Matches(msg, m.keys.Found):
		m.simulate(tracking.Tracked)
	case m.simulated && key.Matches(msg, m.keys.Lost):
		m.simulate(tracking.NoPose)
	case m.simulated && key.Matches(msg, m.keys.Extended):
		m.simulate(tracking.ExtendedTracked)
	}
	return m, m.fx.drain()
}

func (m Model) simulate(s tracking.Status) {
	m.publish(tracking.Event{Target: m.simTarget, Status: s, Info: "simulated", At: time.Now()})
}

// publish records ev in the marker table and hands it to the controller's
// subscription.
func (m Model) publish(ev tracking.Event) {
	m.seen.Update(&targets.TargetState{
		Target:    ev.Target,
		Status:    ev.Status,
		Info:      ev.Info,
		UpdatedAt: ev.At,
	})
	m.feed.Publish(ev)
}

func (m Model) handleLink(msg linkMsg) (tea.Model, tea.Cmd) {
	if !m.cam.current(msg) {
		return m, nil
	}
	switch inner := msg.msg.(type) {
	case client.WSConnectedMsg:
		m.log.Add("ws", "connected")
		return m, m.cam.read()

	case client.WSDisconnectedMsg:
		m.log.Add("ws", fmt.Sprintf("disconnected: %v", inner.Err))
		// Without a tracker the marker cannot be considered in view.
		if m.ctrl.State() == display.StateTargetVisible {
			m.publish(tracking.Event{
				Target: m.ctrl.Target(),
				Status: tracking.NoPose,
				Info:   "tracker disconnected",
				At:     time.Now(),
			})
		}
		return m, tea.Batch(m.fx.drain(), m.cam.listen())

	case client.WSSnapshotMsg:
		for _, ev := range inner.Payload.Events() {
			m.publish(ev)
		}
		return m, tea.Batch(m.fx.drain(), m.cam.read())

	case client.WSStatusMsg:
		m.publish(inner.Event)
		return m, tea.Batch(m.fx.drain(), m.cam.read())

	case client.WSErrorMsg:
		m.log.Add("err", "tracker: "+inner.Message)
		return m, m.cam.read()
	}
	return m, nil
}

// animate schedules the next size animation frame if the live panel needs
// one and none is pending.
func (m *Model) animate() tea.Cmd {
	p := m.surfaces.Current()
	if m.animating || p == nil || !p.Animating() {
		return nil
	}
	m.animating = true
	return tea.Tick(time.Second/surface.FrameRate, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

// helpBindings lists the keys that make sense right now.
func (m Model) helpBindings() []key.Binding {
	if m.markersOpen {
		return []key.Binding{m.keys.Markers, m.keys.Exit}
	}
	if m.overlay {
		return []key.Binding{m.keys.Up, m.keys.Down, m.keys.Clear, m.keys.Exit}
	}

	c := m.ctrl.Controls()
	var out []key.Binding
	if c.Scan.Visible {
		out = append(out, m.keys.Scan)
	}
	if c.Close.Visible {
		out = append(out, m.keys.Close)
	}
	if c.Advance.Visible {
		adv := m.keys.Advance
		if !c.Advance.Interactable {
			adv.SetHelp("n/space", "next (wait)")
		}
		out = append(out, adv)
	}
	if c.Exit.Visible {
		out = append(out, m.keys.Exit)
	}
	if m.simulated && !c.Menu {
		out = append(out, m.keys.Found, m.keys.Lost, m.keys.Extended)
	}
	return append(out, m.keys.Markers, m.keys.Debug, m.keys.Quit)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sb := m.statusBar
	sb.Simulated = m.simulated
	sb.Connected = m.cam.connected()
	sb.Scanning = m.cam.active
	sb.State = m.ctrl.State().String()
	sb.Loading = m.ctrl.Loading()
	sb.Target = ""
	if m.ctrl.State() == display.StateTargetVisible {
		sb.Target = m.ctrl.Target().DisplayName()
	}
	sb.Max = 0
	if !m.ctrl.Controls().Menu {
		sb.Index = m.ctrl.Index()
		sb.Max = m.ctrl.Sequence().Max
	}
	sb.Err = ""
	if err := m.ctrl.LastError(); err != nil {
		sb.Err = err.Error()
	}

	header := sb.View()
	footer := "  " + m.help.ShortHelpView(m.helpBindings())
	bodyH := max(m.height-lipgloss.Height(header)-lipgloss.Height(footer), 3)

	var body string
	switch {
	case m.markersOpen:
		mv := m.markers
		mv.SetTargets(m.seen.GetAll())
		if m.ctrl.State() == display.StateTargetVisible {
			mv.Followed = m.ctrl.Target().ID
		}
		body = lipgloss.NewStyle().MaxHeight(bodyH).Render(mv.View())
	case m.overlay:
		body = m.log.View(m.width, bodyH)
	case m.ctrl.State() == display.StateMenu:
		body = m.menu.View(m.width, bodyH)
	case m.ctrl.State() == display.StateScanning:
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(theme.ColorScanning).Render("◌ looking for a marker..."))
	default:
		view := ""
		if p := m.surfaces.Current(); p != nil {
			view = p.View(m.width-2, bodyH)
		}
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, view)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
