// Package display implements the controller that ties tracking status,
// user controls and the single image fetch together.
//
// A Controller is not safe for concurrent use. Every method, including the
// tracking handler it subscribes and Complete, must be called from one
// goroutine (the bubbletea Update loop in the viewer).
package display

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/memelens/memelens/internal/fetch"
	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/slideshow"
	"github.com/memelens/memelens/internal/tracking"
)

// State is the session state of the viewer.
type State int

const (
	StateMenu State = iota
	StateScanning
	StateTargetVisible
)

var stateNames = map[State]string{
	StateMenu:          "menu",
	StateScanning:      "scanning",
	StateTargetVisible: "target_visible",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Button is the presentation state of one control.
type Button struct {
	Visible      bool
	Interactable bool
}

// Controls is derived from controller state on every call; nothing here is
// stored separately.
type Controls struct {
	Menu    bool
	Scan    Button
	Close   Button
	Advance Button
	Exit    Button
}

// Options wires a Controller to its collaborators.
type Options struct {
	Sequence   slideshow.Sequence
	BaseSize   float64
	Source     tracking.Source
	Camera     Camera
	Surfaces   SurfaceFactory
	Dispatcher Dispatcher
	Quitter    Quitter
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	// Notify, if set, receives short human-readable notes (kind, message)
	// for the debug log.
	Notify func(kind, message string)
}

type Controller struct {
	seq        slideshow.Sequence
	baseSize   float64
	source     tracking.Source
	camera     Camera
	surfaces   SurfaceFactory
	dispatcher Dispatcher
	quitter    Quitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
	notify     func(kind, message string)

	state  State
	closed bool
	cursor *slideshow.Cursor

	sub     *tracking.Subscription
	surface Surface
	target  tracking.Target

	// sighting counts target-found transitions; requests remember the
	// sighting that issued them.
	sighting int
	inflight *fetch.Request
	// reissue is set when a target is re-found while a request from an
	// earlier sighting is still outstanding.
	reissue bool

	shown   int // index bound to the surface, 0 when none
	lastErr error
}

// New validates opts and returns a controller in StateMenu.
func New(opts Options) (*Controller, error) {
	if err := opts.Sequence.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sequence: %w", err)
	}
	if opts.Source == nil || opts.Camera == nil || opts.Surfaces == nil || opts.Dispatcher == nil || opts.Quitter == nil {
		return nil, errors.New("display: source, camera, surfaces, dispatcher and quitter are required")
	}
	if opts.BaseSize <= 0 {
		opts.BaseSize = DefaultBaseSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Controller{
		seq:        opts.Sequence,
		baseSize:   opts.BaseSize,
		source:     opts.Source,
		camera:     opts.Camera,
		surfaces:   opts.Surfaces,
		dispatcher: opts.Dispatcher,
		quitter:    opts.Quitter,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		notify:     opts.Notify,
		state:      StateMenu,
		cursor:     slideshow.NewCursor(opts.Sequence),
	}, nil
}

func (c *Controller) State() State { return c.state }

func (c *Controller) Closed() bool { return c.closed }

// Index returns the cursor: the image shown, or about to be.
func (c *Controller) Index() int { return c.cursor.Index() }

func (c *Controller) Sequence() slideshow.Sequence { return c.seq }

func (c *Controller) Target() tracking.Target { return c.target }

// Loading reports whether a fetch is outstanding.
func (c *Controller) Loading() bool { return c.inflight != nil }

func (c *Controller) Subscribed() bool { return c.sub != nil }

func (c *Controller) HasSurface() bool { return c.surface != nil }

// Shown returns the index currently bound to the surface, or 0.
func (c *Controller) Shown() int { return c.shown }

// LastError returns the most recent fetch or placement failure, cleared by
// the next successful fetch.
func (c *Controller) LastError() error { return c.lastErr }

// Controls returns which controls are visible and usable right now.
func (c *Controller) Controls() Controls {
	if c.closed {
		return Controls{}
	}
	switch c.state {
	case StateMenu:
		return Controls{
			Menu:  true,
			Scan:  Button{Visible: true, Interactable: true},
			Close: Button{Visible: true, Interactable: true},
		}
	case StateScanning:
		return Controls{
			Exit: Button{Visible: true, Interactable: true},
		}
	default:
		return Controls{
			Advance: Button{
				Visible:      true,
				Interactable: c.inflight == nil && c.surface != nil,
			},
			Exit: Button{Visible: true, Interactable: true},
		}
	}
}

// Scan leaves the menu: the camera starts and the controller subscribes to
// the tracking source.
func (c *Controller) Scan() error {
	if c.closed || c.state != StateMenu {
		c.logger.Debug("scan ignored", "state", c.state.String())
		return nil
	}
	if err := c.camera.Activate(); err != nil {
		c.logger.Error("failed to activate camera", "error", err)
		c.note("err", "camera: "+err.Error())
		return fmt.Errorf("failed to activate camera: %w", err)
	}
	c.sub = c.source.Subscribe(c.HandleStatus)
	c.transition(StateScanning)
	return nil
}

// Close requests program termination. Only available from the menu.
func (c *Controller) Close() {
	if c.closed || c.state != StateMenu {
		c.logger.Debug("close ignored", "state", c.state.String())
		return
	}
	c.closed = true
	c.logger.Info("close requested")
	c.quitter.Quit()
}

// Exit returns to the menu, destroying the surface and releasing the
// subscription and camera. An outstanding fetch is left to resolve; its
// result will be discarded.
func (c *Controller) Exit() {
	if c.closed || c.state == StateMenu {
		return
	}
	c.release()
	c.transition(StateMenu)
}

// Shutdown releases everything regardless of state. Safe to call twice.
func (c *Controller) Shutdown() {
	if c.state != StateMenu {
		c.release()
		c.transition(StateMenu)
	}
	c.closed = true
}

func (c *Controller) release() {
	if c.surface != nil {
		c.surface.Destroy()
		c.surface = nil
	}
	c.shown = 0
	c.sub.Close()
	c.sub = nil
	c.camera.Deactivate()
	c.reissue = false
}

// Advance steps the cursor and fetches the next image. It reports false and
// does nothing unless the advance control is interactable.
func (c *Controller) Advance() bool {
	if !c.Controls().Advance.Interactable {
		c.logger.Debug("advance ignored", "state", c.state.String(), "loading", c.inflight != nil)
		return false
	}
	idx := c.cursor.Advance()
	c.issue(idx)
	return true
}

// HandleStatus is the tracking subscription handler.
func (c *Controller) HandleStatus(ev tracking.Event) {
	if c.closed || c.state == StateMenu {
		return
	}
	c.metrics.TrackEvent(ev.Status.String())
	c.logger.Info("target status changed",
		"target", ev.Target.DisplayName(),
		"status", ev.Status.String(),
		"info", ev.Info,
	)

	if ev.Status.Visible() {
		c.targetFound(ev.Target)
	} else {
		c.targetLost()
	}
}

func (c *Controller) targetFound(target tracking.Target) {
	if c.state == StateTargetVisible {
		// Still in view (e.g. tracked -> extended); follow the handle.
		c.target = target
		c.surface.Attach(target)
		return
	}

	if c.surface == nil {
		s, err := c.surfaces.NewSurface(target)
		if err != nil {
			c.lastErr = err
			c.logger.Error("failed to create surface", "target", target.DisplayName(), "error", err)
			c.note("err", "surface: "+err.Error())
			return
		}
		c.surface = s
	} else {
		c.surface.Attach(target)
	}
	c.surface.SetVisible(true)
	c.target = target
	c.sighting++
	c.transition(StateTargetVisible)
	c.note("trk", "found "+target.DisplayName())

	if c.inflight != nil {
		c.reissue = true
		return
	}
	c.issue(c.cursor.Index())
}

func (c *Controller) targetLost() {
	if c.state != StateTargetVisible {
		return
	}
	c.surface.SetVisible(false)
	c.reissue = false
	c.transition(StateScanning)
	c.note("trk", "lost "+c.target.DisplayName())
}

func (c *Controller) issue(index int) {
	req := fetch.NewRequest(c.seq, index, c.sighting)
	c.inflight = &req
	c.logger.Debug("fetch issued", "index", index, "url", req.URL, "request_id", req.ID.String())
	c.note("fetch", fmt.Sprintf("get #%d", index))
	c.dispatcher.Dispatch(req)
}

// Complete applies a fetch result. Results for anything other than the
// outstanding request, or for a sighting that has ended, change nothing on
// screen.
func (c *Controller) Complete(res fetch.Result) {
	if c.inflight == nil || res.Request.ID != c.inflight.ID {
		c.logger.Debug("ignoring unknown fetch result", "request_id", res.Request.ID.String())
		return
	}
	c.inflight = nil

	if c.state != StateTargetVisible || c.surface == nil || res.Request.Sighting != c.sighting {
		c.metrics.TrackDiscard()
		c.logger.Debug("discarding stale fetch result",
			"index", res.Request.Index,
			"state", c.state.String(),
			"sighting", res.Request.Sighting,
			"current_sighting", c.sighting,
		)
		c.note("fetch", fmt.Sprintf("drop #%d", res.Request.Index))
		if c.reissue && c.state == StateTargetVisible && c.surface != nil {
			c.reissue = false
			c.issue(c.cursor.Index())
		}
		return
	}

	if res.Err != nil {
		c.lastErr = res.Err
		c.note("err", res.Err.Error())
		return
	}

	c.lastErr = nil
	c.surface.Bind(res.Image)
	c.surface.SetTransform(SurfaceTransform(res.Image.Width, res.Image.Height, c.baseSize))
	c.shown = res.Request.Index
	c.note("fetch", fmt.Sprintf("show #%d (%dx%d)", res.Request.Index, res.Image.Width, res.Image.Height))
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	c.metrics.TrackTransition(from.String(), to.String())
	c.logger.Info("state changed", "from", from.String(), "to", to.String())
	c.note("state", from.String()+" -> "+to.String())
}

func (c *Controller) note(kind, msg string) {
	if c.notify != nil {
		c.notify(kind, msg)
	}
}
