package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/memelens/memelens/internal/client"
	"github.com/memelens/memelens/internal/display"
	"github.com/memelens/memelens/internal/fetch"
)

// effects collects the commands controller callbacks ask for while one
// Update runs. Update drains it into its return value.
type effects struct {
	cmds []tea.Cmd
}

func (e *effects) add(cmd tea.Cmd) {
	if cmd != nil {
		e.cmds = append(e.cmds, cmd)
	}
}

func (e *effects) drain() tea.Cmd {
	cmds := e.cmds
	e.cmds = nil
	return tea.Batch(cmds...)
}

// Fetcher is the part of *fetch.Fetcher the viewer uses.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) fetch.Result
}

type fetchDoneMsg struct {
	result fetch.Result
}

// dispatcher runs each fetch as a command; the result comes back to Update
// as a fetchDoneMsg.
type dispatcher struct {
	fx      *effects
	ctx     context.Context
	fetcher Fetcher
}

var _ display.Dispatcher = (*dispatcher)(nil)

func (d *dispatcher) Dispatch(req fetch.Request) {
	d.fx.add(func() tea.Msg {
		return fetchDoneMsg{result: d.fetcher.Fetch(d.ctx, req)}
	})
}

type quitter struct {
	fx *effects
}

func (q *quitter) Quit() {
	q.fx.add(tea.Quit)
}

// linkMsg wraps a websocket message with the camera session that asked for
// it, so messages from an earlier session can be dropped.
type linkMsg struct {
	gen int
	msg tea.Msg
}

// camera connects to the tracker while active. Without a websocket client
// (simulated tracking) it only records whether it is on.
type camera struct {
	fx     *effects
	ws     *client.WSClient
	parent context.Context

	ctx    context.Context
	cancel context.CancelFunc
	active bool
	gen    int
}

var _ display.Camera = (*camera)(nil)

func (c *camera) Activate() error {
	if c.active {
		return nil
	}
	c.active = true
	c.gen++
	if c.ws == nil {
		return nil
	}
	c.ctx, c.cancel = context.WithCancel(c.parent)
	c.fx.add(c.listen())
	return nil
}

func (c *camera) Deactivate() {
	if !c.active {
		return
	}
	c.active = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.ws != nil {
		c.ws.Close()
	}
}

// current reports whether msg belongs to the live session.
func (c *camera) current(msg linkMsg) bool {
	return c.active && c.ws != nil && msg.gen == c.gen
}

func (c *camera) connected() bool {
	return c.active && c.ws != nil && c.ws.Connected()
}

func (c *camera) listen() tea.Cmd {
	return c.wrap(c.ws.Listen(c.ctx))
}

func (c *camera) read() tea.Cmd {
	return c.wrap(c.ws.ReadLoop())
}

func (c *camera) wrap(cmd tea.Cmd) tea.Cmd {
	gen := c.gen
	return func() tea.Msg {
		msg := cmd()
		if msg == nil {
			return nil
		}
		return linkMsg{gen: gen, msg: msg}
	}
}
