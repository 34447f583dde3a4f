package surface

import (
	"fmt"
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/memelens/memelens/internal/display"
	"github.com/memelens/memelens/internal/fetch"
	"github.com/memelens/memelens/internal/theme"
	"github.com/memelens/memelens/internal/tracking"
)

const (
	// FrameRate is how often the app should call Step while Animating.
	FrameRate = 30

	DefaultCellsPerUnit = 100

	springFrequency = 6.0
	springDamping   = 0.8
	settleEpsilon   = 0.05
)

// Panel is a display.Surface drawn with half blocks. Its size eases toward
// the transform's scale with a spring.
type Panel struct {
	cellsPerUnit float64
	spring       harmonica.Spring

	target    tracking.Target
	visible   bool
	destroyed bool
	img       *fetch.Image
	transform display.Transform

	w, wVel float64
	h, hVel float64

	cached   string
	cacheImg *fetch.Image
	cacheW   int
	cacheH   int
}

var _ display.Surface = (*Panel)(nil)

func NewPanel(target tracking.Target, cellsPerUnit float64) *Panel {
	if cellsPerUnit <= 0 {
		cellsPerUnit = DefaultCellsPerUnit
	}
	return &Panel{
		cellsPerUnit: cellsPerUnit,
		spring:       harmonica.NewSpring(harmonica.FPS(FrameRate), springFrequency, springDamping),
		target:       target,
	}
}

func (p *Panel) Attach(target tracking.Target) {
	p.target = target
}

func (p *Panel) SetVisible(visible bool) {
	p.visible = visible
}

func (p *Panel) Bind(img *fetch.Image) {
	p.img = img
}

func (p *Panel) SetTransform(t display.Transform) {
	p.transform = t
}

func (p *Panel) Destroy() {
	p.destroyed = true
	p.visible = false
	p.img = nil
	p.cached = ""
	p.cacheImg = nil
}

func (p *Panel) Target() tracking.Target {
	return p.target
}

func (p *Panel) Visible() bool {
	return p.visible && !p.destroyed
}

func (p *Panel) Destroyed() bool {
	return p.destroyed
}

func (p *Panel) Image() *fetch.Image {
	return p.img
}

func (p *Panel) Transform() display.Transform {
	return p.transform
}

// Goal is the settled size in cells for the current transform.
func (p *Panel) Goal() (cols, rows float64) {
	return p.transform.Scale.X * p.cellsPerUnit, p.transform.Scale.Y * p.cellsPerUnit / 2
}

// Size is the current, possibly animating, size in cells.
func (p *Panel) Size() (cols, rows float64) {
	return p.w, p.h
}

// Animating reports whether Step still has work to do.
func (p *Panel) Animating() bool {
	gw, gh := p.Goal()
	return !settled(p.w, p.wVel, gw) || !settled(p.h, p.hVel, gh)
}

// Step advances the size animation by one frame and reports whether it is
// still moving.
func (p *Panel) Step() bool {
	gw, gh := p.Goal()
	p.w, p.wVel = p.spring.Update(p.w, p.wVel, gw)
	p.h, p.hVel = p.spring.Update(p.h, p.hVel, gh)
	if settled(p.w, p.wVel, gw) && settled(p.h, p.hVel, gh) {
		p.w, p.wVel = gw, 0
		p.h, p.hVel = gh, 0
		return false
	}
	return true
}

// Settle jumps straight to the goal size.
func (p *Panel) Settle() {
	p.w, p.h = p.Goal()
	p.wVel, p.hVel = 0, 0
}

func settled(pos, vel, goal float64) bool {
	return math.Abs(pos-goal) < settleEpsilon && math.Abs(vel) < settleEpsilon
}

// View renders the panel within maxCols x maxRows, caption included. A
// hidden or destroyed panel renders as "".
func (p *Panel) View(maxCols, maxRows int) string {
	if !p.Visible() {
		return ""
	}
	caption := theme.StyleDimmed.Render(p.caption())
	if p.img == nil {
		box := theme.StyleBorder.Padding(1, 4).Render("◌ waiting for an image")
		return lipgloss.JoinVertical(lipgloss.Center, box, caption)
	}

	cols, rows := Fit(int(math.Round(p.w)), int(math.Round(p.h)), maxCols, maxRows-1)
	if cols == 0 || rows == 0 {
		return caption
	}
	if p.img != p.cacheImg || cols != p.cacheW || rows != p.cacheH {
		p.cached = Render(p.img.Image, cols, rows)
		p.cacheImg, p.cacheW, p.cacheH = p.img, cols, rows
	}
	return lipgloss.JoinVertical(lipgloss.Center, p.cached, caption)
}

func (p *Panel) caption() string {
	s := p.transform.Scale
	return fmt.Sprintf("%s · %.2f×%.2f · tilt %.0f°", p.target.DisplayName(), s.X, s.Y, p.transform.Rotation.X)
}

// Factory creates panels for the controller and remembers the live one so
// the app can draw it.
type Factory struct {
	cellsPerUnit float64
	current      *Panel
}

var _ display.SurfaceFactory = (*Factory)(nil)

func NewFactory(cellsPerUnit float64) *Factory {
	return &Factory{cellsPerUnit: cellsPerUnit}
}

func (f *Factory) NewSurface(target tracking.Target) (display.Surface, error) {
	f.current = NewPanel(target, f.cellsPerUnit)
	return f.current, nil
}

// Current returns the live panel, or nil once it has been destroyed.
func (f *Factory) Current() *Panel {
	if f.current == nil || f.current.destroyed {
		return nil
	}
	return f.current
}
