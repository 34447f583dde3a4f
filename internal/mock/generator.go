package mock

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/memelens/memelens/internal/tracking"
)

const DefaultInterval = 500 * time.Millisecond

// Applier receives generated status reports.
type Applier interface {
	Apply(ev tracking.Event)
}

type mockTarget struct {
	target  tracking.Target
	pattern string
	offset  int
}

func NewGenerator(sink Applier, interval time.Duration) *Generator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Generator{
		sink:     sink,
		interval: interval,
	}
}

// Generator simulates markers moving in and out of view.
type Generator struct {
	sink     Applier
	interval time.Duration
	targets  []*mockTarget
}

// Start registers the simulated markers as not yet seen and begins ticking
// until ctx is cancelled.
func (g *Generator) Start(ctx context.Context) {
	g.targets = []*mockTarget{
		{
			target:  tracking.Target{ID: "mock-poster", Name: "poster"},
			pattern: "steady",
		},
		{
			target:  tracking.Target{ID: "mock-mug", Name: "coffee mug"},
			pattern: "flicker",
			offset:  7,
		},
		{
			target:  tracking.Target{ID: "mock-door", Name: "office door"},
			pattern: "wander",
			offset:  3,
		},
		{
			target:  tracking.Target{ID: "mock-book", Name: "book cover"},
			pattern: "slow-init",
		},
	}

	for _, mt := range g.targets {
		g.sink.Apply(tracking.Event{Target: mt.target, Status: tracking.NoPose, Info: "initializing", At: time.Now()})
	}

	go g.run(ctx)
}

func (g *Generator) run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			g.step(tick)
		}
	}
}

func (g *Generator) step(tick int) {
	now := time.Now()
	for _, mt := range g.targets {
		status, info := statusAt(mt.pattern, tick+mt.offset)
		target := mt.target
		if status.Visible() {
			target.Pose = pose(tick)
		}
		g.sink.Apply(tracking.Event{Target: target, Status: status, Info: info, At: now})
	}
}

// statusAt returns the simulated status for pattern at tick.
func statusAt(pattern string, tick int) (tracking.Status, string) {
	switch pattern {
	case "steady":
		// In view for 30 ticks, gone for 6.
		if tick%36 < 30 {
			return tracking.Tracked, "normal"
		}
		return tracking.NoPose, "normal"

	case "flicker":
		// Partially occluded every few ticks.
		switch tick % 10 {
		case 4, 5:
			return tracking.Limited, "excessive_motion"
		case 9:
			return tracking.NoPose, "normal"
		}
		return tracking.Tracked, "normal"

	case "wander":
		// Seen, walked away from (extended tracking), then lost.
		phase := tick % 40
		switch {
		case phase < 15:
			return tracking.Tracked, "normal"
		case phase < 28:
			return tracking.ExtendedTracked, "normal"
		case phase < 32:
			return tracking.Limited, "relocalizing"
		default:
			return tracking.NoPose, "normal"
		}

	case "slow-init":
		if tick < 12 {
			return tracking.Limited, "initializing"
		}
		if (tick-12)%50 < 40 {
			return tracking.Tracked, "normal"
		}
		return tracking.NoPose, "normal"
	}
	return tracking.NoPose, "normal"
}

func pose(tick int) tracking.Pose {
	t := float64(tick) / 10
	jitter := func() float64 { return (rand.Float64() - 0.5) * 0.002 }
	return tracking.Pose{
		Position: [3]float64{0.05*math.Sin(t) + jitter(), jitter(), 0.5 + 0.05*math.Cos(t)},
		Rotation: [3]float64{0, 10 * math.Sin(t/2), 0},
	}
}
