package markers

import (
	"strings"
	"testing"
	"time"

	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/tracking"
)

func TestViewEmpty(t *testing.T) {
	m := New()
	m.Width = 80
	out := m.View()
	if !strings.Contains(out, "No markers reported yet") {
		t.Errorf("empty view = %q", out)
	}
	if !strings.Contains(out, "Markers: 0") {
		t.Errorf("missing stats row: %q", out)
	}
}

func TestViewRows(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := New()
	m.Width = 100
	m.now = func() time.Time { return now }
	m.Followed = "poster"
	m.SetTargets([]*targets.TargetState{
		{Target: tracking.Target{ID: "poster", Name: "Poster"}, Status: tracking.Tracked, UpdatedAt: now.Add(-5 * time.Second)},
		{Target: tracking.Target{ID: "mug"}, Status: tracking.NoPose, Info: "occluded", UpdatedAt: now.Add(-3 * time.Minute)},
	})

	out := m.View()
	for _, want := range []string{"Visible: 1", "Lost: 1", "Poster", "mug", "occluded", "5s", "3m", "▸"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "now"},
		{42 * time.Second, "42s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.in); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 4); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
