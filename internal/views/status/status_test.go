package status

import (
	"strings"
	"testing"
)

func TestConnectionLabel(t *testing.T) {
	tests := []struct {
		name string
		m    Model
		want string
	}{
		{"simulated", Model{Simulated: true, Connected: true}, "Simulated"},
		{"connected", Model{Connected: true}, "Connected"},
		{"connecting", Model{Scanning: true}, "Connecting..."},
		{"camera off", Model{}, "Camera off"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.connection(); !strings.Contains(got, tt.want) {
				t.Errorf("connection() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViewFields(t *testing.T) {
	m := New()
	m.Width = 120
	m.State = "target_visible"
	m.Target = "poster"
	m.Index = 2
	m.Max = 24
	m.Loading = true
	m.Err = "transport: timeout"

	v := m.View()
	for _, want := range []string{"target_visible", "marker poster", "meme 2/24", "loading", "transport: timeout"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
}

func TestViewOmitsEmptyFields(t *testing.T) {
	m := New()
	m.State = "menu"
	v := m.View()
	for _, absent := range []string{"marker", "meme ", "loading", "✗"} {
		if strings.Contains(v, absent) {
			t.Errorf("view should not contain %q:\n%s", absent, v)
		}
	}
}

func TestSpinnerTick(t *testing.T) {
	m := New()
	msg := m.Tick()
	if msg == nil {
		t.Fatal("Tick() returned nil")
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Error("spinner should schedule the next frame")
	}
}
