// Package tracking models marker status events and the feed that delivers
// them to subscribers.
package tracking

import (
	"encoding/json"
	"time"
)

type Status int

const (
	NoPose Status = iota
	Limited
	Tracked
	ExtendedTracked
)

var statusNames = map[Status]string{
	NoPose:          "no_pose",
	Limited:         "limited",
	Tracked:         "tracked",
	ExtendedTracked: "extended_tracked",
}

var statusFromName = map[string]Status{
	"no_pose":          NoPose,
	"limited":          Limited,
	"tracked":          Tracked,
	"extended_tracked": ExtendedTracked,
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "unknown"
}

// Visible reports whether the target counts as in view. Extended tracking
// keeps the target visible after it leaves the camera frame.
func (s Status) Visible() bool {
	return s == Tracked || s == ExtendedTracked
}

// ParseStatus converts a wire name into a Status.
func ParseStatus(name string) (Status, bool) {
	s, ok := statusFromName[name]
	return s, ok
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, ok := statusFromName[name]
	if !ok {
		v = NoPose
	}
	*s = v
	return nil
}

// Pose is the target transform in tracker space: position in metres,
// rotation as Euler angles in degrees.
type Pose struct {
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
}

// Target is the opaque handle the tracker reports a status for.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Pose Pose   `json:"pose"`
}

// DisplayName returns the name, falling back to the ID.
func (t Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// Event is a single status change for a target.
type Event struct {
	Target Target    `json:"target"`
	Status Status    `json:"status"`
	Info   string    `json:"info,omitempty"` // e.g. "normal", "initializing", "relocalizing"
	At     time.Time `json:"at"`
}
