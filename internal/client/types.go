// Package client provides the websocket and REST clients for the tracker
// bridge.
package client

import (
	"encoding/json"

	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/tracking"
)

// MessageType identifies the kind of websocket message.
type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgStatus   MessageType = "status"
	MsgError    MessageType = "error"
)

// WSMessage is the envelope for all websocket messages.
type WSMessage struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

type SnapshotPayload struct {
	Targets []targets.TargetState `json:"targets"`
}

// Events converts the snapshot into one status event per target.
func (p SnapshotPayload) Events() []tracking.Event {
	out := make([]tracking.Event, 0, len(p.Targets))
	for i := range p.Targets {
		out = append(out, p.Targets[i].Event())
	}
	return out
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// ProcessStatus mirrors the tracker's GET /api/status body.
type ProcessStatus struct {
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	Clients        int     `json:"clients"`
	Targets        int     `json:"targets"`
	VisibleTargets int     `json:"visibleTargets"`
	RSSBytes       uint64  `json:"rssBytes"`
	CPUPercent     float64 `json:"cpuPercent"`
	Threads        int32   `json:"threads"`
}
