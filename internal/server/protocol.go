package server

import (
	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/tracking"
)

type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgStatus   MessageType = "status"
	MsgError    MessageType = "error"
)

type Message struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

type SnapshotPayload struct {
	Targets []*targets.TargetState `json:"targets"`
}

// StatusPayload is a single status change.
type StatusPayload = tracking.Event

type ErrorPayload struct {
	Message string `json:"message"`
}

// StatusRequest is the body of POST /api/targets/{id}/status.
type StatusRequest struct {
	Name   string         `json:"name,omitempty"`
	Status string         `json:"status"`
	Info   string         `json:"info,omitempty"`
	Pose   *tracking.Pose `json:"pose,omitempty"`
}

// ProcessStatus is the body of GET /api/status.
type ProcessStatus struct {
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	Clients        int     `json:"clients"`
	Targets        int     `json:"targets"`
	VisibleTargets int     `json:"visibleTargets"`
	RSSBytes       uint64  `json:"rssBytes"`
	CPUPercent     float64 `json:"cpuPercent"`
	Threads        int32   `json:"threads"`
}
