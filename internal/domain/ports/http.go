package ports

import (
	"context"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// HTTPServer defines the interface for the HTTP server
type HTTPServer interface {
	Start(ctx context.Context, port int, host string) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

// UpdateEvent is the envelope every real-time frame is sent in. State
// carries the full canonical snapshot, Data carries transient payloads.
type UpdateEvent struct {
	Type  string                   `json:"type"`
	State *entities.CanonicalState `json:"state,omitempty"`
	Data  interface{}              `json:"data,omitempty"`
}

// NewStateEvent wraps a snapshot in an event of the given kind
func NewStateEvent(kind string, state entities.CanonicalState) UpdateEvent {
	return UpdateEvent{Type: kind, State: &state}
}

// Update kinds
const (
	EventTypeInit         = "init"
	EventTypeUpdate       = "update"
	EventTypeError        = "error"
	EventTypeTextUpdate   = "text-update"
	EventTypeControl      = "control"
	EventTypeSpeed        = "speed-update"
	EventTypeMirror       = "mirror-update"
	EventTypeInvert       = "invert-update"
	EventTypeWebcam       = "webcam-update"
	EventTypePresentation = "presentation-update"
	EventTypeSlide        = "slide-update"
	EventTypeMode         = "mode-update"
	EventTypeChatMessage  = "chat-message"
	EventTypeChatStatus   = "chat-status"
)
