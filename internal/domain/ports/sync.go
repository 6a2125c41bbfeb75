package ports

import (
	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// Channel is one connected real-time client as seen by the registry
type Channel interface {
	// ID returns the registry key of the channel
	ID() string
	// Enqueue queues an encoded frame without blocking. It returns false
	// when the channel is closed or its queue is full.
	Enqueue(payload []byte) bool
	// Close releases the outbound queue. It is safe to call more than once.
	Close()
}

// ChannelRegistry tracks connected channels and fans events out to them
type ChannelRegistry interface {
	Register(ch Channel)
	Unregister(id string)
	// ForEach visits a snapshot of the registered channels
	ForEach(fn func(Channel))
	// Broadcast encodes event once and enqueues it on every channel,
	// returning how many channels accepted it
	Broadcast(event UpdateEvent) (int, error)
	Count() int
	CloseAll()
}

// StateSync is the ingestion surface shared by the websocket and HTTP handlers
type StateSync interface {
	// Snapshot returns a copy of the canonical state
	Snapshot() entities.CanonicalState

	// Ingest validates a client patch, merges it and broadcasts the result
	Ingest(kind string, patch entities.StatePatch) (entities.CanonicalState, error)

	// Control runs a named control action. Unknown actions report false
	// and leave the state untouched.
	Control(action string) (entities.CanonicalState, bool, error)

	// Apply runs a transform, stores and broadcasts the result under kind
	Apply(kind string, transform entities.Transform) (entities.CanonicalState, error)

	// Attach sends the init frame to ch and then registers it
	Attach(ch Channel) error

	// Detach unregisters the channel
	Detach(id string)
}

// Prompter is StateSync plus the named operations of the HTTP surface
type Prompter interface {
	StateSync

	SetText(text string) (entities.CanonicalState, error)
	SetSpeed(speed float64) (entities.CanonicalState, error)
	SetMirror(enabled bool) (entities.CanonicalState, error)
	SetInvert(enabled bool) (entities.CanonicalState, error)
	SetWebcamEnabled(enabled bool) (entities.CanonicalState, error)
	ToggleWebcam() (entities.CanonicalState, error)
	SetWebcamOpacity(opacity float64) (entities.CanonicalState, error)
	SetWebcamBlur(blur float64) (entities.CanonicalState, error)
	SetMode(mode entities.DisplayMode) (entities.CanonicalState, error)
	TogglePresentation() (entities.CanonicalState, error)
	SetPresentation(enabled bool) (entities.CanonicalState, error)
	NextSlide() (entities.CanonicalState, error)
	PrevSlide() (entities.CanonicalState, error)
	GotoSlide(index int) (entities.CanonicalState, error)
}
