package services

import (
	"encoding/json"
	"sync"

	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// recordingRegistry is an in-memory ChannelRegistry that fans out like the
// real one and remembers every broadcast event
type recordingRegistry struct {
	mu       sync.Mutex
	channels map[string]ports.Channel
	events   []ports.UpdateEvent
}

func newRecordingRegistry() *recordingRegistry {
	return &recordingRegistry{channels: make(map[string]ports.Channel)}
}

func (r *recordingRegistry) Register(ch ports.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID()] = ch
}

func (r *recordingRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[id]; ok {
		ch.Close()
		delete(r.channels, id)
	}
}

func (r *recordingRegistry) ForEach(fn func(ports.Channel)) {
	r.mu.Lock()
	targets := make([]ports.Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		targets = append(targets, ch)
	}
	r.mu.Unlock()

	for _, ch := range targets {
		fn(ch)
	}
}

func (r *recordingRegistry) Broadcast(event ports.UpdateEvent) (int, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	delivered := 0
	for _, ch := range r.channels {
		if ch.Enqueue(payload) {
			delivered++
		}
	}
	return delivered, nil
}

func (r *recordingRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

func (r *recordingRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.channels {
		ch.Close()
		delete(r.channels, id)
	}
}

func (r *recordingRegistry) Events() []ports.UpdateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.UpdateEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingRegistry) EventsOfType(kind string) []ports.UpdateEvent {
	var out []ports.UpdateEvent
	for _, e := range r.Events() {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

// memoryChannel collects frames in order
type memoryChannel struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
}

func (c *memoryChannel) ID() string { return c.id }

func (c *memoryChannel) Enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.frames = append(c.frames, payload)
	return true
}

func (c *memoryChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *memoryChannel) Frames() []ports.UpdateEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.UpdateEvent, 0, len(c.frames))
	for _, f := range c.frames {
		var e ports.UpdateEvent
		if err := json.Unmarshal(f, &e); err == nil {
			out = append(out, e)
		}
	}
	return out
}
