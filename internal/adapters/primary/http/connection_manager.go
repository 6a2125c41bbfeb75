package http

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// Connection is the outbound side of one real-time client
type Connection struct {
	id     string
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewConnection creates a connection with a queue of size buffer
func NewConnection(id string, buffer int) *Connection {
	return &Connection{id: id, send: make(chan []byte, buffer)}
}

// ID returns the connection id
func (c *Connection) ID() string { return c.id }

// Enqueue queues payload without blocking
func (c *Connection) Enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close closes the outbound queue once
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Outbound returns the queue the write pump drains
func (c *Connection) Outbound() <-chan []byte { return c.send }

// ConnectionManager implements ports.ChannelRegistry
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]ports.Channel
	logger      zerolog.Logger
}

// NewConnectionManager creates an empty registry
func NewConnectionManager(logger zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]ports.Channel),
		logger:      logger,
	}
}

// Register adds ch, replacing any channel with the same id
func (cm *ConnectionManager) Register(ch ports.Channel) {
	cm.mu.Lock()
	old, exists := cm.connections[ch.ID()]
	cm.connections[ch.ID()] = ch
	cm.mu.Unlock()

	if exists && old != ch {
		old.Close()
	}
}

// Unregister removes and closes the channel with id
func (cm *ConnectionManager) Unregister(id string) {
	cm.mu.Lock()
	ch, ok := cm.connections[id]
	delete(cm.connections, id)
	cm.mu.Unlock()

	if ok {
		ch.Close()
	}
}

// ForEach calls fn for every channel registered when it starts. fn runs
// without the registry lock held, so it may register or unregister.
func (cm *ConnectionManager) ForEach(fn func(ports.Channel)) {
	cm.mu.RLock()
	targets := make([]ports.Channel, 0, len(cm.connections))
	for _, ch := range cm.connections {
		targets = append(targets, ch)
	}
	cm.mu.RUnlock()

	for _, ch := range targets {
		fn(ch)
	}
}

// Broadcast encodes event once and queues it on every channel. Channels
// whose queue is full are dropped.
func (cm *ConnectionManager) Broadcast(event ports.UpdateEvent) (int, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("encoding %s event: %w", event.Type, err)
	}

	delivered := 0
	cm.ForEach(func(ch ports.Channel) {
		if ch.Enqueue(payload) {
			delivered++
			return
		}
		cm.logger.Warn().Str("channel", ch.ID()).Str("kind", event.Type).Msg("client too slow, dropping connection")
		cm.Unregister(ch.ID())
	})
	return delivered, nil
}

// Count returns the number of registered channels
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll closes and forgets every channel
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	all := cm.connections
	cm.connections = make(map[string]ports.Channel)
	cm.mu.Unlock()

	for _, ch := range all {
		ch.Close()
	}
}

var _ ports.ChannelRegistry = (*ConnectionManager)(nil)
