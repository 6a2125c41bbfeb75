package services

import (
	"sync"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
)

// StateStore owns the canonical state. It trusts its caller: validation
// happens in SyncService before anything reaches the store.
type StateStore struct {
	mu    sync.RWMutex
	state entities.CanonicalState
}

// NewStateStore creates a store seeded with initial
func NewStateStore(initial entities.CanonicalState) *StateStore {
	initial.TotalSlides = entities.SlideCount(initial.Text)
	return &StateStore{state: initial.Merge(entities.StatePatch{})}
}

// Snapshot returns a copy of the canonical state
func (s *StateStore) Snapshot() entities.CanonicalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ApplyPatch shallow-merges patch into the canonical state and returns the result
func (s *StateStore) ApplyPatch(patch entities.StatePatch) entities.CanonicalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.Merge(patch)
	return s.state
}

// Replace stores the output of a transform. Derived fields are normalized
// the same way ApplyPatch normalizes them.
func (s *StateStore) Replace(next entities.CanonicalState) entities.CanonicalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next.Merge(entities.StatePatch{})
	return s.state
}
