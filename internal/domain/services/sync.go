package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// ErrChannelRejected is returned by Attach when the init frame could not be queued
var ErrChannelRejected = errors.New("channel rejected init frame")

// SyncService is the single mutation path for the canonical state. Every
// ingest runs validate, merge and broadcast inside one critical section, so
// broadcasts leave the server in merge order and a channel attached in
// between sees a consistent init snapshot.
type SyncService struct {
	mu       sync.Mutex
	store    *StateStore
	registry ports.ChannelRegistry
	logger   zerolog.Logger
}

// NewSyncService creates a sync service around store and registry
func NewSyncService(store *StateStore, registry ports.ChannelRegistry, logger zerolog.Logger) *SyncService {
	return &SyncService{
		store:    store,
		registry: registry,
		logger:   logger.With().Str("component", "sync").Logger(),
	}
}

// Snapshot returns a copy of the canonical state
func (s *SyncService) Snapshot() entities.CanonicalState {
	return s.store.Snapshot()
}

// Ingest validates patch against the current state, merges it and
// broadcasts the new snapshot tagged with kind. A patch that switches
// presentation mode on also runs the presentation entry sequence.
func (s *SyncService) Ingest(kind string, patch entities.StatePatch) (entities.CanonicalState, error) {
	if kind == "" {
		kind = ports.EventTypeUpdate
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Snapshot()
	if err := patch.Validate(current); err != nil {
		s.logger.Debug().Err(err).Str("kind", kind).Msg("patch rejected")
		return current, err
	}

	entering := patch.PresentationMode != nil && *patch.PresentationMode && !current.PresentationMode

	merged := current.Merge(patch)
	if entering {
		var err error
		if merged, err = entities.EnterPresentation(merged); err != nil {
			s.logger.Debug().Err(err).Str("kind", kind).Msg("presentation entry rejected")
			return current, err
		}
	}

	next := s.store.Replace(merged)
	s.broadcast(kind, next)
	return next, nil
}

// Apply runs transform against the current state. On error the state is
// left unchanged and nothing is broadcast.
func (s *SyncService) Apply(kind string, transform entities.Transform) (entities.CanonicalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.store.Snapshot()
	next, err := transform(current)
	if err != nil {
		s.logger.Debug().Err(err).Str("kind", kind).Msg("transform rejected")
		return current, err
	}

	stored := s.store.Replace(next)
	s.broadcast(kind, stored)
	return stored, nil
}

// Control runs a named playback action. Unknown actions are reported with
// ok=false and leave the state untouched without broadcasting.
func (s *SyncService) Control(action string) (entities.CanonicalState, bool, error) {
	transform, ok := entities.LookupControl(action)
	if !ok {
		s.logger.Warn().Str("action", action).Msg("unknown control action ignored")
		return s.store.Snapshot(), false, nil
	}

	state, err := s.Apply(ports.EventTypeControl, transform)
	return state, true, err
}

// SetText replaces the prompter text
func (s *SyncService) SetText(text string) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeTextUpdate, entities.StatePatch{Text: &text})
}

// SetSpeed sets the scroll speed
func (s *SyncService) SetSpeed(speed float64) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeSpeed, entities.StatePatch{Speed: &speed})
}

// SetMirror sets horizontal mirroring
func (s *SyncService) SetMirror(enabled bool) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeMirror, entities.StatePatch{IsMirrored: &enabled})
}

// SetInvert sets color inversion
func (s *SyncService) SetInvert(enabled bool) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeInvert, entities.StatePatch{IsInverted: &enabled})
}

// SetWebcamEnabled shows or hides the webcam overlay
func (s *SyncService) SetWebcamEnabled(enabled bool) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeWebcam, entities.StatePatch{WebcamEnabled: &enabled})
}

// ToggleWebcam flips the webcam overlay
func (s *SyncService) ToggleWebcam() (entities.CanonicalState, error) {
	return s.Apply(ports.EventTypeWebcam, func(st entities.CanonicalState) (entities.CanonicalState, error) {
		st.WebcamEnabled = !st.WebcamEnabled
		return st, nil
	})
}

// SetWebcamOpacity sets the overlay opacity
func (s *SyncService) SetWebcamOpacity(opacity float64) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeWebcam, entities.StatePatch{WebcamOpacity: &opacity})
}

// SetWebcamBlur sets the overlay blur radius
func (s *SyncService) SetWebcamBlur(blur float64) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeWebcam, entities.StatePatch{WebcamBlur: &blur})
}

// SetMode switches the display between prompter and external feed
func (s *SyncService) SetMode(mode entities.DisplayMode) (entities.CanonicalState, error) {
	return s.Ingest(ports.EventTypeMode, entities.StatePatch{Mode: &mode})
}

// TogglePresentation enters presentation mode when it is off and leaves it when on
func (s *SyncService) TogglePresentation() (entities.CanonicalState, error) {
	return s.Apply(ports.EventTypePresentation, func(st entities.CanonicalState) (entities.CanonicalState, error) {
		if st.PresentationMode {
			return entities.ExitPresentation(st)
		}
		return entities.EnterPresentation(st)
	})
}

// SetPresentation enters or leaves presentation mode. Entering while
// already active does not reset navigation.
func (s *SyncService) SetPresentation(enabled bool) (entities.CanonicalState, error) {
	return s.Apply(ports.EventTypePresentation, func(st entities.CanonicalState) (entities.CanonicalState, error) {
		switch {
		case enabled && !st.PresentationMode:
			return entities.EnterPresentation(st)
		case !enabled && st.PresentationMode:
			return entities.ExitPresentation(st)
		}
		return st, nil
	})
}

// NextSlide advances one slide
func (s *SyncService) NextSlide() (entities.CanonicalState, error) {
	return s.Apply(ports.EventTypeSlide, s.logBoundary("next", entities.NextSlide))
}

// PrevSlide goes back one slide
func (s *SyncService) PrevSlide() (entities.CanonicalState, error) {
	return s.Apply(ports.EventTypeSlide, s.logBoundary("prev", entities.PrevSlide))
}

// GotoSlide jumps to slide index
func (s *SyncService) GotoSlide(index int) (entities.CanonicalState, error) {
	return s.Apply(ports.EventTypeSlide, entities.GotoSlide(index))
}

// Attach queues the init frame on ch and registers it. Holding the
// ingestion lock guarantees no broadcast reaches ch before init and that
// init carries every update merged so far.
func (s *SyncService) Attach(ch ports.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(ports.NewStateEvent(ports.EventTypeInit, s.store.Snapshot()))
	if err != nil {
		return fmt.Errorf("encoding init frame: %w", err)
	}

	if !ch.Enqueue(payload) {
		return ErrChannelRejected
	}

	s.registry.Register(ch)
	s.logger.Debug().Str("channel", ch.ID()).Int("channels", s.registry.Count()).Msg("channel attached")
	return nil
}

// Detach unregisters a channel
func (s *SyncService) Detach(id string) {
	s.registry.Unregister(id)
	s.logger.Debug().Str("channel", id).Int("channels", s.registry.Count()).Msg("channel detached")
}

func (s *SyncService) broadcast(kind string, state entities.CanonicalState) {
	delivered, err := s.registry.Broadcast(ports.NewStateEvent(kind, state))
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("broadcast aborted")
		return
	}
	s.logger.Debug().Str("kind", kind).Int("delivered", delivered).Msg("state broadcast")
}

func (s *SyncService) logBoundary(direction string, transform entities.Transform) entities.Transform {
	return func(st entities.CanonicalState) (entities.CanonicalState, error) {
		next, err := transform(st)
		if err == nil && next.CurrentSlide == st.CurrentSlide {
			s.logger.Info().Str("direction", direction).Int("slide", st.CurrentSlide).Msg("slide navigation at boundary, no-op")
		}
		return next, err
	}
}

var _ ports.Prompter = (*SyncService)(nil)
