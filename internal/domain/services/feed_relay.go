package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// FeedRelayService polls an external chat source and broadcasts every
// message as a transient event. Messages never enter the canonical state.
type FeedRelayService struct {
	source   ports.FeedSource
	registry ports.ChannelRegistry
	config   entities.FeedConfig
	logger   zerolog.Logger

	// runMu serializes Start and Stop so at most one poll loop exists
	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	status entities.FeedStatus
	recent []entities.ChatMessage
}

// NewFeedRelayService creates an idle relay
func NewFeedRelayService(source ports.FeedSource, registry ports.ChannelRegistry, config entities.FeedConfig, logger zerolog.Logger) *FeedRelayService {
	return &FeedRelayService{
		source:   source,
		registry: registry,
		config:   config,
		logger:   logger.With().Str("component", "feed").Logger(),
		status:   entities.FeedStatus{IntervalMs: config.GetDefaultInterval().Milliseconds()},
	}
}

// Start begins polling chatID, replacing any loop already running. The
// loop lives until Stop is called or ctx is cancelled.
func (r *FeedRelayService) Start(ctx context.Context, chatID string) error {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return entities.NewValidationError("liveChatId", "must not be empty")
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	r.mu.Lock()
	r.status = entities.FeedStatus{
		Running:    true,
		ChatID:     chatID,
		StartedAt:  time.Now(),
		IntervalMs: r.config.GetDefaultInterval().Milliseconds(),
	}
	r.recent = nil
	r.mu.Unlock()

	go r.pollLoop(loopCtx, chatID, done)

	r.logger.Info().Str("chat_id", chatID).Msg("feed relay started")
	r.broadcastStatus()
	return nil
}

// Stop terminates the poll loop and waits for it to exit. It is a no-op
// when nothing is running.
func (r *FeedRelayService) Stop() {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.stopLocked() {
		r.logger.Info().Msg("feed relay stopped")
		r.broadcastStatus()
	}
}

// Status returns the current relay status
func (r *FeedRelayService) Status() entities.FeedStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Recent returns the buffered messages, oldest first
func (r *FeedRelayService) Recent() []entities.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.ChatMessage, len(r.recent))
	copy(out, r.recent)
	return out
}

func (r *FeedRelayService) stopLocked() bool {
	if r.cancel == nil {
		return false
	}

	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil

	r.mu.Lock()
	r.status.Running = false
	r.mu.Unlock()
	return true
}

func (r *FeedRelayService) pollLoop(ctx context.Context, chatID string, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.status.Running = false
		r.mu.Unlock()
		close(done)
	}()

	pageToken := ""
	for {
		interval := r.config.GetDefaultInterval()

		page, err := r.source.Fetch(ctx, chatID, pageToken)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			r.logger.Warn().Err(err).Str("chat_id", chatID).Msg("feed fetch failed")
			r.recordError(err)
		} else {
			pageToken = page.NextPageToken
			for _, msg := range page.Messages {
				r.relay(msg)
			}
			interval = r.clampInterval(page.PollInterval)
			r.recordSuccess(interval)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (r *FeedRelayService) relay(msg entities.ChatMessage) {
	r.mu.Lock()
	r.recent = append(r.recent, msg)
	if overflow := len(r.recent) - r.config.GetBufferSize(); overflow > 0 {
		r.recent = append([]entities.ChatMessage(nil), r.recent[overflow:]...)
	}
	r.status.Received++
	r.mu.Unlock()

	if _, err := r.registry.Broadcast(ports.UpdateEvent{Type: ports.EventTypeChatMessage, Data: msg}); err != nil {
		r.logger.Error().Err(err).Str("message_id", msg.ID).Msg("chat message broadcast failed")
	}
}

func (r *FeedRelayService) clampInterval(suggested time.Duration) time.Duration {
	if suggested <= 0 {
		return r.config.GetDefaultInterval()
	}
	if floor := r.config.GetMinInterval(); suggested < floor {
		return floor
	}
	if ceiling := r.config.GetMaxInterval(); suggested > ceiling {
		return ceiling
	}
	return suggested
}

func (r *FeedRelayService) recordError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.LastError = err.Error()
	r.status.IntervalMs = r.config.GetDefaultInterval().Milliseconds()
}

func (r *FeedRelayService) recordSuccess(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status.LastError = ""
	r.status.IntervalMs = interval.Milliseconds()
}

func (r *FeedRelayService) broadcastStatus() {
	if _, err := r.registry.Broadcast(ports.UpdateEvent{Type: ports.EventTypeChatStatus, Data: r.Status()}); err != nil {
		r.logger.Error().Err(err).Msg("chat status broadcast failed")
	}
}

var _ ports.FeedRelay = (*FeedRelayService)(nil)
