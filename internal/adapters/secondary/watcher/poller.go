package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// PollingWatcher watches one file by polling its size, mtime and checksum.
// Editors that save by rename are handled since only the path is tracked.
type PollingWatcher struct {
	interval time.Duration
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	last    snapshot
	events  chan ports.FileChangeEvent
	stopCh  chan struct{}
	wg      sync.WaitGroup
	started bool
	stopped bool
}

type snapshot struct {
	exists   bool
	size     int64
	modTime  time.Time
	checksum string
}

// NewPollingWatcher creates a watcher that checks every interval and
// emits at most one event per debounce window
func NewPollingWatcher(interval, debounce time.Duration, logger zerolog.Logger) *PollingWatcher {
	return &PollingWatcher{
		interval: interval,
		debounce: debounce,
		logger:   logger.With().Str("component", "watcher").Logger(),
		events:   make(chan ports.FileChangeEvent, 8),
		stopCh:   make(chan struct{}),
	}
}

// Watch starts polling path. The file must exist.
func (w *PollingWatcher) Watch(ctx context.Context, path string) (<-chan ports.FileChangeEvent, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	snap, err := take(absPath)
	if err != nil {
		return nil, fmt.Errorf("initial scan: %w", err)
	}
	if !snap.exists {
		return nil, fmt.Errorf("initial scan: %s does not exist", absPath)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return nil, errors.New("watcher already used")
	}
	w.started = true
	w.last = snap

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx, absPath)
	}()

	return w.events, nil
}

// Stop stops polling and closes the event channel
func (w *PollingWatcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.events)
	return nil
}

func (w *PollingWatcher) pollLoop(ctx context.Context, path string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var lastEvent time.Time
	var pendingKind ports.ChangeType
	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
		}

		kind, changed, err := w.check(path)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("watch error")
			continue
		}
		if changed {
			pending, pendingKind = true, kind
		}
		if !pending || time.Since(lastEvent) < w.debounce {
			continue
		}

		select {
		case w.events <- ports.FileChangeEvent{Path: path, Type: pendingKind, Timestamp: time.Now()}:
			lastEvent = time.Now()
			pending = false
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		}
	}
}

// check compares the file with the last snapshot
func (w *PollingWatcher) check(path string) (ports.ChangeType, bool, error) {
	w.mu.Lock()
	prev := w.last
	w.mu.Unlock()

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		if !prev.exists {
			return ports.Deleted, false, nil
		}
		w.store(snapshot{})
		return ports.Deleted, true, nil
	case err != nil:
		return ports.Modified, false, fmt.Errorf("stat file: %w", err)
	}

	// skip the checksum when size and mtime are unchanged
	if prev.exists && prev.size == info.Size() && prev.modTime.Equal(info.ModTime()) {
		return ports.Modified, false, nil
	}

	snap, err := take(path)
	if err != nil {
		return ports.Modified, false, err
	}
	w.store(snap)

	if !prev.exists {
		return ports.Created, true, nil
	}
	return ports.Modified, snap.checksum != prev.checksum, nil
}

func (w *PollingWatcher) store(s snapshot) {
	w.mu.Lock()
	w.last = s
	w.mu.Unlock()
}

func take(path string) (snapshot, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return snapshot{}, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("stat file: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - path is the configured script file
	if err != nil {
		return snapshot{}, err
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return snapshot{}, fmt.Errorf("calculate checksum: %w", err)
	}

	return snapshot{
		exists:   true,
		size:     info.Size(),
		modTime:  info.ModTime(),
		checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

var _ ports.FileWatcher = (*PollingWatcher)(nil)
