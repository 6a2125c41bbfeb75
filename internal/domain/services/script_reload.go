package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// ScriptReloadService keeps the prompter text in step with a script file
// on disk. The file wins: every change overwrites the current text.
type ScriptReloadService struct {
	watcher  ports.FileWatcher
	prompter ports.Prompter
	logger   zerolog.Logger
	readFile func(string) ([]byte, error)

	mu       sync.Mutex
	watching bool
	path     string
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScriptReloadService creates an idle reload service
func NewScriptReloadService(watcher ports.FileWatcher, prompter ports.Prompter, logger zerolog.Logger) *ScriptReloadService {
	return &ScriptReloadService{
		watcher:  watcher,
		prompter: prompter,
		logger:   logger.With().Str("component", "script").Logger(),
		readFile: os.ReadFile,
	}
}

// Start loads path into the prompter and then follows its changes
func (s *ScriptReloadService) Start(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watching {
		return errors.New("already watching")
	}

	if _, err := s.load(path); err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	events, err := s.watcher.Watch(watchCtx, path)
	if err != nil {
		cancel()
		return fmt.Errorf("starting watcher: %w", err)
	}

	s.watching = true
	s.path = path
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.handleEvents(watchCtx, events, s.done)

	s.logger.Info().Str("path", path).Msg("watching script file")
	return nil
}

// Stop ends watching and waits for the event loop to exit
func (s *ScriptReloadService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.watching {
		return nil
	}

	s.cancel()
	err := s.watcher.Stop()
	<-s.done

	s.watching = false
	s.cancel = nil
	s.done = nil
	return err
}

// IsWatching reports whether a script file is being followed
func (s *ScriptReloadService) IsWatching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watching
}

func (s *ScriptReloadService) handleEvents(ctx context.Context, events <-chan ports.FileChangeEvent, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			log := s.logger.With().Str("path", event.Path).Str("type", event.Type.String()).Logger()
			if event.Type == ports.Deleted {
				log.Warn().Msg("script file removed, keeping current text")
				continue
			}

			changed, err := s.load(event.Path)
			if err != nil {
				log.Error().Err(err).Msg("script reload failed")
				continue
			}
			if changed {
				log.Info().Msg("script reloaded")
			}
		}
	}
}

// load pushes the file content to the prompter unless it already matches
func (s *ScriptReloadService) load(path string) (bool, error) {
	data, err := s.readFile(path)
	if err != nil {
		return false, fmt.Errorf("reading script: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if text == s.prompter.Snapshot().Text {
		return false, nil
	}

	if _, err := s.prompter.SetText(text); err != nil {
		return false, fmt.Errorf("applying script: %w", err)
	}
	return true, nil
}
