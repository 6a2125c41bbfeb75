package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

func writeScript(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func nextEvent(t *testing.T, events <-chan ports.FileChangeEvent) ports.FileChangeEvent {
	t.Helper()
	select {
	case event, ok := <-events:
		require.True(t, ok, "event channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return ports.FileChangeEvent{}
}

func newScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.md")
	writeScript(t, path, content)
	return path
}

func TestPollingWatcher(t *testing.T) {
	t.Run("reports modifications", func(t *testing.T) {
		w := NewPollingWatcher(20*time.Millisecond, 0, zerolog.Nop())
		defer func() { _ = w.Stop() }()
		path := newScript(t, "initial")

		events, err := w.Watch(context.Background(), path)
		require.NoError(t, err)

		writeScript(t, path, "updated content")

		event := nextEvent(t, events)
		assert.Equal(t, path, event.Path)
		assert.Equal(t, ports.Modified, event.Type)
		assert.WithinDuration(t, time.Now(), event.Timestamp, 2*time.Second)
	})

	t.Run("reports deletion and recreation", func(t *testing.T) {
		w := NewPollingWatcher(20*time.Millisecond, 0, zerolog.Nop())
		defer func() { _ = w.Stop() }()
		path := newScript(t, "initial")

		events, err := w.Watch(context.Background(), path)
		require.NoError(t, err)

		require.NoError(t, os.Remove(path))
		assert.Equal(t, ports.Deleted, nextEvent(t, events).Type)

		writeScript(t, path, "back again")
		assert.Equal(t, ports.Created, nextEvent(t, events).Type)
	})

	t.Run("unchanged content is silent", func(t *testing.T) {
		w := NewPollingWatcher(20*time.Millisecond, 0, zerolog.Nop())
		defer func() { _ = w.Stop() }()
		path := newScript(t, "same")

		events, err := w.Watch(context.Background(), path)
		require.NoError(t, err)

		// rewrite with identical bytes: mtime moves, checksum does not
		time.Sleep(30 * time.Millisecond)
		writeScript(t, path, "same")

		select {
		case event := <-events:
			t.Fatalf("unexpected event %v", event.Type)
		case <-time.After(200 * time.Millisecond):
		}
	})

	t.Run("debounce coalesces bursts", func(t *testing.T) {
		w := NewPollingWatcher(10*time.Millisecond, 300*time.Millisecond, zerolog.Nop())
		defer func() { _ = w.Stop() }()
		path := newScript(t, "v0")

		events, err := w.Watch(context.Background(), path)
		require.NoError(t, err)

		writeScript(t, path, "v1")
		nextEvent(t, events)

		for _, v := range []string{"v2", "v3", "v4"} {
			writeScript(t, path, v)
			time.Sleep(20 * time.Millisecond)
		}

		// the burst yields one trailing event after the window
		nextEvent(t, events)
		select {
		case <-events:
			t.Fatal("burst produced more than one trailing event")
		case <-time.After(400 * time.Millisecond):
		}
	})

	t.Run("missing file", func(t *testing.T) {
		w := NewPollingWatcher(20*time.Millisecond, 0, zerolog.Nop())
		defer func() { _ = w.Stop() }()

		_, err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "nope.md"))
		assert.Error(t, err)
	})

	t.Run("stop closes the channel and is idempotent", func(t *testing.T) {
		w := NewPollingWatcher(20*time.Millisecond, 0, zerolog.Nop())
		path := newScript(t, "x")

		events, err := w.Watch(context.Background(), path)
		require.NoError(t, err)

		require.NoError(t, w.Stop())
		require.NoError(t, w.Stop())

		_, ok := <-events
		assert.False(t, ok)

		_, err = w.Watch(context.Background(), path)
		assert.Error(t, err)
	})

	t.Run("context cancel ends polling", func(t *testing.T) {
		w := NewPollingWatcher(20*time.Millisecond, 0, zerolog.Nop())
		path := newScript(t, "x")
		ctx, cancel := context.WithCancel(context.Background())

		_, err := w.Watch(ctx, path)
		require.NoError(t, err)
		cancel()

		done := make(chan struct{})
		go func() {
			_ = w.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("stop blocked after cancel")
		}
	})
}

func TestChangeTypeString(t *testing.T) {
	assert.Equal(t, "modified", ports.Modified.String())
	assert.Equal(t, "created", ports.Created.String())
	assert.Equal(t, "deleted", ports.Deleted.String())
	assert.Equal(t, "unknown", ports.ChangeType(42).String())
}
