package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

func newTestSync(initial entities.CanonicalState) (*SyncService, *recordingRegistry) {
	registry := newRecordingRegistry()
	return NewSyncService(NewStateStore(initial), registry, zerolog.Nop()), registry
}

func TestSyncService_Ingest(t *testing.T) {
	t.Run("merges and broadcasts with the message kind", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())

		state, err := svc.Ingest("scroll", entities.StatePatch{Position: entities.Ptr(320.0)})
		require.NoError(t, err)
		assert.Equal(t, 320.0, state.Position)

		events := registry.Events()
		require.Len(t, events, 1)
		assert.Equal(t, "scroll", events[0].Type)
		assert.Equal(t, state, *events[0].State)
	})

	t.Run("empty kind becomes update", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())

		_, err := svc.Ingest("", entities.StatePatch{IsPlaying: entities.Ptr(true)})
		require.NoError(t, err)
		assert.Equal(t, ports.EventTypeUpdate, registry.Events()[0].Type)
	})

	t.Run("invalid patch leaves state and skips broadcast", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())

		_, err := svc.Ingest("update", entities.StatePatch{Speed: entities.Ptr(42.0), Text: entities.Ptr("changed")})
		require.Error(t, err)
		assert.True(t, entities.IsValidationError(err))
		assert.Equal(t, entities.DefaultCanonicalState(), svc.Snapshot())
		assert.Empty(t, registry.Events())
	})

	t.Run("patch entering presentation mode resets navigation", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.Text = "A\n---\nB"
		initial.IsPlaying = true
		svc, _ := newTestSync(initial)

		state, err := svc.Ingest("presentation", entities.StatePatch{PresentationMode: entities.Ptr(true)})
		require.NoError(t, err)
		assert.True(t, state.PresentationMode)
		assert.False(t, state.IsPlaying)
		assert.Equal(t, 0, state.CurrentSlide)
		assert.Equal(t, 2, state.TotalSlides)
	})

	t.Run("entry with new text stores and broadcasts once", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())

		state, err := svc.Ingest("presentation", entities.StatePatch{
			Text:             entities.Ptr("A\n---\nB\n---\nC"),
			PresentationMode: entities.Ptr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, state.TotalSlides)
		assert.Equal(t, 0, state.CurrentSlide)
		assert.Equal(t, state, svc.Snapshot())

		events := registry.Events()
		require.Len(t, events, 1)
		assert.Equal(t, state, *events[0].State)
	})

	t.Run("slide patch out of range is rejected", func(t *testing.T) {
		svc, _ := newTestSync(entities.DefaultCanonicalState())

		_, err := svc.Ingest("slide", entities.StatePatch{CurrentSlide: entities.Ptr(3)})
		assert.True(t, entities.IsValidationError(err))
	})
}

func TestSyncService_SetSpeed(t *testing.T) {
	svc, registry := newTestSync(entities.DefaultCanonicalState())

	for _, speed := range []float64{0.4, 10.1} {
		_, err := svc.SetSpeed(speed)
		assert.Error(t, err, "speed %g", speed)
		assert.Equal(t, 2.0, svc.Snapshot().Speed)
	}
	assert.Empty(t, registry.Events())

	state, err := svc.SetSpeed(5)
	require.NoError(t, err)
	assert.Equal(t, 5.0, state.Speed)

	events := registry.EventsOfType(ports.EventTypeSpeed)
	require.Len(t, events, 1)
	assert.Equal(t, 5.0, events[0].State.Speed)
}

func TestSyncService_Control(t *testing.T) {
	t.Run("pause preserves position", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.Position = 120
		initial.IsPlaying = true
		svc, _ := newTestSync(initial)

		state, ok, err := svc.Control("pause")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, state.IsPlaying)
		assert.Equal(t, 120.0, state.Position)
	})

	t.Run("forward interrupts play", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.IsPlaying = true
		svc, registry := newTestSync(initial)

		state, ok, err := svc.Control("forward")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 100.0, state.Position)
		assert.False(t, state.IsPlaying)
		assert.Len(t, registry.EventsOfType(ports.EventTypeControl), 1)
	})

	t.Run("unknown action is a silent success", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())

		state, ok, err := svc.Control("rewind-to-1999")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, entities.DefaultCanonicalState(), state)
		assert.Empty(t, registry.Events())
	})
}

func TestSyncService_Presentation(t *testing.T) {
	t.Run("toggle on resets navigation", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.Text = "A\n---\nB"
		initial.CurrentSlide = 5
		initial.IsPlaying = true
		svc, _ := newTestSync(initial)

		state, err := svc.TogglePresentation()
		require.NoError(t, err)
		assert.True(t, state.PresentationMode)
		assert.Equal(t, 0, state.CurrentSlide)
		assert.Equal(t, 2, state.TotalSlides)
		assert.False(t, state.IsPlaying)
	})

	t.Run("toggle off keeps position", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.Position = 480
		svc, _ := newTestSync(initial)

		_, err := svc.TogglePresentation()
		require.NoError(t, err)
		state, err := svc.TogglePresentation()
		require.NoError(t, err)
		assert.False(t, state.PresentationMode)
		assert.Equal(t, 480.0, state.Position)
	})

	t.Run("set presentation when already on keeps slide", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.Text = "A\n---\nB\n---\nC"
		svc, _ := newTestSync(initial)

		_, err := svc.SetPresentation(true)
		require.NoError(t, err)
		_, err = svc.GotoSlide(2)
		require.NoError(t, err)

		state, err := svc.SetPresentation(true)
		require.NoError(t, err)
		assert.Equal(t, 2, state.CurrentSlide)
	})

	t.Run("navigation without presentation mode is rejected", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())

		_, err := svc.NextSlide()
		assert.True(t, entities.IsPreconditionError(err))
		_, err = svc.PrevSlide()
		assert.True(t, entities.IsPreconditionError(err))
		_, err = svc.GotoSlide(0)
		assert.True(t, entities.IsPreconditionError(err))
		assert.Empty(t, registry.Events())
	})

	t.Run("next and prev clamp at the boundaries", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.Text = "A\n---\nB"
		svc, registry := newTestSync(initial)
		_, err := svc.SetPresentation(true)
		require.NoError(t, err)

		state, err := svc.PrevSlide()
		require.NoError(t, err)
		assert.Equal(t, 0, state.CurrentSlide)

		_, _ = svc.NextSlide()
		state, err = svc.NextSlide()
		require.NoError(t, err)
		assert.Equal(t, 1, state.CurrentSlide)
		assert.Len(t, registry.EventsOfType(ports.EventTypeSlide), 3)
	})

	t.Run("goto out of range is rejected", func(t *testing.T) {
		initial := entities.DefaultCanonicalState()
		initial.Text = "A\n---\nB\n---\nC"
		svc, _ := newTestSync(initial)
		_, err := svc.SetPresentation(true)
		require.NoError(t, err)
		_, err = svc.GotoSlide(1)
		require.NoError(t, err)

		_, err = svc.GotoSlide(5)
		require.Error(t, err)
		assert.True(t, entities.IsValidationError(err))
		assert.Equal(t, 1, svc.Snapshot().CurrentSlide)
	})
}

func TestSyncService_Webcam(t *testing.T) {
	svc, registry := newTestSync(entities.DefaultCanonicalState())

	state, err := svc.ToggleWebcam()
	require.NoError(t, err)
	assert.True(t, state.WebcamEnabled)

	_, err = svc.SetWebcamOpacity(1.2)
	assert.True(t, entities.IsValidationError(err))
	_, err = svc.SetWebcamBlur(-1)
	assert.True(t, entities.IsValidationError(err))

	state, err = svc.SetWebcamOpacity(0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.4, state.WebcamOpacity)

	state, err = svc.SetWebcamBlur(6)
	require.NoError(t, err)
	assert.Equal(t, 6.0, state.WebcamBlur)

	state, err = svc.SetWebcamEnabled(false)
	require.NoError(t, err)
	assert.False(t, state.WebcamEnabled)

	assert.Len(t, registry.EventsOfType(ports.EventTypeWebcam), 4)
}

func TestSyncService_TogglesAndMode(t *testing.T) {
	svc, _ := newTestSync(entities.DefaultCanonicalState())

	state, err := svc.SetMirror(true)
	require.NoError(t, err)
	assert.True(t, state.IsMirrored)

	state, err = svc.SetInvert(true)
	require.NoError(t, err)
	assert.True(t, state.IsInverted)

	state, err = svc.SetMode(entities.ModeExternalFeed)
	require.NoError(t, err)
	assert.Equal(t, entities.ModeExternalFeed, state.Mode)

	_, err = svc.SetMode("slides")
	assert.True(t, entities.IsValidationError(err))

	state, err = svc.SetText("")
	require.NoError(t, err)
	assert.Equal(t, 1, state.TotalSlides)
}

func TestSyncService_Attach(t *testing.T) {
	t.Run("init is the first frame and reflects prior updates", func(t *testing.T) {
		svc, _ := newTestSync(entities.DefaultCanonicalState())

		for i := 1; i <= 3; i++ {
			_, err := svc.Ingest("update", entities.StatePatch{Position: entities.Ptr(float64(i * 10))})
			require.NoError(t, err)
		}
		_, err := svc.SetText("A\n---\nB")
		require.NoError(t, err)

		ch := &memoryChannel{id: "late"}
		require.NoError(t, svc.Attach(ch))

		frames := ch.Frames()
		require.Len(t, frames, 1)
		assert.Equal(t, ports.EventTypeInit, frames[0].Type)
		assert.Equal(t, svc.Snapshot(), *frames[0].State)
		assert.Equal(t, 30.0, frames[0].State.Position)
		assert.Equal(t, 2, frames[0].State.TotalSlides)
	})

	t.Run("rejected init does not register", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())

		err := svc.Attach(&memoryChannel{id: "full", full: true})
		assert.ErrorIs(t, err, ErrChannelRejected)
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("fan-out reaches every channel with the same state", func(t *testing.T) {
		svc, _ := newTestSync(entities.DefaultCanonicalState())

		channels := make([]*memoryChannel, 4)
		for i := range channels {
			channels[i] = &memoryChannel{id: fmt.Sprintf("c%d", i)}
			require.NoError(t, svc.Attach(channels[i]))
		}

		state, err := svc.SetMirror(true)
		require.NoError(t, err)

		for _, ch := range channels {
			frames := ch.Frames()
			require.Len(t, frames, 2)
			assert.Equal(t, ports.EventTypeMirror, frames[1].Type)
			assert.Equal(t, state, *frames[1].State)
		}
	})

	t.Run("detach stops delivery", func(t *testing.T) {
		svc, registry := newTestSync(entities.DefaultCanonicalState())
		ch := &memoryChannel{id: "gone"}
		require.NoError(t, svc.Attach(ch))

		svc.Detach("gone")
		_, err := svc.SetMirror(true)
		require.NoError(t, err)

		assert.Len(t, ch.Frames(), 1)
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("concurrent attach and ingest never skip init", func(t *testing.T) {
		svc, _ := newTestSync(entities.DefaultCanonicalState())

		var wg sync.WaitGroup
		channels := make([]*memoryChannel, 20)
		for i := range channels {
			channels[i] = &memoryChannel{id: fmt.Sprintf("c%d", i)}
			wg.Add(2)
			go func(ch *memoryChannel) {
				defer wg.Done()
				_ = svc.Attach(ch)
			}(channels[i])
			go func(i int) {
				defer wg.Done()
				_, _ = svc.Ingest("update", entities.StatePatch{Position: entities.Ptr(float64(i))})
			}(i)
		}
		wg.Wait()

		for _, ch := range channels {
			frames := ch.Frames()
			require.NotEmpty(t, frames)
			assert.Equal(t, ports.EventTypeInit, frames[0].Type)
		}
	})
}
