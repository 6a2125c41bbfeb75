package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlideCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 1},
		{"no separator", "# Title\n\nbody", 1},
		{"two separators", "A\n---\nB\n---\nC", 3},
		{"separator with spaces", "A\n  ---  \nB", 2},
		{"longer rule is not a separator", "A\n----\nB", 1},
		{"inline dashes ignored", "A --- B", 1},
		{"leading separator", "---\nA", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SlideCount(tt.text))
			assert.Len(t, SplitSlides(tt.text), tt.want)
		})
	}
}

func TestSplitSlides(t *testing.T) {
	slides := SplitSlides("A\n---\nB\nC\n---\nD")
	assert.Equal(t, []string{"A", "B\nC", "D"}, slides)
}

func TestCanonicalState_Merge(t *testing.T) {
	t.Run("absent keys are kept", func(t *testing.T) {
		base := DefaultCanonicalState()
		base.IsMirrored = true

		merged := base.Merge(StatePatch{Speed: Ptr(3.0)})

		assert.Equal(t, 3.0, merged.Speed)
		assert.True(t, merged.IsMirrored)
		assert.Equal(t, base.Text, merged.Text)
		assert.Equal(t, base.WebcamOpacity, merged.WebcamOpacity)
	})

	t.Run("empty patch is identity", func(t *testing.T) {
		base := DefaultCanonicalState()
		assert.Equal(t, base, base.Merge(StatePatch{}))
	})

	t.Run("text recomputes slide count", func(t *testing.T) {
		merged := DefaultCanonicalState().Merge(StatePatch{Text: Ptr("A\n---\nB\n---\nC")})
		assert.Equal(t, 3, merged.TotalSlides)
	})

	t.Run("shrinking text clamps current slide", func(t *testing.T) {
		base := DefaultCanonicalState().Merge(StatePatch{Text: Ptr("A\n---\nB\n---\nC"), CurrentSlide: Ptr(2)})
		require.Equal(t, 2, base.CurrentSlide)

		merged := base.Merge(StatePatch{Text: Ptr("only one")})
		assert.Equal(t, 1, merged.TotalSlides)
		assert.Equal(t, 0, merged.CurrentSlide)
	})

	t.Run("input state is not modified", func(t *testing.T) {
		base := DefaultCanonicalState()
		_ = base.Merge(StatePatch{IsPlaying: Ptr(true)})
		assert.False(t, base.IsPlaying)
	})
}

func TestStatePatch_JSON(t *testing.T) {
	t.Run("absent keys stay nil", func(t *testing.T) {
		var patch StatePatch
		require.NoError(t, json.Unmarshal([]byte(`{"isPlaying":false,"position":0}`), &patch))

		require.NotNil(t, patch.IsPlaying)
		assert.False(t, *patch.IsPlaying)
		require.NotNil(t, patch.Position)
		assert.Equal(t, 0.0, *patch.Position)
		assert.Nil(t, patch.Speed)
		assert.Nil(t, patch.Text)
	})

	t.Run("totalSlides is ignored", func(t *testing.T) {
		var patch StatePatch
		require.NoError(t, json.Unmarshal([]byte(`{"totalSlides":99}`), &patch))
		assert.True(t, patch.IsEmpty())
	})

	t.Run("state uses wire names", func(t *testing.T) {
		data, err := json.Marshal(DefaultCanonicalState())
		require.NoError(t, err)

		var fields map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &fields))
		for _, key := range []string{"text", "speed", "position", "isPlaying", "isMirrored", "isInverted",
			"webcamEnabled", "webcamOpacity", "webcamBlur", "presentationMode", "currentSlide", "totalSlides", "mode"} {
			assert.Contains(t, fields, key)
		}
		assert.Equal(t, "prompter", fields["mode"])
	})
}

func TestDisplayMode_IsValid(t *testing.T) {
	assert.True(t, ModePrompter.IsValid())
	assert.True(t, ModeExternalFeed.IsValid())
	assert.False(t, DisplayMode("slides").IsValid())
}
