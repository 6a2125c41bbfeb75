package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	r := NewRenderer()

	t.Run("basic formatting", func(t *testing.T) {
		out, err := r.Render("# Bonjour\n\nUn texte **important** et *souligné*.")
		require.NoError(t, err)

		assert.Contains(t, out, "Bonjour</h1>")
		assert.Contains(t, out, "<strong>important</strong>")
		assert.Contains(t, out, "<em>souligné</em>")
	})

	t.Run("gfm tables and strikethrough", func(t *testing.T) {
		out, err := r.Render("| a | b |\n|---|---|\n| 1 | 2 |\n\n~~barré~~")
		require.NoError(t, err)

		assert.Contains(t, out, "<table>")
		assert.Contains(t, out, "<td>1</td>")
		assert.Contains(t, out, "<del>barré</del>")
	})

	t.Run("scripts are stripped", func(t *testing.T) {
		out, err := r.Render("Texte\n\n<script>alert(1)</script>\n\n<img src=x onerror=alert(2)>")
		require.NoError(t, err)

		assert.Contains(t, out, "Texte")
		assert.NotContains(t, out, "<script")
		assert.NotContains(t, out, "onerror")
		assert.NotContains(t, out, "alert")
	})

	t.Run("javascript links are dropped", func(t *testing.T) {
		out, err := r.Render("[clic](javascript:alert(1))")
		require.NoError(t, err)

		assert.NotContains(t, out, "javascript:")
	})

	t.Run("empty text", func(t *testing.T) {
		out, err := r.Render("")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}

func TestRenderer_RenderSlides(t *testing.T) {
	r := NewRenderer()

	t.Run("splits on separator lines", func(t *testing.T) {
		slides, err := r.RenderSlides("# Un\n---\n# Deux\n  ---  \n# Trois")
		require.NoError(t, err)
		require.Len(t, slides, 3)

		for i, s := range slides {
			assert.Equal(t, i, s.Index)
		}
		assert.Contains(t, slides[0].HTML, "Un</h1>")
		assert.Contains(t, slides[1].HTML, "Deux</h1>")
		assert.Contains(t, slides[2].HTML, "Trois</h1>")
		assert.NotContains(t, slides[0].HTML, "<hr")
	})

	t.Run("text without separator is one slide", func(t *testing.T) {
		slides, err := r.RenderSlides("Juste une ligne")
		require.NoError(t, err)
		require.Len(t, slides, 1)
		assert.Contains(t, slides[0].HTML, "Juste une ligne")
	})

	t.Run("empty slides are kept", func(t *testing.T) {
		slides, err := r.RenderSlides("---\n---")
		require.NoError(t, err)
		assert.Len(t, slides, 3)
	})
}
