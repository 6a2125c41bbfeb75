package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/fredcamaral/prompteur/internal/domain/entities"
	"github.com/fredcamaral/prompteur/internal/domain/ports"
)

// Renderer implements ports.MarkdownRenderer with Goldmark and a bluemonday policy
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewRenderer creates a Markdown renderer for prompter text
func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(), // raw HTML is passed through and sanitized afterwards
		),
	)

	return &Renderer{md: md, policy: newPolicy()}
}

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowElements("p", "br", "hr")
	p.AllowElements("strong", "b", "em", "i", "u", "s", "del", "mark")
	p.AllowElements("ul", "ol", "li")
	p.AllowElements("blockquote", "pre", "code")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("align").OnElements("th", "td")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireNoFollowOnLinks(true)
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").OnElements("span", "code", "pre")

	return p
}

// Render converts the whole text, separators included, to sanitized HTML
func (r *Renderer) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}

// RenderSlides renders each slide separately. The slide count always matches
// entities.SlideCount(text).
func (r *Renderer) RenderSlides(text string) ([]ports.RenderedSlide, error) {
	parts := entities.SplitSlides(text)
	slides := make([]ports.RenderedSlide, 0, len(parts))
	for i, part := range parts {
		out, err := r.Render(part)
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
		slides = append(slides, ports.RenderedSlide{Index: i, HTML: out})
	}
	return slides, nil
}

var _ ports.MarkdownRenderer = (*Renderer)(nil)
