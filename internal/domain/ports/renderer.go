package ports

// RenderedSlide is one slide of prompter text after Markdown rendering
type RenderedSlide struct {
	Index int    `json:"index"`
	HTML  string `json:"html"`
}

// MarkdownRenderer turns prompter text into sanitized HTML
type MarkdownRenderer interface {
	Render(text string) (string, error)
	RenderSlides(text string) ([]RenderedSlide, error)
}
