package entities

import (
	"strings"
)

// DisplayMode selects what the display view renders
type DisplayMode string

const (
	ModePrompter     DisplayMode = "prompter"
	ModeExternalFeed DisplayMode = "externalFeed"
)

// IsValid reports whether the mode is one of the known display modes
func (m DisplayMode) IsValid() bool {
	return m == ModePrompter || m == ModeExternalFeed
}

// Bounds enforced at the ingestion boundary
const (
	MinSpeed         = 0.5
	MaxSpeed         = 10.0
	MinWebcamOpacity = 0.0
	MaxWebcamOpacity = 1.0

	// ScrollStep is the position delta applied by forward/backward
	ScrollStep = 100.0

	// SlideSeparator is the line that splits text into slides
	SlideSeparator = "---"
)

// DefaultText is shown until a controller pushes content
const DefaultText = "# Bienvenue sur le prompteur\n\nCommencez à écrire votre texte..."

// CanonicalState is the single authoritative presentation record shared by every client
type CanonicalState struct {
	Text             string      `json:"text"`
	Speed            float64     `json:"speed"`
	Position         float64     `json:"position"`
	IsPlaying        bool        `json:"isPlaying"`
	IsMirrored       bool        `json:"isMirrored"`
	IsInverted       bool        `json:"isInverted"`
	WebcamEnabled    bool        `json:"webcamEnabled"`
	WebcamOpacity    float64     `json:"webcamOpacity"`
	WebcamBlur       float64     `json:"webcamBlur"`
	PresentationMode bool        `json:"presentationMode"`
	CurrentSlide     int         `json:"currentSlide"`
	TotalSlides      int         `json:"totalSlides"`
	Mode             DisplayMode `json:"mode"`
}

// NewCanonicalState returns the startup state for the given text and speed
func NewCanonicalState(text string, speed float64) CanonicalState {
	return CanonicalState{
		Text:          text,
		Speed:         speed,
		WebcamOpacity: 1,
		TotalSlides:   SlideCount(text),
		Mode:          ModePrompter,
	}
}

// DefaultCanonicalState returns the state a fresh server starts with
func DefaultCanonicalState() CanonicalState {
	return NewCanonicalState(DefaultText, 2)
}

// StatePatch is a partial update. Nil fields are absent and leave the
// canonical value untouched. TotalSlides is derived and never patched.
type StatePatch struct {
	Text             *string      `json:"text,omitempty"`
	Speed            *float64     `json:"speed,omitempty"`
	Position         *float64     `json:"position,omitempty"`
	IsPlaying        *bool        `json:"isPlaying,omitempty"`
	IsMirrored       *bool        `json:"isMirrored,omitempty"`
	IsInverted       *bool        `json:"isInverted,omitempty"`
	WebcamEnabled    *bool        `json:"webcamEnabled,omitempty"`
	WebcamOpacity    *float64     `json:"webcamOpacity,omitempty"`
	WebcamBlur       *float64     `json:"webcamBlur,omitempty"`
	PresentationMode *bool        `json:"presentationMode,omitempty"`
	CurrentSlide     *int         `json:"currentSlide,omitempty"`
	Mode             *DisplayMode `json:"mode,omitempty"`
}

// IsEmpty reports whether the patch carries no keys
func (p StatePatch) IsEmpty() bool {
	return p == StatePatch{}
}

// Merge shallow-overwrites every present key of the patch onto a copy of
// the state and returns it. TotalSlides is recomputed when text is present
// and CurrentSlide is kept inside the slide range.
func (s CanonicalState) Merge(p StatePatch) CanonicalState {
	out := s
	if p.Text != nil {
		out.Text = *p.Text
		out.TotalSlides = SlideCount(out.Text)
	}
	if p.Speed != nil {
		out.Speed = *p.Speed
	}
	if p.Position != nil {
		out.Position = *p.Position
	}
	if p.IsPlaying != nil {
		out.IsPlaying = *p.IsPlaying
	}
	if p.IsMirrored != nil {
		out.IsMirrored = *p.IsMirrored
	}
	if p.IsInverted != nil {
		out.IsInverted = *p.IsInverted
	}
	if p.WebcamEnabled != nil {
		out.WebcamEnabled = *p.WebcamEnabled
	}
	if p.WebcamOpacity != nil {
		out.WebcamOpacity = *p.WebcamOpacity
	}
	if p.WebcamBlur != nil {
		out.WebcamBlur = *p.WebcamBlur
	}
	if p.PresentationMode != nil {
		out.PresentationMode = *p.PresentationMode
	}
	if p.CurrentSlide != nil {
		out.CurrentSlide = *p.CurrentSlide
	}
	if p.Mode != nil {
		out.Mode = *p.Mode
	}

	if out.TotalSlides < 1 {
		out.TotalSlides = SlideCount(out.Text)
	}
	if out.CurrentSlide >= out.TotalSlides {
		out.CurrentSlide = out.TotalSlides - 1
	}
	if out.CurrentSlide < 0 {
		out.CurrentSlide = 0
	}
	return out
}

// SlideCount returns the number of slides in text: one more than the number
// of separator lines, never less than one.
func SlideCount(text string) int {
	count := 1
	for _, line := range strings.Split(text, "\n") {
		if isSeparator(line) {
			count++
		}
	}
	return count
}

// SplitSlides splits text on separator lines. The result always has
// SlideCount(text) elements.
func SplitSlides(text string) []string {
	var slides []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if isSeparator(line) {
			slides = append(slides, strings.Join(current, "\n"))
			current = current[:0]
			continue
		}
		current = append(current, line)
	}
	return append(slides, strings.Join(current, "\n"))
}

func isSeparator(line string) bool {
	return strings.TrimSpace(line) == SlideSeparator
}

// Ptr returns a pointer to v, handy when building patches
func Ptr[T any](v T) *T {
	return &v
}
