package entities

import (
	"math"
)

// ControlAction names a playback or navigation command
type ControlAction string

const (
	ActionPlay     ControlAction = "play"
	ActionPause    ControlAction = "pause"
	ActionForward  ControlAction = "forward"
	ActionBackward ControlAction = "backward"
	ActionReset    ControlAction = "reset"
)

// Transform is a pure state transition. It returns the next state or an
// error, in which case the input state must be kept.
type Transform func(CanonicalState) (CanonicalState, error)

var controlActions = map[ControlAction]Transform{
	ActionPlay:     Play,
	ActionPause:    Pause,
	ActionForward:  Forward,
	ActionBackward: Backward,
	ActionReset:    Reset,
}

// LookupControl returns the transform for a control action name
func LookupControl(action string) (Transform, bool) {
	t, ok := controlActions[ControlAction(action)]
	return t, ok
}

// Play starts scrolling from the current position
func Play(s CanonicalState) (CanonicalState, error) {
	s.IsPlaying = true
	return s, nil
}

// Pause stops scrolling. Position is untouched: the display reports its
// own pause position in a separate patch.
func Pause(s CanonicalState) (CanonicalState, error) {
	s.IsPlaying = false
	return s, nil
}

// Forward jumps ahead one scroll step and stops playback
func Forward(s CanonicalState) (CanonicalState, error) {
	s.Position += ScrollStep
	s.IsPlaying = false
	return s, nil
}

// Backward jumps back one scroll step, not past the top, and stops playback
func Backward(s CanonicalState) (CanonicalState, error) {
	s.Position = math.Max(0, s.Position-ScrollStep)
	s.IsPlaying = false
	return s, nil
}

// Reset rewinds to the top and stops playback
func Reset(s CanonicalState) (CanonicalState, error) {
	s.Position = 0
	s.IsPlaying = false
	return s, nil
}

// EnterPresentation switches to slide mode starting at the first slide
func EnterPresentation(s CanonicalState) (CanonicalState, error) {
	s.PresentationMode = true
	s.TotalSlides = SlideCount(s.Text)
	s.CurrentSlide = 0
	s.IsPlaying = false
	return s, nil
}

// ExitPresentation returns to scroll mode, keeping the scroll position
func ExitPresentation(s CanonicalState) (CanonicalState, error) {
	s.PresentationMode = false
	return s, nil
}

// NextSlide advances one slide, staying on the last one at the end
func NextSlide(s CanonicalState) (CanonicalState, error) {
	if !s.PresentationMode {
		return s, errNotInPresentation("next slide")
	}
	if s.CurrentSlide < s.TotalSlides-1 {
		s.CurrentSlide++
	}
	return s, nil
}

// PrevSlide goes back one slide, staying on the first one at the start
func PrevSlide(s CanonicalState) (CanonicalState, error) {
	if !s.PresentationMode {
		return s, errNotInPresentation("previous slide")
	}
	if s.CurrentSlide > 0 {
		s.CurrentSlide--
	}
	return s, nil
}

// GotoSlide returns a transform jumping to slide index
func GotoSlide(index int) Transform {
	return func(s CanonicalState) (CanonicalState, error) {
		if !s.PresentationMode {
			return s, errNotInPresentation("goto slide")
		}
		if err := ValidateSlideIndex(index, s.TotalSlides); err != nil {
			return s, err
		}
		s.CurrentSlide = index
		return s, nil
	}
}

func errNotInPresentation(op string) error {
	return &PreconditionError{Operation: op, Message: "presentation mode is not active"}
}
