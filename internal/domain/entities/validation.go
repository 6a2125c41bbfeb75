package entities

import (
	"math"
)

// ValidateSpeed checks the playback speed range
func ValidateSpeed(speed float64) error {
	if math.IsNaN(speed) || speed < MinSpeed || speed > MaxSpeed {
		return NewValidationError("speed", "must be between %g and %g, got %g", MinSpeed, MaxSpeed, speed)
	}
	return nil
}

// ValidateWebcamOpacity checks the overlay opacity range
func ValidateWebcamOpacity(opacity float64) error {
	if math.IsNaN(opacity) || opacity < MinWebcamOpacity || opacity > MaxWebcamOpacity {
		return NewValidationError("webcamOpacity", "must be between %g and %g, got %g", MinWebcamOpacity, MaxWebcamOpacity, opacity)
	}
	return nil
}

// ValidateWebcamBlur checks the overlay blur radius
func ValidateWebcamBlur(blur float64) error {
	if math.IsNaN(blur) || blur < 0 {
		return NewValidationError("webcamBlur", "must be non-negative, got %g", blur)
	}
	return nil
}

// ValidatePosition checks the scroll checkpoint
func ValidatePosition(position float64) error {
	if math.IsNaN(position) || position < 0 {
		return NewValidationError("position", "must be non-negative, got %g", position)
	}
	return nil
}

// ValidateSlideIndex checks 0 <= index < total
func ValidateSlideIndex(index, total int) error {
	if index < 0 || index >= total {
		return NewValidationError("currentSlide", "must be between 0 and %d, got %d", total-1, index)
	}
	return nil
}

// ValidateMode checks the display mode name
func ValidateMode(mode DisplayMode) error {
	if !mode.IsValid() {
		return NewValidationError("mode", "must be %q or %q, got %q", ModePrompter, ModeExternalFeed, mode)
	}
	return nil
}

// Validate checks every present key of the patch against current, the
// state it will be merged into. Slide indexes are checked against the slide
// count the merge will produce.
func (p StatePatch) Validate(current CanonicalState) error {
	if p.Speed != nil {
		if err := ValidateSpeed(*p.Speed); err != nil {
			return err
		}
	}
	if p.Position != nil {
		if err := ValidatePosition(*p.Position); err != nil {
			return err
		}
	}
	if p.WebcamOpacity != nil {
		if err := ValidateWebcamOpacity(*p.WebcamOpacity); err != nil {
			return err
		}
	}
	if p.WebcamBlur != nil {
		if err := ValidateWebcamBlur(*p.WebcamBlur); err != nil {
			return err
		}
	}
	if p.Mode != nil {
		if err := ValidateMode(*p.Mode); err != nil {
			return err
		}
	}
	if p.CurrentSlide != nil {
		total := current.TotalSlides
		if p.Text != nil {
			total = SlideCount(*p.Text)
		}
		if err := ValidateSlideIndex(*p.CurrentSlide, total); err != nil {
			return err
		}
	}
	return nil
}
