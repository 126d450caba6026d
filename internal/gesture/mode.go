package gesture

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned when parsing a mode name that does not exist.
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects which landmark drives the tracked position.
type Mode string

const (
	// ModeEyeTracking tracks the midpoint of both eyes.
	ModeEyeTracking Mode = "eye_tracking"
	// ModeHeadGesture tracks the nose tip.
	ModeHeadGesture Mode = "head_gesture"
)

// String returns the label shown in the control panel.
func (m Mode) String() string {
	switch m {
	case ModeEyeTracking:
		return "Eye Tracking"
	case ModeHeadGesture:
		return "Head Gestures"
	default:
		return string(m)
	}
}

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == ModeHeadGesture {
		return ModeEyeTracking
	}
	return ModeHeadGesture
}

// DetectsGestures reports whether the gesture detector is wired for this mode.
// Head gesture detection has no detection path yet; the mode only changes
// which landmark is reported.
func (m Mode) DetectsGestures() bool {
	return m == ModeEyeTracking
}

// ParseMode parses a stored or user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEyeTracking, ModeHeadGesture:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
