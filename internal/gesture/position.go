package gesture

import "github.com/ayusman/gazescroll/internal/detector"

// EyePosition returns the average vertical position of both outer eye corners.
func EyePosition(face *detector.FaceLandmarks) (float64, bool) {
	left, ok := face.Point(detector.LeftEyeOuter)
	if !ok {
		return 0, false
	}
	right, ok := face.Point(detector.RightEyeOuter)
	if !ok {
		return 0, false
	}
	return (left.Y + right.Y) / 2, true
}

// HeadPosition returns the vertical position of the nose tip.
func HeadPosition(face *detector.FaceLandmarks) (float64, bool) {
	nose, ok := face.Point(detector.NoseTip)
	if !ok {
		return 0, false
	}
	return nose.Y, true
}

// Position extracts the tracked vertical position for the given mode.
// The result is false when the mesh is too short to hold the landmark.
func Position(face *detector.FaceLandmarks, mode Mode) (float64, bool) {
	if mode == ModeHeadGesture {
		return HeadPosition(face)
	}
	return EyePosition(face)
}
