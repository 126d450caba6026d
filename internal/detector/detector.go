package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrServiceUnavailable is returned while a failed detection backend waits
// before it is restarted.
var ErrServiceUnavailable = errors.New("face detection service unavailable")

// Detector defines the interface for face landmark implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of detected faces.
	// Returns an empty slice if no face is detected.
	Detect(frame *gocv.Mat) ([]FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face landmark detection.
type Config struct {
	// MaxFaces is the maximum number of faces to detect (default: 1).
	MaxFaces int

	// RefineLandmarks enables the iris-refined 478 point mesh.
	RefineLandmarks bool

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the location of the face mesh service script.
	ScriptPath string

	// Python overrides the interpreter that runs the script.
	Python string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxFaces:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
