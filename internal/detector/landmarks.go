// Package detector provides face landmark interfaces and types for gaze tracking.
package detector

// Face mesh landmark indices following the MediaPipe face mesh numbering.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip       = 1
	LeftEyeOuter  = 33
	RightEyeOuter = 263
	NumLandmarks  = 468
)

// Point3D represents a normalized landmark position. X and Y are in [0,1]
// relative to the frame; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks represents the landmark mesh of one detected face.
type FaceLandmarks struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// Point returns the landmark at index i and whether it exists.
func (f *FaceLandmarks) Point(i int) (Point3D, bool) {
	if f == nil || i < 0 || i >= len(f.Points) {
		return Point3D{}, false
	}
	return f.Points[i], true
}

// Len returns the number of landmarks in the mesh.
func (f *FaceLandmarks) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Points)
}
