package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	faces []FaceLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFaces sets the faces that will be returned by Detect.
func (m *MockDetector) SetFaces(faces []FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faces = faces
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured faces or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.faces, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FaceAt returns a preset face mesh whose eyes sit at eyeY and whose nose
// tip sits at noseY. Every other landmark is placed at the frame center.
func FaceAt(eyeY, noseY float64) FaceLandmarks {
	face := FaceLandmarks{
		Points: make([]Point3D, NumLandmarks),
		Score:  0.95,
	}
	for i := range face.Points {
		face.Points[i] = Point3D{X: 0.5, Y: 0.5}
	}

	face.Points[LeftEyeOuter] = Point3D{X: 0.40, Y: eyeY}
	face.Points[RightEyeOuter] = Point3D{X: 0.60, Y: eyeY}
	face.Points[NoseTip] = Point3D{X: 0.50, Y: noseY}

	return face
}

// LookingAt returns a preset face whose eye midpoint is at y.
func LookingAt(y float64) FaceLandmarks {
	return FaceAt(y, y+0.1)
}
