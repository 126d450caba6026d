package detector

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

const epsilon = 1e-9

func TestFaceLandmarks_Point(t *testing.T) {
	face := FaceAt(0.3, 0.4)

	tests := []struct {
		name   string
		face   *FaceLandmarks
		index  int
		wantOK bool
		wantY  float64
	}{
		{name: "left eye", face: &face, index: LeftEyeOuter, wantOK: true, wantY: 0.3},
		{name: "right eye", face: &face, index: RightEyeOuter, wantOK: true, wantY: 0.3},
		{name: "nose tip", face: &face, index: NoseTip, wantOK: true, wantY: 0.4},
		{name: "negative index", face: &face, index: -1, wantOK: false},
		{name: "past the mesh", face: &face, index: NumLandmarks, wantOK: false},
		{name: "nil face", face: nil, index: NoseTip, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := tt.face.Point(tt.index)
			if ok != tt.wantOK {
				t.Fatalf("Point(%d) ok = %v, want %v", tt.index, ok, tt.wantOK)
			}
			if ok && math.Abs(p.Y-tt.wantY) > epsilon {
				t.Errorf("Point(%d).Y = %f, want %f", tt.index, p.Y, tt.wantY)
			}
		})
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns no faces by default", func(t *testing.T) {
		mock := NewMockDetector()

		faces, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if faces != nil {
			t.Errorf("expected nil faces, got %v", faces)
		}
	})

	t.Run("returns configured faces", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetFaces([]FaceLandmarks{LookingAt(0.35)})

		faces, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(faces) != 1 {
			t.Fatalf("expected 1 face, got %d", len(faces))
		}
		if faces[0].Len() != NumLandmarks {
			t.Errorf("expected %d landmarks, got %d", NumLandmarks, faces[0].Len())
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		faces, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if faces != nil {
			t.Errorf("expected nil faces when error is set, got %v", faces)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Run("single face", func(t *testing.T) {
		line := []byte(`{"faces":[{"score":0.9,"points":[{"x":0.1,"y":0.2,"z":0.0},{"x":0.5,"y":0.6,"z":-0.01}]}]}` + "\n")

		faces, err := decodeResponse(line)
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if len(faces) != 1 {
			t.Fatalf("expected 1 face, got %d", len(faces))
		}
		p, ok := faces[0].Point(1)
		if !ok || math.Abs(p.Y-0.6) > epsilon {
			t.Errorf("Point(1) = %+v, %v; want y=0.6", p, ok)
		}
		if faces[0].Score != 0.9 {
			t.Errorf("Score = %f, want 0.9", faces[0].Score)
		}
	})

	t.Run("no faces", func(t *testing.T) {
		faces, err := decodeResponse([]byte(`{"faces":[]}`))
		if err != nil {
			t.Fatalf("decodeResponse() error = %v", err)
		}
		if faces != nil {
			t.Errorf("expected nil faces, got %v", faces)
		}
	})

	t.Run("service error", func(t *testing.T) {
		_, err := decodeResponse([]byte(`{"faces":[],"error":"model failed"}`))
		if err == nil {
			t.Fatal("expected error from service error field")
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		_, err := decodeResponse([]byte(`{"faces":`))
		if err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScriptPath = "/nonexistent/face_mesh_service.py"

	if _, err := NewMediaPipeDetector(cfg); err == nil {
		t.Fatal("expected error for missing script")
	}
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte{0xff, 0xd8, 0x01, 0x02, 0xff, 0xd9}

	if err := writeFrame(&buf, payload); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	out := buf.Bytes()
	if len(out) != 4+len(payload) {
		t.Fatalf("wrote %d bytes, want %d", len(out), 4+len(payload))
	}
	if n := binary.BigEndian.Uint32(out[:4]); n != uint32(len(payload)) {
		t.Errorf("length prefix = %d, want %d", n, len(payload))
	}
	if !bytes.Equal(out[4:], payload) {
		t.Errorf("payload = %v, want %v", out[4:], payload)
	}
}

// crashingService writes a service script that records each start in a log
// file and exits at once, like an interpreter missing its packages.
func crashingService(t *testing.T) (Config, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping shell service test on Windows")
	}

	dir := t.TempDir()
	starts := filepath.Join(dir, "starts.log")
	script := filepath.Join(dir, ServiceScript)
	body := "echo start >> " + starts + "\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.ScriptPath = script
	cfg.Python = "/bin/sh"
	return cfg, starts
}

func countStarts(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Count(string(data), "start")
}

func TestMediaPipeDetector_BacksOffAfterFailure(t *testing.T) {
	cfg, starts := crashingService(t)
	d, err := NewMediaPipeDetector(cfg)
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	defer d.Close()

	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if _, err := d.Detect(&frame); err == nil {
		t.Fatal("Detect() should fail when the service exits")
	}

	for i := 0; i < 20; i++ {
		if _, err := d.Detect(&frame); !errors.Is(err, ErrServiceUnavailable) {
			t.Fatalf("Detect() #%d error = %v, want ErrServiceUnavailable", i, err)
		}
	}
	if n := countStarts(t, starts); n != 1 {
		t.Errorf("service started %d times inside the backoff window, want 1", n)
	}

	// Once the window passes the service is tried again and the wait doubles.
	d.mu.Lock()
	d.retryAt = time.Time{}
	d.mu.Unlock()

	if _, err := d.Detect(&frame); err == nil || errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("Detect() after backoff error = %v, want a restart failure", err)
	}
	if n := countStarts(t, starts); n != 2 {
		t.Errorf("service started %d times, want 2", n)
	}

	d.mu.Lock()
	wait := time.Until(d.retryAt)
	d.mu.Unlock()
	if wait <= RestartBackoff || wait > 2*RestartBackoff {
		t.Errorf("second backoff = %v, want about %v", wait, 2*RestartBackoff)
	}
}

func TestMediaPipeDetector_CheckDependencies(t *testing.T) {
	cfg, _ := crashingService(t)

	tests := []struct {
		name    string
		python  string
		wantErr bool
	}{
		{name: "dependencies importable", python: "true"},
		{name: "dependencies missing", python: "false", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Python = tt.python
			d, err := NewMediaPipeDetector(cfg)
			if err != nil {
				t.Fatalf("NewMediaPipeDetector() error = %v", err)
			}

			err = d.CheckDependencies(context.Background())
			if tt.wantErr != (err != nil) {
				t.Fatalf("CheckDependencies() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrServiceUnavailable) {
				t.Errorf("CheckDependencies() error = %v, want ErrServiceUnavailable", err)
			}
		})
	}
}
