package server

import (
	"bufio"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/gazescroll/internal/app"
	"github.com/ayusman/gazescroll/internal/gesture"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}
		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_Routes(t *testing.T) {
	a := app.New(app.Config{})
	s := New(Config{Controller: a, Frames: a})
	defer s.Shutdown(context.Background())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/state", http.StatusOK},
		{http.MethodGet, "/api/settings", http.StatusOK},
		{http.MethodGet, "/api/tracking", http.StatusOK},
		{http.MethodPost, "/api/mode/toggle", http.StatusOK},
		{http.MethodGet, "/api/calibration", http.StatusOK},
		{http.MethodPost, "/api/calibration/bottom", http.StatusAccepted},
		{http.MethodGet, "/api/events", http.StatusOK},
		{http.MethodGet, "/api/nonexistent", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServer_NoController(t *testing.T) {
	s := New(Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d without a controller, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>gazescroll</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

type staticFrames struct {
	mu  sync.Mutex
	buf []byte
}

func (f *staticFrames) LatestJPEG() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf
}

func TestStreamHandler(t *testing.T) {
	frames := &staticFrames{buf: []byte("\xff\xd8fake-jpeg\xff\xd9")}
	ts := httptest.NewServer(NewStreamHandler(frames))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("GET stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("Content-Type = %q, want multipart/x-mixed-replace", ct)
	}

	reader := bufio.NewReader(resp.Body)
	boundary, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("failed to read boundary: %v", err)
	}
	if boundary != "--frame\r\n" {
		t.Errorf("boundary = %q, want --frame", boundary)
	}
	header, _ := reader.ReadString('\n')
	if header != "Content-Type: image/jpeg\r\n" {
		t.Errorf("part header = %q", header)
	}
	length, _ := reader.ReadString('\n')
	if length != "Content-Length: 13\r\n" {
		t.Errorf("length header = %q", length)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&staticFrames{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestSnapshotHandler(t *testing.T) {
	a := app.New(app.Config{})
	h := NewSnapshotHandler(a)
	defer h.Close()

	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first app.Snapshot
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial snapshot: %v", err)
	}
	if first.Active {
		t.Error("initial snapshot should be inactive")
	}

	// A state change is pushed by the broadcaster.
	a.SetActive(true)
	a.ToggleMode()

	var next app.Snapshot
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read pushed snapshot: %v", err)
	}
	for !next.Active || next.Mode != gesture.ModeHeadGesture {
		if err := conn.ReadJSON(&next); err != nil {
			t.Fatalf("read pushed snapshot: %v", err)
		}
	}

	if h.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", h.Clients())
	}
}

// flakySource serves snapshots that cannot be encoded until fixed.
type flakySource struct {
	mu     sync.Mutex
	broken bool
}

func (f *flakySource) Snapshot() app.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return app.Snapshot{Position: math.NaN()}
	}
	return app.Snapshot{Active: true, Position: 0.4}
}

func (f *flakySource) fix() {
	f.mu.Lock()
	f.broken = false
	f.mu.Unlock()
}

func TestSnapshotHandler_InitialEncodeFailure(t *testing.T) {
	src := &flakySource{broken: true}
	h := NewSnapshotHandler(src)
	defer h.Close()

	ts := httptest.NewServer(h)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered after the initial encode failed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	src.fix()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap app.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read broadcast snapshot: %v", err)
	}
	if !snap.Active || snap.Position != 0.4 {
		t.Errorf("snapshot = %+v, want the fixed state", snap)
	}
}
