package detector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"gocv.io/x/gocv"
)

// ServiceScript is the file name of the face mesh service looked up at startup.
const ServiceScript = "face_mesh_service.py"

// IdleShutdown is how long the service process may sit unused before it is stopped.
const IdleShutdown = 30 * time.Second

// After a failed start or exchange the service is not respawned for
// RestartBackoff, doubling per consecutive failure up to MaxRestartBackoff.
const (
	RestartBackoff    = 5 * time.Second
	MaxRestartBackoff = time.Minute
)

// ErrScriptNotFound is returned when the face mesh service script cannot be located.
var ErrScriptNotFound = errors.New(ServiceScript + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe face mesh subprocess.
//
// Frames are sent as a 4 byte big-endian length followed by JPEG bytes; the
// service answers with one JSON line per frame.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	mu         sync.Mutex
	started    bool
	idleTimer  *time.Timer
	failures   int
	retryAt    time.Time
}

// NewMediaPipeDetector creates a new MediaPipe detector.
// The Python process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findServiceScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("stat %s: %w", scriptPath, err)
	}

	return &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
	}, nil
}

// Detect analyzes a frame and returns detected face landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]FaceLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if time.Now().Before(d.retryAt) {
		return nil, ErrServiceUnavailable
	}

	if err := d.ensureStarted(); err != nil {
		d.fail(err)
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	line, err := d.roundTrip(buf.GetBytes())
	if err != nil {
		// The pipe is unusable after a partial exchange; restart after the backoff.
		d.shutdown()
		d.fail(err)
		return nil, err
	}
	d.failures = 0

	faces, err := decodeResponse(line)
	if err != nil {
		return nil, err
	}

	d.resetIdleTimer()

	return faces, nil
}

// fail schedules the next restart attempt after a service failure.
func (d *MediaPipeDetector) fail(err error) {
	d.failures++
	backoff := RestartBackoff
	for i := 1; i < d.failures && backoff < MaxRestartBackoff; i++ {
		backoff *= 2
	}
	if backoff > MaxRestartBackoff {
		backoff = MaxRestartBackoff
	}
	d.retryAt = time.Now().Add(backoff)

	detLog.Warn().Err(err).Int("failures", d.failures).Dur("retry_in", backoff).Msg("face mesh service failed")
}

// CheckDependencies checks that the interpreter can import the service dependencies.
func (d *MediaPipeDetector) CheckDependencies(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, d.python(), "-c", "import cv2, mediapipe, numpy")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %v: %s", ErrServiceUnavailable, err, bytes.TrimSpace(out))
	}
	return nil
}

func (d *MediaPipeDetector) python() string {
	if d.config.Python != "" {
		return d.config.Python
	}
	if venv := findVenvPython(); venv != "" {
		return venv
	}
	return "python3"
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) roundTrip(data []byte) ([]byte, error) {
	if err := writeFrame(d.stdin, data); err != nil {
		return nil, err
	}

	line, err := d.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// writeFrame writes one length-prefixed JPEG to w.
func writeFrame(w io.Writer, data []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(data)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = exec.Command(d.python(), append([]string{d.scriptPath}, d.serviceArgs()...)...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("face mesh stdin: %w", err)
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("face mesh stdout: %w", err)
	}
	// Service diagnostics go straight to our stderr.
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start face mesh service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	detLog.Info().Str("script", d.scriptPath).Int("pid", d.cmd.Process.Pid).Msg("face mesh service started")
	return nil
}

func (d *MediaPipeDetector) serviceArgs() []string {
	args := []string{
		"--max-faces", strconv.Itoa(d.config.MaxFaces),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	}
	if d.config.RefineLandmarks {
		args = append(args, "--refine-landmarks")
	}
	return args
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	detLog.Info().Msg("face mesh service stopped")
	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// serviceResponse is the JSON line written by the face mesh service.
type serviceResponse struct {
	Faces []jsonFace `json:"faces"`
	Error string     `json:"error,omitempty"`
}

type jsonFace struct {
	Points []Point3D `json:"points"`
	Score  float64   `json:"score"`
}

// decodeResponse parses one response line from the face mesh service.
func decodeResponse(line []byte) ([]FaceLandmarks, error) {
	var response serviceResponse
	if err := sonic.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("face mesh service: %s", response.Error)
	}

	if len(response.Faces) == 0 {
		return nil, nil
	}

	faces := make([]FaceLandmarks, len(response.Faces))
	for i, f := range response.Faces {
		faces[i] = FaceLandmarks{Points: f.Points, Score: f.Score}
	}
	return faces, nil
}

// searchDirs lists the directories searched for the service script and its
// virtualenv, nearest first.
func searchDirs() []string {
	dirs := []string{".", ".."}
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".gazescroll"))
	}
	return dirs
}

// locate returns the absolute path of the first dir/rel that exists, or "".
func locate(rel string) string {
	for _, dir := range searchDirs() {
		path := filepath.Join(dir, rel)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

func findServiceScript() string {
	return locate(filepath.Join("scripts", ServiceScript))
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	return locate(filepath.Join("venv", "bin", "python"))
}
