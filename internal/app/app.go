// Package app wires the camera, face detector, gesture detector and key
// executor into the gazescroll frame loop and exposes its live state to the
// control panels.
package app

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/gazescroll/internal/action"
	"github.com/ayusman/gazescroll/internal/capture"
	"github.com/ayusman/gazescroll/internal/detector"
	"github.com/ayusman/gazescroll/internal/gesture"
	"github.com/ayusman/gazescroll/internal/store"
)

// DefaultFrameInterval is the loop tick period.
const DefaultFrameInterval = 10 * time.Millisecond

// ErrAlreadyRunning is returned when the frame loop is started twice.
var ErrAlreadyRunning = errors.New("frame loop already running")

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	Executor action.Executor

	// Store is optional. When set, settings are restored from and saved to
	// it and fired scroll events are recorded.
	Store *store.Store

	FrameInterval    time.Duration
	CalibrationDelay time.Duration
	Gesture          gesture.Config

	// HistoryRetention prunes stored scroll events older than this at
	// startup. Zero keeps everything.
	HistoryRetention time.Duration
}

// App is the main application that orchestrates gaze tracking and scrolling.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	executor   action.Executor
	calibrator *gesture.Calibrator
	gestures   *gesture.Detector
	sessionID  string

	// settingsMu serializes read-modify-write updates of settings,
	// including persistence.
	settingsMu sync.Mutex

	mu         sync.RWMutex
	settings   gesture.Settings
	active     bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	snapshot   Snapshot
	jpeg       []byte
	lastAction gesture.Action
	lastFired  time.Time
	listeners  []func()
}

// New creates a new App. Settings are restored from the store when one is
// configured; calibration always starts empty.
func New(config Config) *App {
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}
	if config.Detector == nil {
		config.Detector = detector.NewMockDetector()
	}
	if config.Executor == nil {
		config.Executor = action.NewRecorder()
	}

	a := &App{
		config:     config,
		camera:     config.Camera,
		detector:   config.Detector,
		executor:   config.Executor,
		calibrator: gesture.NewCalibrator(config.CalibrationDelay),
		gestures:   gesture.NewDetector(config.Gesture),
		sessionID:  uuid.New().String(),
		settings:   gesture.DefaultSettings(),
	}

	if config.Store != nil {
		s, err := config.Store.Settings().Load()
		if err != nil {
			appLog.Warn().Err(err).Msg("failed to restore settings, using defaults")
		} else {
			a.settings = s
		}
		a.pruneHistory()
	}

	a.snapshot = a.buildSnapshot()
	return a
}

func (a *App) pruneHistory() {
	if a.config.HistoryRetention <= 0 {
		return
	}
	cutoff := time.Now().Add(-a.config.HistoryRetention)
	n, err := a.config.Store.Events().DeleteBefore(cutoff)
	if err != nil {
		appLog.Warn().Err(err).Msg("failed to prune scroll history")
		return
	}
	if n > 0 {
		appLog.Info().Int64("deleted", n).Time("before", cutoff).Msg("pruned scroll history")
	}
}

// OnChange registers fn to run after tracking, mode or settings change,
// whichever panel made the change. fn runs on the changing goroutine.
func (a *App) OnChange(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *App) notify() {
	a.mu.RLock()
	listeners := append([]func(){}, a.listeners...)
	a.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

// SessionID identifies this run in the scroll history.
func (a *App) SessionID() string {
	return a.sessionID
}

// SetActive starts or stops tracking. The frame loop keeps running either way.
func (a *App) SetActive(active bool) {
	a.mu.Lock()
	changed := a.active != active
	a.active = active
	a.mu.Unlock()

	if changed {
		a.trackingChanged(active)
	}
}

func (a *App) trackingChanged(active bool) {
	a.gestures.Reset()
	appLog.Info().Bool("active", active).Msg("tracking toggled")
	a.notify()
}

// IsActive returns whether tracking is on.
func (a *App) IsActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

// ToggleActive flips tracking and returns the new state.
func (a *App) ToggleActive() bool {
	a.mu.Lock()
	a.active = !a.active
	active := a.active
	a.mu.Unlock()

	a.trackingChanged(active)
	return active
}

// Settings returns the current settings.
func (a *App) Settings() gesture.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// ModifySettings applies fn to the current settings as one update, so
// concurrent panels never overwrite each other's changes. The result is
// validated, slider values are snapped to their steps, and the applied
// settings are returned.
func (a *App) ModifySettings(fn func(gesture.Settings) gesture.Settings) (gesture.Settings, error) {
	a.settingsMu.Lock()
	defer a.settingsMu.Unlock()

	previous := a.Settings()
	normalized, err := fn(previous).Normalize()
	if err != nil {
		return previous, err
	}

	a.mu.Lock()
	a.settings = normalized
	a.mu.Unlock()

	if previous.Mode != normalized.Mode {
		a.logModeChange(normalized.Mode)
	}
	a.persistSettings(normalized)
	a.notify()
	return normalized, nil
}

// SetSensitivity changes only the sensitivity.
func (a *App) SetSensitivity(v float64) (gesture.Settings, error) {
	return a.ModifySettings(func(s gesture.Settings) gesture.Settings {
		s.Sensitivity = v
		return s
	})
}

// SetCooldown changes only the cooldown delay.
func (a *App) SetCooldown(d time.Duration) (gesture.Settings, error) {
	return a.ModifySettings(func(s gesture.Settings) gesture.Settings {
		s.CooldownMs = int(d / time.Millisecond)
		return s
	})
}

// ToggleMode switches between eye tracking and head gestures.
func (a *App) ToggleMode() gesture.Mode {
	s, err := a.ModifySettings(func(s gesture.Settings) gesture.Settings {
		s.Mode = s.Mode.Toggle()
		return s
	})
	if err != nil {
		appLog.Error().Err(err).Msg("failed to toggle mode")
	}
	return s.Mode
}

func (a *App) logModeChange(m gesture.Mode) {
	if !m.DetectsGestures() {
		appLog.Warn().Str("mode", string(m)).Msg("head gesture detection is not implemented, only the nose position is tracked")
		return
	}
	appLog.Info().Str("mode", string(m)).Msg("mode changed")
}

func (a *App) persistSettings(s gesture.Settings) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().Save(s); err != nil {
		appLog.Error().Err(err).Msg("failed to save settings")
	}
}

// RequestCalibration arms calibration of b and returns the time the position
// will be read.
func (a *App) RequestCalibration(b gesture.Bound) time.Time {
	return a.calibrator.Request(b, time.Now())
}

// ResetCalibration clears both bounds.
func (a *App) ResetCalibration() {
	a.calibrator.Reset()
	a.gestures.Reset()
	appLog.Info().Msg("calibration cleared")
}

// Calibration returns the current bounds.
func (a *App) Calibration() gesture.Calibration {
	return a.calibrator.Calibration()
}

// CalibrationDelay returns the wait between a request and the position read.
func (a *App) CalibrationDelay() time.Duration {
	return a.calibrator.Delay()
}

// RecentEvents returns the latest recorded scroll events, newest first.
func (a *App) RecentEvents(limit int) ([]*store.ScrollEvent, error) {
	if a.config.Store == nil {
		return nil, nil
	}
	return a.config.Store.Events().ListRecent(limit)
}

// EventTotals returns how many scroll events are stored per action.
func (a *App) EventTotals() (map[gesture.Action]int, error) {
	if a.config.Store == nil {
		return nil, nil
	}
	return a.config.Store.Events().CountByAction()
}

// Start opens the camera and launches the frame loop.
func (a *App) Start() error {
	stop, done, err := a.open()
	if err != nil {
		return err
	}
	go a.run(stop, done, nil)

	appLog.Info().Dur("interval", a.config.FrameInterval).Int("camera_fps", a.camera.FPS()).Msg("frame loop started")
	return nil
}

// open prepares the camera and the stop channels.
func (a *App) open() (chan struct{}, chan struct{}, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil, nil, ErrAlreadyRunning
	}
	if a.camera == nil {
		return nil, nil, capture.ErrCameraNotOpen
	}
	if err := a.camera.Open(); err != nil {
		return nil, nil, err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	return a.stopCh, a.doneCh, nil
}

// Stop halts the frame loop and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stop, done := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stop == nil {
		return
	}

	close(stop)
	<-done

	if err := a.camera.Close(); err != nil {
		appLog.Error().Err(err).Msg("failed to close camera")
	}
	if err := a.detector.Close(); err != nil {
		appLog.Error().Err(err).Msg("failed to close detector")
	}

	appLog.Info().Msg("frame loop stopped")
}

// Running reports whether the frame loop is running.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}
