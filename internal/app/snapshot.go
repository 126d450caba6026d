package app

import (
	"time"

	"github.com/ayusman/gazescroll/internal/gesture"
)

// Snapshot is a read-only view of the last loop cycle, published to the
// control panels.
type Snapshot struct {
	Seq         uint64                   `json:"seq"`
	Active      bool                     `json:"active"`
	Mode        gesture.Mode             `json:"mode"`
	ModeLabel   string                   `json:"mode_label"`
	Settings    gesture.Settings         `json:"settings"`
	Calibration gesture.Calibration      `json:"calibration"`
	Calibrated  bool                     `json:"calibrated"`
	Pending     []gesture.PendingRequest `json:"pending"`
	FacePresent bool                     `json:"face_present"`
	HasPosition bool                     `json:"has_position"`
	Position    float64                  `json:"position"`
	Proximity   gesture.Proximity        `json:"proximity"`
	ShowGauge   bool                     `json:"show_gauge"`
	CoolingDown bool                     `json:"cooling_down"`
	LastAction  gesture.Action           `json:"last_action"`
	LastFiredAt *time.Time               `json:"last_fired_at,omitempty"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// Snapshot returns the latest published state merged with the live control
// values, so panel changes show up before the next frame.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	snap := a.snapshot
	snap.Active = a.active
	snap.Settings = a.settings
	a.mu.RUnlock()

	snap.Mode = snap.Settings.Mode
	snap.ModeLabel = snap.Mode.String()
	snap.Calibration = a.calibrator.Calibration()
	snap.Calibrated = snap.Calibration.IsCalibrated()
	snap.Pending = a.calibrator.Pending()
	return snap
}

// LatestJPEG returns the last overlay frame encoded as JPEG, or nil before
// the first frame.
func (a *App) LatestJPEG() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg
}

// buildSnapshot fills the fields that do not depend on a frame.
func (a *App) buildSnapshot() Snapshot {
	a.mu.RLock()
	snap := Snapshot{
		Seq:        a.snapshot.Seq,
		Active:     a.active,
		Settings:   a.settings,
		LastAction: a.lastAction,
	}
	if !a.lastFired.IsZero() {
		t := a.lastFired
		snap.LastFiredAt = &t
	}
	a.mu.RUnlock()

	snap.Mode = snap.Settings.Mode
	snap.ModeLabel = snap.Mode.String()
	snap.Calibration = a.calibrator.Calibration()
	snap.Calibrated = snap.Calibration.IsCalibrated()
	snap.Pending = a.calibrator.Pending()
	snap.UpdatedAt = time.Now()
	return snap
}

// publish stores snap and the encoded frame for the panels.
func (a *App) publish(snap Snapshot, jpeg []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap.Seq = a.snapshot.Seq + 1
	a.snapshot = snap
	if jpeg != nil {
		a.jpeg = jpeg
	}
}
