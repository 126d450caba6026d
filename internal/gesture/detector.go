// Package gesture maps a tracked vertical face position to discrete scroll actions.
package gesture

import (
	"sync"
	"time"
)

// DefaultDeadZone is the buffer beyond a calibrated bound before an action fires.
const DefaultDeadZone = 0.03

// Action is a discrete action produced by the detector.
type Action string

const (
	// ActionNone means no action fired this cycle.
	ActionNone Action = ""
	// ActionScrollUp fires when the position is above the top bound.
	ActionScrollUp Action = "scroll_up"
	// ActionScrollDown fires when the position is below the bottom bound.
	ActionScrollDown Action = "scroll_down"
)

// Key returns the logical key pressed for the action.
func (a Action) Key() string {
	switch a {
	case ActionScrollUp:
		return "up"
	case ActionScrollDown:
		return "down"
	}
	return ""
}

// Proximity is the relative closeness of the position to each bound.
type Proximity struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// InRange reports whether both values lie in [0,1], i.e. the position is
// between the calibrated extremes.
func (p Proximity) InRange() bool {
	return p.Top >= 0 && p.Top <= 1 && p.Bottom >= 0 && p.Bottom <= 1
}

// ComputeProximity returns the proximity of position to each bound.
// The result is false when the calibration is incomplete or degenerate.
func ComputeProximity(position float64, cal Calibration) (Proximity, bool) {
	if !cal.IsCalibrated() {
		return Proximity{}, false
	}
	span := cal.Top - cal.Bottom
	if span == 0 {
		return Proximity{}, false
	}
	return Proximity{
		Top:    (cal.Top - position) / span,
		Bottom: (position - cal.Bottom) / span,
	}, true
}

// Result describes one evaluation of the detector.
type Result struct {
	Action      Action    `json:"action"`
	Position    float64   `json:"position"`
	Calibrated  bool      `json:"calibrated"`
	Proximity   Proximity `json:"proximity"`
	ShowGauge   bool      `json:"show_gauge"`
	CoolingDown bool      `json:"cooling_down"`
	DeadZone    float64   `json:"dead_zone"`
}

// Fired reports whether the evaluation produced an action.
func (r Result) Fired() bool {
	return r.Action != ActionNone
}

// Config holds configuration options for the detector.
type Config struct {
	// DeadZone is the fixed buffer used when SensitivityDeadZone is off.
	DeadZone float64

	// SensitivityDeadZone makes the buffer follow the sensitivity slider.
	SensitivityDeadZone bool
}

// DefaultConfig returns a Config with the fixed 0.03 dead zone.
func DefaultConfig() Config {
	return Config{DeadZone: DefaultDeadZone}
}

// Detector turns positions into scroll actions, gated by calibration, a dead
// zone and a cooldown measured on the monotonic clock. It is safe for
// concurrent use.
type Detector struct {
	config Config

	mu       sync.Mutex
	lastFire time.Time
	fired    bool
	warned   bool
}

// NewDetector creates a new Detector.
func NewDetector(config Config) *Detector {
	if config.DeadZone <= 0 {
		config.DeadZone = DefaultDeadZone
	}
	return &Detector{config: config}
}

// DeadZone returns the buffer applied for the given settings.
func (d *Detector) DeadZone(s Settings) float64 {
	if d.config.SensitivityDeadZone && s.Sensitivity > 0 {
		return s.Sensitivity
	}
	return d.config.DeadZone
}

// Evaluate maps position to an action.
//
// Algorithm:
// 1. Without both bounds, report not calibrated and do nothing
// 2. Compute proximity to each bound for the gauge
// 3. Above top - deadZone fires scroll up, below bottom + deadZone fires scroll down
// 4. A fire inside the cooldown window is suppressed
func (d *Detector) Evaluate(position float64, cal Calibration, s Settings, now time.Time) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := Result{
		Position: position,
		DeadZone: d.DeadZone(s),
	}

	if !cal.IsCalibrated() {
		if !d.warned {
			gestureLog.Warn().Msg("please calibrate the eye tracking first")
			d.warned = true
		}
		return result
	}
	d.warned = false
	result.Calibrated = true

	if p, ok := ComputeProximity(position, cal); ok {
		result.Proximity = p
		result.ShowGauge = p.InRange()
	}

	result.CoolingDown = d.fired && now.Sub(d.lastFire) < s.Cooldown()

	var action Action
	switch {
	case position < cal.Top-result.DeadZone:
		action = ActionScrollUp
	case position > cal.Bottom+result.DeadZone:
		action = ActionScrollDown
	default:
		return result
	}

	if result.CoolingDown {
		return result
	}

	d.lastFire = now
	d.fired = true
	result.Action = action

	gestureLog.Info().Str("action", string(action)).Float64("position", position).Msg("scroll fired")
	return result
}

// Reset forgets the last fire time.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired = false
	d.lastFire = time.Time{}
	d.warned = false
}
