package gesture

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Control panel ranges.
const (
	MinSensitivity  = 0.01
	MaxSensitivity  = 0.10
	SensitivityStep = 0.01

	MinCooldownMs  = 500
	MaxCooldownMs  = 5000
	CooldownStepMs = 500

	DefaultSensitivity = 0.05
	DefaultCooldownMs  = 2000
)

// ErrOutOfRange is returned when a setting falls outside its control range.
var ErrOutOfRange = errors.New("value out of range")

// Settings are the live tuning values exposed by the control panel.
type Settings struct {
	Sensitivity float64 `json:"sensitivity"`
	CooldownMs  int     `json:"cooldown_ms"`
	Mode        Mode    `json:"mode"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		Sensitivity: DefaultSensitivity,
		CooldownMs:  DefaultCooldownMs,
		Mode:        ModeEyeTracking,
	}
}

// Cooldown returns the minimum time between two fired actions.
func (s Settings) Cooldown() time.Duration {
	return time.Duration(s.CooldownMs) * time.Millisecond
}

// Normalize validates s and snaps the slider values to their steps.
func (s Settings) Normalize() (Settings, error) {
	sens, err := SnapSensitivity(s.Sensitivity)
	if err != nil {
		return s, err
	}
	cooldown, err := SnapCooldown(s.CooldownMs)
	if err != nil {
		return s, err
	}
	mode, err := ParseMode(string(s.Mode))
	if err != nil {
		return s, err
	}
	return Settings{Sensitivity: sens, CooldownMs: cooldown, Mode: mode}, nil
}

// SnapSensitivity rounds v to the slider step and checks its range.
func SnapSensitivity(v float64) (float64, error) {
	if math.IsNaN(v) {
		return 0, fmt.Errorf("sensitivity: %w", ErrOutOfRange)
	}
	snapped := math.Round(v/SensitivityStep) * SensitivityStep
	snapped = math.Round(snapped*100) / 100
	if snapped < MinSensitivity || snapped > MaxSensitivity {
		return 0, fmt.Errorf("sensitivity %.3f: %w [%.2f, %.2f]", v, ErrOutOfRange, MinSensitivity, MaxSensitivity)
	}
	return snapped, nil
}

// SnapCooldown rounds ms to the slider step and checks its range.
func SnapCooldown(ms int) (int, error) {
	snapped := int(math.Round(float64(ms)/CooldownStepMs)) * CooldownStepMs
	if snapped < MinCooldownMs || snapped > MaxCooldownMs {
		return 0, fmt.Errorf("cooldown %dms: %w [%d, %d]", ms, ErrOutOfRange, MinCooldownMs, MaxCooldownMs)
	}
	return snapped, nil
}

// CooldownFromSeconds converts the delay slider value to milliseconds.
func CooldownFromSeconds(seconds float64) int {
	return int(math.Round(seconds * 1000))
}

// SensitivitySteps lists every selectable sensitivity value.
func SensitivitySteps() []float64 {
	var steps []float64
	for i := 1; i <= 10; i++ {
		steps = append(steps, float64(i)/100)
	}
	return steps
}

// CooldownSteps lists every selectable cooldown value in milliseconds.
func CooldownSteps() []int {
	var steps []int
	for ms := MinCooldownMs; ms <= MaxCooldownMs; ms += CooldownStepMs {
		steps = append(steps, ms)
	}
	return steps
}
