// Package hotkey registers global keyboard shortcuts for calibration and
// tracking so they can be used while another window has focus.
package hotkey

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/gazescroll/internal/gesture"
)

var hotkeyLog zerolog.Logger = log.With().Str("module", "hotkey").Logger()

// ErrEmptyCombo is returned when parsing a combo without a key.
var ErrEmptyCombo = errors.New("empty key combo")

// Default combos.
const (
	ComboCalibrateTop    = "ctrl+shift+t"
	ComboCalibrateBottom = "ctrl+shift+b"
	ComboToggleTracking  = "ctrl+shift+s"
)

// Binding maps a key combo to an action.
type Binding struct {
	Name   string
	Combo  string
	Action func()
}

// Controller is the part of the application driven by hotkeys.
type Controller interface {
	RequestCalibration(b gesture.Bound) time.Time
	ToggleActive() bool
}

// DefaultBindings returns the calibration and tracking shortcuts for ctrl.
func DefaultBindings(ctrl Controller) []Binding {
	return []Binding{
		{
			Name:   "calibrate top",
			Combo:  ComboCalibrateTop,
			Action: func() { ctrl.RequestCalibration(gesture.BoundTop) },
		},
		{
			Name:   "calibrate bottom",
			Combo:  ComboCalibrateBottom,
			Action: func() { ctrl.RequestCalibration(gesture.BoundBottom) },
		},
		{
			Name:   "toggle tracking",
			Combo:  ComboToggleTracking,
			Action: func() { ctrl.ToggleActive() },
		},
	}
}

// ParseCombo splits a combo such as "ctrl+shift+t" into the key list gohook
// expects: the main key first, then the modifiers.
func ParseCombo(combo string) ([]string, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(combo)), "+")

	var key string
	var modifiers []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch p {
		case "":
			continue
		case "ctrl", "shift", "alt", "cmd", "command":
			if p == "command" {
				p = "cmd"
			}
			modifiers = append(modifiers, p)
		default:
			if key != "" {
				return nil, fmt.Errorf("combo %q has more than one key", combo)
			}
			key = p
		}
	}
	if key == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyCombo, combo)
	}

	return append([]string{key}, modifiers...), nil
}

// Manager owns the global keyboard hook.
type Manager struct {
	bindings []Binding
	mu       sync.Mutex
	running  bool
}

// NewManager creates a Manager for bindings.
func NewManager(bindings []Binding) *Manager {
	return &Manager{bindings: bindings}
}

// Start registers every binding and starts processing key events.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	for _, b := range m.bindings {
		keys, err := ParseCombo(b.Combo)
		if err != nil {
			return fmt.Errorf("hotkey %s: %w", b.Name, err)
		}
		action := b.Action
		name := b.Name
		hook.Register(hook.KeyDown, keys, func(e hook.Event) {
			hotkeyLog.Debug().Str("hotkey", name).Msg("hotkey pressed")
			// Keep the hook loop responsive.
			go action()
		})
		hotkeyLog.Info().Str("hotkey", name).Str("combo", b.Combo).Msg("hotkey registered")
	}

	events := hook.Start()
	m.running = true

	go func() {
		<-hook.Process(events)
		hotkeyLog.Debug().Msg("hook event loop ended")
	}()

	return nil
}

// Stop removes the keyboard hook.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	hook.End()
	m.running = false
	hotkeyLog.Debug().Msg("hotkeys stopped")
}

// Bindings returns the configured bindings.
func (m *Manager) Bindings() []Binding {
	return m.bindings
}
