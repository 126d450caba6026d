// Package tray provides the system tray control panel for gazescroll.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/gazescroll/internal/gesture"
)

// Controller is the part of the application the tray drives.
type Controller interface {
	IsActive() bool
	ToggleActive() bool
	Settings() gesture.Settings
	ToggleMode() gesture.Mode
	SetSensitivity(v float64) (gesture.Settings, error)
	SetCooldown(d time.Duration) (gesture.Settings, error)
	RequestCalibration(b gesture.Bound) time.Time
}

// Tray represents the system tray application.
type Tray struct {
	ctrl        Controller
	onOpenPanel func()
	onQuit      func()
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuModeLabel   *systray.MenuItem
	sensitivityOpts map[float64]*systray.MenuItem
	cooldownOpts    map[int]*systray.MenuItem
}

// New creates a new Tray driving ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{
		ctrl:            ctrl,
		sensitivityOpts: make(map[float64]*systray.MenuItem),
		cooldownOpts:    make(map[int]*systray.MenuItem),
	}
}

// OnOpenPanel sets the callback for the "Open Control Panel" item.
func (t *Tray) OnOpenPanel(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenPanel = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// toggleTitle returns the Start/Stop item title for the tracking state.
func toggleTitle(active bool) string {
	if active {
		return "Stop Tracking"
	}
	return "Start Tracking"
}

// modeTitle returns the read-only mode label.
func modeTitle(m gesture.Mode) string {
	return "Current Mode: " + m.String()
}

func sensitivityTitle(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func cooldownTitle(ms int) string {
	return fmt.Sprintf("%.1f s", float64(ms)/1000)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("GazeScroll")
	systray.SetTooltip("Eye Tracking Scroll")

	settings := t.ctrl.Settings()

	menuToggle := systray.AddMenuItem(toggleTitle(t.ctrl.IsActive()), "Start or stop tracking")
	systray.AddSeparator()

	menuMode := systray.AddMenuItem("Toggle Mode", "Switch between eye tracking and head gestures")
	menuModeLabel := systray.AddMenuItem(modeTitle(settings.Mode), "Current tracking mode")
	menuModeLabel.Disable()
	systray.AddSeparator()

	t.mu.Lock()
	t.menuToggle, t.menuModeLabel = menuToggle, menuModeLabel
	t.mu.Unlock()

	menuTop := systray.AddMenuItem("Calibrate Top", "Look at the top of the screen after clicking")
	menuBottom := systray.AddMenuItem("Calibrate Bottom", "Look at the bottom of the screen after clicking")
	systray.AddSeparator()

	menuSensitivity := systray.AddMenuItem("Sensitivity", "Gaze sensitivity")
	for _, v := range gesture.SensitivitySteps() {
		item := menuSensitivity.AddSubMenuItem(sensitivityTitle(v), "")
		t.mu.Lock()
		t.sensitivityOpts[v] = item
		t.mu.Unlock()
		go t.watchSensitivity(item, v)
	}

	menuDelay := systray.AddMenuItem("Scroll Delay", "Minimum time between scrolls")
	for _, ms := range gesture.CooldownSteps() {
		item := menuDelay.AddSubMenuItem(cooldownTitle(ms), "")
		t.mu.Lock()
		t.cooldownOpts[ms] = item
		t.mu.Unlock()
		go t.watchCooldown(item, ms)
	}
	t.markSettings(settings)
	systray.AddSeparator()

	menuPanel := systray.AddMenuItem("Open Control Panel...", "Open the control panel in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit GazeScroll")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuMode.ClickedCh:
				t.handleMode()
			case <-menuTop.ClickedCh:
				t.ctrl.RequestCalibration(gesture.BoundTop)
			case <-menuBottom.ClickedCh:
				t.ctrl.RequestCalibration(gesture.BoundBottom)
			case <-menuPanel.ClickedCh:
				t.handleOpenPanel()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	trayLog.Debug().Msg("tray exited")
}

func (t *Tray) watchSensitivity(item *systray.MenuItem, v float64) {
	for range item.ClickedCh {
		s, err := t.ctrl.SetSensitivity(v)
		if err != nil {
			trayLog.Warn().Err(err).Msg("failed to set sensitivity")
			continue
		}
		t.markSettings(s)
	}
}

func (t *Tray) watchCooldown(item *systray.MenuItem, ms int) {
	for range item.ClickedCh {
		s, err := t.ctrl.SetCooldown(time.Duration(ms) * time.Millisecond)
		if err != nil {
			trayLog.Warn().Err(err).Msg("failed to set delay")
			continue
		}
		t.markSettings(s)
	}
}

// markSettings checks the submenu entries matching s.
func (t *Tray) markSettings(s gesture.Settings) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for v, item := range t.sensitivityOpts {
		if sensitivityTitle(v) == sensitivityTitle(s.Sensitivity) {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	for ms, item := range t.cooldownOpts {
		if ms == s.CooldownMs {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// handleToggle handles the Start/Stop menu item click.
func (t *Tray) handleToggle() {
	active := t.ctrl.ToggleActive()
	t.Refresh(active, t.ctrl.Settings())
}

// handleMode handles the mode toggle click.
func (t *Tray) handleMode() {
	t.ctrl.ToggleMode()
	t.Refresh(t.ctrl.IsActive(), t.ctrl.Settings())
}

// Refresh updates the menu to reflect the given state. Subscribe it to the
// application's change notifications so edits from other panels show up.
func (t *Tray) Refresh(active bool, s gesture.Settings) {
	t.mu.RLock()
	toggle, label := t.menuToggle, t.menuModeLabel
	t.mu.RUnlock()

	if toggle == nil {
		return
	}
	toggle.SetTitle(toggleTitle(active))
	label.SetTitle(modeTitle(s.Mode))
	t.markSettings(s)
}

// handleOpenPanel handles the control panel menu item click.
func (t *Tray) handleOpenPanel() {
	t.mu.RLock()
	callback := t.onOpenPanel
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}
