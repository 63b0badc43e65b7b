// Package tray provides the system tray menu for mudra.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/gesture"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onDashboard func()
	onQuit      func()
	enabled     bool
	maxLevel    int
	snap        control.Snapshot
	lastGesture gesture.Label
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuMode        *systray.MenuItem
	menuLED         *systray.MenuItem
	menuMotor       *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray with processing enabled. maxLevel is used in the
// device lines.
func New(maxLevel int) *Tray {
	return &Tray{
		enabled:     true,
		maxLevel:    maxLevel,
		snap:        control.Snapshot{Mode: control.LED},
		lastGesture: gesture.None,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnDashboard sets the callback for the "Open Dashboard" item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume gesture control")
	systray.AddSeparator()

	t.menuMode = systray.AddMenuItem(ModeTitle(t.snap), "Active device")
	t.menuMode.Disable()
	t.menuLED = systray.AddMenuItem(DeviceTitle(t.snap, control.LED, t.maxLevel), "LED state")
	t.menuLED.Disable()
	t.menuMotor = systray.AddMenuItem(DeviceTitle(t.snap, control.Motor, t.maxLevel), "Motor state")
	t.menuMotor.Disable()
	t.menuLastGesture = systray.AddMenuItem(GestureTitle(t.lastGesture), "Last detected gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.menuToggle.SetTitle(toggleTitle(enabled))
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// HandleEvent applies an application event. Every cycle refreshes the last
// gesture line; the device lines only change when the cycle emitted
// commands.
func (t *Tray) HandleEvent(ev app.Event) {
	switch ev.Type {
	case app.EventCycle:
		t.SetLastGesture(ev.Label)
		if len(ev.Commands) > 0 {
			t.Update(ev.Snapshot)
		}
	case app.EventEnabled:
		if ev.Enabled != nil {
			t.SetEnabled(*ev.Enabled)
		}
	}
}

// Update refreshes the mode and device lines from snap. It is safe to call
// before the menu is ready.
func (t *Tray) Update(snap control.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap = snap
	if t.menuMode == nil {
		return
	}
	t.menuMode.SetTitle(ModeTitle(snap))
	t.menuLED.SetTitle(DeviceTitle(snap, control.LED, t.maxLevel))
	t.menuMotor.SetTitle(DeviceTitle(snap, control.Motor, t.maxLevel))
}

// SetLastGesture updates the last gesture line.
func (t *Tray) SetLastGesture(label gesture.Label) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastGesture = label
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(GestureTitle(label))
	}
}

// Snapshot returns the state shown on the device lines.
func (t *Tray) Snapshot() control.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// LastGesture returns the gesture shown on the last gesture line.
func (t *Tray) LastGesture() gesture.Label {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastGesture
}

// SetEnabled mirrors an enabled change made elsewhere, e.g. from the API.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

// ModeTitle formats the mode line, e.g. "Mode: LED".
func ModeTitle(snap control.Snapshot) string {
	return "Mode: " + string(snap.Mode)
}

// DeviceTitle formats one device line, e.g. "LED: ON 3/5". The active
// device is marked with an arrow.
func DeviceTitle(snap control.Snapshot, d control.Device, maxLevel int) string {
	st := snap.Device(d)
	power := "OFF"
	if st.Powered {
		power = "ON"
	}
	marker := "  "
	if snap.Mode == d {
		marker = "▸ "
	}
	return fmt.Sprintf("%s%s: %s %d/%d", marker, deviceName(d), power, st.Level, maxLevel)
}

// GestureTitle formats the last gesture line.
func GestureTitle(label gesture.Label) string {
	if label == "" || label == gesture.None {
		return "Last: none"
	}
	return "Last: " + label.String()
}

func deviceName(d control.Device) string {
	if d == control.Motor {
		return "Motor"
	}
	return "LED"
}
