package control

import (
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// DeviceState is the power and level of one device. Level 0 means the
// device has never been powered on.
type DeviceState struct {
	Powered bool `json:"powered"`
	Level   int  `json:"level"`
}

// Hold is an in-progress THUMBS_UP or THUMBS_DOWN hold.
type Hold struct {
	Label gesture.Label `json:"label"`
	Since time.Time     `json:"since"`
}

// Session is the controller state for one run. It is safe for concurrent
// use; Step calls are serialized.
type Session struct {
	mu     sync.Mutex
	config Config

	mode  Device
	led   DeviceState
	motor DeviceState

	// hold is nil while idle.
	hold *Hold
	last gesture.Label
}

// NewSession creates a session in LED mode with both devices off and
// uninitialized.
func NewSession(config Config) *Session {
	return &Session{
		config: config,
		mode:   LED,
		last:   gesture.None,
	}
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.config
}

// Step applies one classified gesture observed at now and returns the
// commands it produced, if any.
func (s *Session) Step(label gesture.Label, now time.Time) []Command {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = label
	if !label.IsHold() {
		s.hold = nil
	}

	switch label {
	case gesture.One:
		return s.switchMode(LED, label, now)
	case gesture.Two:
		return s.switchMode(Motor, label, now)
	case gesture.Open:
		return s.powerOn(label, now)
	case gesture.Closed:
		return s.powerOff(label, now)
	case gesture.ThumbsUp, gesture.ThumbsDown:
		return s.advanceHold(label, now)
	default:
		// UNKNOWN and NONE leave devices untouched. A lost hand never
		// switches anything off.
		return nil
	}
}

func (s *Session) state(d Device) *DeviceState {
	if d == Motor {
		return &s.motor
	}
	return &s.led
}

func (s *Session) switchMode(d Device, label gesture.Label, now time.Time) []Command {
	if s.mode == d {
		return nil
	}
	s.mode = d
	return []Command{{Device: d, Kind: ModeSwitch, Gesture: label, At: now}}
}

func (s *Session) powerOn(label gesture.Label, now time.Time) []Command {
	dev := s.state(s.mode)
	if dev.Powered {
		return nil
	}
	dev.Powered = true
	if dev.Level == 0 {
		dev.Level = s.config.DefaultLevel
	}
	return []Command{{
		Device:  s.mode,
		Kind:    PowerOn,
		Level:   dev.Level,
		Value:   s.config.rangeFor(s.mode).Value(dev.Level, s.config.MaxLevel),
		Gesture: label,
		At:      now,
	}}
}

func (s *Session) powerOff(label gesture.Label, now time.Time) []Command {
	dev := s.state(s.mode)
	if !dev.Powered {
		return nil
	}
	dev.Powered = false
	return []Command{{
		Device:  s.mode,
		Kind:    PowerOff,
		Level:   dev.Level,
		Value:   s.config.rangeFor(s.mode).Off(),
		Gesture: label,
		At:      now,
	}}
}

// advanceHold starts a hold on the first observation and adjusts the level
// once every HoldDuration while the same label keeps arriving.
func (s *Session) advanceHold(label gesture.Label, now time.Time) []Command {
	if s.hold == nil || s.hold.Label != label {
		s.hold = &Hold{Label: label, Since: now}
		return nil
	}
	if now.Sub(s.hold.Since) < s.config.HoldDuration {
		return nil
	}
	s.hold.Since = now

	dev := s.state(s.mode)
	if !dev.Powered {
		return nil
	}

	delta := 1
	if label == gesture.ThumbsDown {
		delta = -1
	}
	level := clamp(dev.Level+delta, MinLevel, s.config.MaxLevel)
	if level == dev.Level {
		return nil
	}
	dev.Level = level

	return []Command{{
		Device:  s.mode,
		Kind:    LevelChanged,
		Level:   level,
		Delta:   delta,
		Value:   s.config.rangeFor(s.mode).Value(level, s.config.MaxLevel),
		Gesture: label,
		At:      now,
	}}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Mode:    s.mode,
		LED:     s.led,
		Motor:   s.motor,
		Gesture: s.last,
	}
	if s.hold != nil {
		h := *s.hold
		snap.Hold = &h
	}
	return snap
}

// CancelHold discards any in-progress hold. The next THUMBS_UP or
// THUMBS_DOWN starts a fresh hold window.
func (s *Session) CancelHold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = nil
}

// HoldProgress reports the running hold and how long until its next level
// adjustment. ok is false while no hold is in progress.
func (s *Session) HoldProgress(now time.Time) (hold Hold, remaining time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hold == nil {
		return Hold{}, 0, false
	}
	remaining = s.config.HoldDuration - now.Sub(s.hold.Since)
	if remaining < 0 {
		remaining = 0
	}
	return *s.hold, remaining, true
}

// Output returns the value currently driven on a device: the mapped level
// while powered, the off value otherwise.
func (s *Session) Output(d Device) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev := s.state(d)
	r := s.config.rangeFor(d)
	if !dev.Powered {
		return r.Off()
	}
	return r.Value(dev.Level, s.config.MaxLevel)
}
