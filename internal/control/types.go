// Package control turns a stream of classified gestures into device
// commands for the LED and the continuous-rotation motor.
package control

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Device identifies one of the two controlled outputs.
type Device string

const (
	LED   Device = "LED"
	Motor Device = "MOTOR"
)

// Devices returns both devices in display order.
func Devices() []Device {
	return []Device{LED, Motor}
}

// ParseDevice converts a device name (case-sensitive) into a Device.
func ParseDevice(s string) (Device, error) {
	switch Device(s) {
	case LED, Motor:
		return Device(s), nil
	}
	return "", fmt.Errorf("unknown device %q", s)
}

// CommandKind is the kind of change a command describes.
type CommandKind string

const (
	ModeSwitch   CommandKind = "MODE_SWITCH"
	PowerOn      CommandKind = "POWER_ON"
	PowerOff     CommandKind = "POWER_OFF"
	LevelChanged CommandKind = "LEVEL_CHANGED"
)

// Command is emitted by Step for every device-visible state change.
type Command struct {
	Device Device      `json:"device"`
	Kind   CommandKind `json:"kind"`
	// Level is the device level after the change, 0 for ModeSwitch.
	Level int `json:"level"`
	// Delta is +1 or -1 for LevelChanged.
	Delta int `json:"delta,omitempty"`
	// Value is the output value to drive: LED duty percent, or servo duty
	// percent for the motor. Zero for ModeSwitch.
	Value   float64       `json:"value"`
	Gesture gesture.Label `json:"gesture"`
	At      time.Time     `json:"at"`
}

func (c Command) String() string {
	switch c.Kind {
	case ModeSwitch:
		return fmt.Sprintf("%s %s", c.Kind, c.Device)
	case LevelChanged:
		return fmt.Sprintf("%s %s level=%d (%+d) value=%.2f", c.Device, c.Kind, c.Level, c.Delta, c.Value)
	default:
		return fmt.Sprintf("%s %s level=%d value=%.2f", c.Device, c.Kind, c.Level, c.Value)
	}
}

// OutputRange maps levels linearly onto [Low, High]. Low is also the value
// driven while the device is off.
type OutputRange struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Value returns the output for a level out of maxLevel.
func (r OutputRange) Value(level, maxLevel int) float64 {
	if maxLevel <= 0 {
		return r.Low
	}
	return r.Low + float64(level)/float64(maxLevel)*(r.High-r.Low)
}

// Off returns the value that stops the device.
func (r OutputRange) Off() float64 {
	return r.Low
}

// ActuatorRange describes a continuous-rotation servo: a neutral duty at
// which it stops and a forward span above it. Reverse rotation is not used.
type ActuatorRange struct {
	Neutral        float64 `yaml:"neutral" json:"neutral"`
	MaxForwardSpan float64 `yaml:"max_forward_span" json:"max_forward_span"`
}

// Range converts the actuator description into an OutputRange.
func (a ActuatorRange) Range() OutputRange {
	return OutputRange{Low: a.Neutral, High: a.Neutral + a.MaxForwardSpan}
}

// Config holds the state machine parameters.
type Config struct {
	// HoldDuration is how long THUMBS_UP/THUMBS_DOWN must be held per step.
	HoldDuration time.Duration `yaml:"hold_duration"`
	// DefaultLevel is applied the first time a device is powered on.
	DefaultLevel int `yaml:"default_level"`
	// MaxLevel is the highest level. The lowest powered level is always 1.
	MaxLevel int `yaml:"max_level"`

	LED   OutputRange   `yaml:"led"`
	Motor ActuatorRange `yaml:"motor"`
}

// MinLevel is the lowest level of a powered device.
const MinLevel = 1

// DefaultConfig returns the standard two-second hold, five levels, LED
// brightness 0-100% and a servo stopping at 7.5% duty.
func DefaultConfig() Config {
	return Config{
		HoldDuration: 2 * time.Second,
		DefaultLevel: 3,
		MaxLevel:     5,
		LED:          OutputRange{Low: 0, High: 100},
		Motor:        ActuatorRange{Neutral: 7.5, MaxForwardSpan: 4.5},
	}
}

// ErrInvalidConfig is wrapped by Validate errors.
var ErrInvalidConfig = errors.New("invalid control config")

// Validate checks that levels and ranges are usable.
func (c Config) Validate() error {
	if c.HoldDuration <= 0 {
		return fmt.Errorf("%w: hold_duration must be positive", ErrInvalidConfig)
	}
	if c.MaxLevel < MinLevel {
		return fmt.Errorf("%w: max_level must be at least %d", ErrInvalidConfig, MinLevel)
	}
	if c.DefaultLevel < MinLevel || c.DefaultLevel > c.MaxLevel {
		return fmt.Errorf("%w: default_level %d outside [%d, %d]", ErrInvalidConfig, c.DefaultLevel, MinLevel, c.MaxLevel)
	}
	if c.LED.High <= c.LED.Low {
		return fmt.Errorf("%w: led high must exceed low", ErrInvalidConfig)
	}
	if c.Motor.MaxForwardSpan <= 0 {
		return fmt.Errorf("%w: motor max_forward_span must be positive", ErrInvalidConfig)
	}
	return nil
}

// rangeFor returns the output range of a device.
func (c Config) rangeFor(d Device) OutputRange {
	if d == Motor {
		return c.Motor.Range()
	}
	return c.LED
}
