package control

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrBadStatusLine is returned by ParseStatusLine for malformed input.
var ErrBadStatusLine = errors.New("bad status line")

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	Mode    Device        `json:"mode"`
	LED     DeviceState   `json:"led"`
	Motor   DeviceState   `json:"motor"`
	Gesture gesture.Label `json:"gesture,omitempty"`
	Hold    *Hold         `json:"hold,omitempty"`
}

// Device returns the state of one device.
func (s Snapshot) Device(d Device) DeviceState {
	if d == Motor {
		return s.Motor
	}
	return s.LED
}

// Active returns the state of the device in the current mode.
func (s Snapshot) Active() DeviceState {
	return s.Device(s.Mode)
}

// StatusLine renders mode,led_power,led_level,motor_power,motor_level,
// for example "LED,ON,3,OFF,0".
func (s Snapshot) StatusLine() string {
	return fmt.Sprintf("%s,%s,%d,%s,%d",
		s.Mode, onOff(s.LED.Powered), s.LED.Level, onOff(s.Motor.Powered), s.Motor.Level)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

// ParseStatusLine parses the output of StatusLine. Only the device fields are
// filled in.
func ParseStatusLine(line string) (Snapshot, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 5 {
		return Snapshot{}, fmt.Errorf("%w: want 5 fields, got %d", ErrBadStatusLine, len(parts))
	}

	mode, err := ParseDevice(parts[0])
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrBadStatusLine, err)
	}

	led, err := parseDeviceState(parts[1], parts[2])
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: led: %v", ErrBadStatusLine, err)
	}
	motor, err := parseDeviceState(parts[3], parts[4])
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: motor: %v", ErrBadStatusLine, err)
	}

	return Snapshot{Mode: mode, LED: led, Motor: motor}, nil
}

func parseDeviceState(power, level string) (DeviceState, error) {
	var st DeviceState
	switch power {
	case "ON":
		st.Powered = true
	case "OFF":
	default:
		return st, fmt.Errorf("power %q", power)
	}

	n, err := strconv.Atoi(level)
	if err != nil || n < 0 {
		return st, fmt.Errorf("level %q", level)
	}
	st.Level = n
	return st, nil
}
