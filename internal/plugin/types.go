// Package plugin runs external device driver plugins. A plugin is an
// executable that reads one JSON Request on stdin and writes one JSON
// Response on stdout.
package plugin

import "encoding/json"

// Plugin actions.
const (
	// ActionApply asks the plugin to drive a device command.
	ActionApply = "apply"
	// ActionRelease asks the plugin to park its devices on shutdown.
	ActionRelease = "release"
)

// Manifest describes a plugin's metadata and the devices it drives.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Devices lists the device names the plugin accepts ("LED", "MOTOR").
	// An empty list means all devices.
	Devices []string        `json:"devices"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Handles reports whether the plugin accepts commands for device.
func (m Manifest) Handles(device string) bool {
	if len(m.Devices) == 0 {
		return true
	}
	for _, d := range m.Devices {
		if d == device {
			return true
		}
	}
	return false
}

// Request is sent to a plugin on stdin.
type Request struct {
	Action  string  `json:"action"`
	Device  string  `json:"device,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Level   int     `json:"level"`
	Delta   int     `json:"delta,omitempty"`
	Value   float64 `json:"value"`
	Gesture string  `json:"gesture,omitempty"`
	// Status is the controller status line after the command.
	Status string          `json:"status,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
