package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg and returns a *ValidationError listing every problem.
func Validate(cfg *Config) error {
	ve := &ValidationError{}

	if err := cfg.Control.Validate(); err != nil {
		ve.Add("control: %v", err)
	}

	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		ve.Add("camera: resolution must be positive, got %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.MotionThreshold <= 0 || cfg.Camera.MotionThreshold > 100 {
		ve.Add("camera.motion_threshold must be in (0, 100], got %v", cfg.Camera.MotionThreshold)
	}

	if c := cfg.Detector.MinConfidence; c < 0 || c > 1 {
		ve.Add("detector.min_detection_confidence must be in [0, 1], got %v", c)
	}
	if c := cfg.Detector.MinTrackingConf; c < 0 || c > 1 {
		ve.Add("detector.min_tracking_confidence must be in [0, 1], got %v", c)
	}

	p := cfg.Pipeline
	if p.IdleFPS <= 0 || p.ActiveFPS < p.IdleFPS {
		ve.Add("pipeline: need 0 < idle_fps <= active_fps, got %d and %d", p.IdleFPS, p.ActiveFPS)
	}
	if p.IdleTimeout <= 0 {
		ve.Add("pipeline.idle_timeout must be positive")
	}

	validateSinks(cfg.Sinks, ve)

	if cfg.Server.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Server.Addr); err != nil {
			ve.Add("server.addr %q: %v", cfg.Server.Addr, err)
		}
		if cfg.Server.InjectRate <= 0 || cfg.Server.InjectBurst <= 0 {
			ve.Add("server: inject_rate and inject_burst must be positive")
		}
	}

	if cfg.Store.Enabled && cfg.Store.Path == "" {
		ve.Add("store.path is required when the store is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSinks(s SinksConfig, ve *ValidationError) {
	if s.GPIO.Enabled {
		if s.GPIO.LEDPin == s.GPIO.MotorPin {
			ve.Add("sinks.gpio: led_pin and motor_pin must differ")
		}
		if s.GPIO.LEDFrequency <= 0 || s.GPIO.MotorFrequency <= 0 {
			ve.Add("sinks.gpio: frequencies must be positive")
		}
	}
	if s.Serial.Enabled && s.Serial.BaudRate <= 0 {
		ve.Add("sinks.serial.baud_rate must be positive")
	}
	if s.MQTT.Enabled {
		if s.MQTT.URL == "" {
			ve.Add("sinks.mqtt.url is required when mqtt is enabled")
		}
		if s.MQTT.QoS > 2 {
			ve.Add("sinks.mqtt.qos must be 0, 1 or 2")
		}
	}
	if s.Plugins.Enabled && s.Plugins.Dir == "" {
		ve.Add("sinks.plugins.dir is required when plugins are enabled")
	}
}
