// Package config loads the mudra configuration from YAML and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/device"
)

// Config is the root configuration.
type Config struct {
	Camera   capture.Config     `yaml:"camera"`
	Detector detector.Config    `yaml:"detector"`
	Pipeline app.PipelineConfig `yaml:"pipeline"`
	Control  control.Config     `yaml:"control"`
	Sinks    SinksConfig        `yaml:"sinks"`
	Server   ServerConfig       `yaml:"server"`
	Store    StoreConfig        `yaml:"store"`
	Tray     TrayConfig         `yaml:"tray"`
	Log      LogConfig          `yaml:"log"`
}

// SinksConfig selects where device commands go. The log sink is always on.
type SinksConfig struct {
	GPIO    device.GPIOConfig    `yaml:"gpio"`
	Serial  device.SerialConfig  `yaml:"serial"`
	MQTT    device.MQTTConfig    `yaml:"mqtt"`
	Plugins PluginsConfig        `yaml:"plugins"`
	Breaker device.BreakerConfig `yaml:"breaker"`
}

// PluginsConfig configures external driver plugins.
type PluginsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ServerConfig configures the HTTP dashboard and API.
type ServerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`

	// InjectRate limits POST /api/gestures, in requests per second.
	InjectRate  float64 `yaml:"inject_rate"`
	InjectBurst int     `yaml:"inject_burst"`

	// Advertise publishes the dashboard over mDNS as _mudra._tcp.
	Advertise bool `yaml:"advertise"`
}

// StoreConfig configures the session journal.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// TrayConfig configures the system tray menu.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures the standard logger.
type LogConfig struct {
	File   string `yaml:"file"`
	Prefix string `yaml:"prefix"`
}

// DataDir returns ~/.mudra, or .mudra when the home directory is unknown.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mudra"
	}
	return filepath.Join(home, ".mudra")
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	dataDir := DataDir()
	return &Config{
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Pipeline: app.DefaultPipelineConfig(),
		Control:  control.DefaultConfig(),
		Sinks: SinksConfig{
			GPIO:   device.DefaultGPIOConfig(),
			Serial: device.DefaultSerialConfig(),
			MQTT:   device.DefaultMQTTConfig(),
			Plugins: PluginsConfig{
				Dir:       filepath.Join(dataDir, "plugins"),
				TimeoutMs: 2000,
			},
			Breaker: device.BreakerConfig{MaxFailures: 3, Timeout: 10 * time.Second},
		},
		Server: ServerConfig{
			Enabled:     true,
			Addr:        ":8080",
			InjectRate:  5,
			InjectBurst: 5,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    filepath.Join(dataDir, "mudra.db"),
		},
		Tray: TrayConfig{Enabled: true},
		Log:  LogConfig{Prefix: "mudra: "},
	}
}

// Load reads a YAML config file over the defaults and applies env var
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps MUDRA_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MUDRA_CAMERA_DEVICE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Camera.DeviceID = n
		}
	}
	if v := os.Getenv("MUDRA_HOLD_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Control.HoldDuration = d
		}
	}
	if v := os.Getenv("MUDRA_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("MUDRA_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("MUDRA_GPIO_ENABLED"); v != "" {
		cfg.Sinks.GPIO.Enabled = v == "true"
	}
	if v := os.Getenv("MUDRA_SERIAL_PORT"); v != "" {
		cfg.Sinks.Serial.Enabled = true
		cfg.Sinks.Serial.Port = v
	}
	if v := os.Getenv("MUDRA_MQTT_URL"); v != "" {
		cfg.Sinks.MQTT.Enabled = true
		cfg.Sinks.MQTT.URL = v
	}
	if v := os.Getenv("MUDRA_MQTT_USERNAME"); v != "" {
		cfg.Sinks.MQTT.Username = v
	}
	if v := os.Getenv("MUDRA_MQTT_PASSWORD"); v != "" {
		cfg.Sinks.MQTT.Password = v
	}
	if v := os.Getenv("MUDRA_PLUGIN_DIR"); v != "" {
		cfg.Sinks.Plugins.Enabled = true
		cfg.Sinks.Plugins.Dir = v
	}
	if v := os.Getenv("MUDRA_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}
