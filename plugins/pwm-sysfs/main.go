// Package main provides a PWM driver plugin for Linux boards without a
// periph.io driver. It writes the command's duty cycle to the sysfs PWM
// interface (/sys/class/pwm/pwmchipN/pwmM).
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayusman/mudra/internal/plugin"
)

// Config is read from the request, defaulting to the manifest's config.
type Config struct {
	Root      string           `json:"root"`
	Chip      int              `json:"chip"`
	Channels  map[string]int   `json:"channels"`
	PeriodsNs map[string]int64 `json:"periods_ns"`
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err), nil)
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeResponse(err, nil)
		return
	}

	switch req.Action {
	case plugin.ActionApply:
		duty, err := apply(cfg, req)
		writeResponse(err, map[string]int64{"duty_ns": duty})
	case plugin.ActionRelease:
		writeResponse(release(cfg), nil)
	default:
		writeResponse(fmt.Errorf("unknown action: %s", req.Action), nil)
	}
}

func parseConfig(raw json.RawMessage) (Config, error) {
	cfg := Config{Root: "/sys/class/pwm"}
	if len(raw) == 0 {
		return cfg, errors.New("missing config")
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// dutyNanos converts a duty percentage into nanoseconds of the period.
func dutyNanos(pct float64, periodNs int64) int64 {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return periodNs
	}
	return int64(pct / 100 * float64(periodNs))
}

func channelDir(cfg Config, channel int) string {
	return filepath.Join(cfg.Root, fmt.Sprintf("pwmchip%d", cfg.Chip), fmt.Sprintf("pwm%d", channel))
}

func apply(cfg Config, req plugin.Request) (int64, error) {
	if req.Kind == "MODE_SWITCH" {
		return 0, nil
	}

	channel, ok := cfg.Channels[req.Device]
	if !ok {
		return 0, fmt.Errorf("no channel configured for %s", req.Device)
	}
	period := cfg.PeriodsNs[req.Device]
	if period <= 0 {
		return 0, fmt.Errorf("no period configured for %s", req.Device)
	}

	dir := channelDir(cfg, channel)
	if err := export(cfg, channel, dir); err != nil {
		return 0, err
	}

	duty := dutyNanos(req.Value, period)
	// The kernel rejects a duty cycle larger than the current period, so
	// clear it before changing the period.
	steps := []struct {
		file, value string
	}{
		{"duty_cycle", "0"},
		{"period", strconv.FormatInt(period, 10)},
		{"duty_cycle", strconv.FormatInt(duty, 10)},
		{"enable", "1"},
	}
	for _, s := range steps {
		if err := os.WriteFile(filepath.Join(dir, s.file), []byte(s.value), 0644); err != nil {
			return 0, fmt.Errorf("write %s: %w", s.file, err)
		}
	}
	return duty, nil
}

// export makes the channel directory appear if it does not exist yet.
func export(cfg Config, channel int, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	exportPath := filepath.Join(cfg.Root, fmt.Sprintf("pwmchip%d", cfg.Chip), "export")
	if err := os.WriteFile(exportPath, []byte(strconv.Itoa(channel)), 0644); err != nil {
		return fmt.Errorf("export pwm%d: %w", channel, err)
	}

	// udev needs a moment to create the channel files.
	for i := 0; i < 20; i++ {
		if _, err := os.Stat(dir); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("pwm%d did not appear after export", channel)
}

func release(cfg Config) error {
	var errs []error
	for _, channel := range cfg.Channels {
		dir := channelDir(cfg, channel)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, "enable"), []byte("0"), 0644); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeResponse(err error, data any) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	} else if data != nil {
		resp.Data, _ = json.Marshal(data)
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
