package device

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/ayusman/mudra/internal/control"
)

// GPIOConfig selects the PWM pins (BCM numbering) and their frequencies.
type GPIOConfig struct {
	Enabled        bool          `yaml:"enabled"`
	LEDPin         int           `yaml:"led_pin"`
	MotorPin       int           `yaml:"motor_pin"`
	LEDFrequency   int           `yaml:"led_frequency_hz"`
	MotorFrequency int           `yaml:"motor_frequency_hz"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
}

// DefaultGPIOConfig drives the LED on GPIO18 at 1 kHz and the servo on
// GPIO13 at the standard 50 Hz servo rate.
func DefaultGPIOConfig() GPIOConfig {
	return GPIOConfig{
		LEDPin:         18,
		MotorPin:       13,
		LEDFrequency:   1000,
		MotorFrequency: 50,
		SettleDelay:    100 * time.Millisecond,
	}
}

// pwmPin is the part of gpio.PinIO the sink uses.
type pwmPin interface {
	Name() string
	PWM(duty gpio.Duty, f physic.Frequency) error
	Halt() error
}

type gpioOutput struct {
	pin  pwmPin
	freq physic.Frequency
}

// GPIOSink drives hardware PWM pins through periph.io. Command values are
// duty cycle percentages.
type GPIOSink struct {
	mu      sync.Mutex
	outputs map[control.Device]gpioOutput
	settle  time.Duration
	// release stops the motor pulses once the servo has settled at neutral.
	release *time.Timer
	// motorSeq invalidates a release that fired while a newer command waited.
	motorSeq uint64
}

// NewGPIOSink initializes periph.io and resolves both pins.
func NewGPIOSink(cfg GPIOConfig) (*GPIOSink, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	resolve := func(n int) (pwmPin, error) {
		name := fmt.Sprintf("GPIO%d", n)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("pin %d (%s) not found in hardware", n, name)
		}
		return p, nil
	}

	led, err := resolve(cfg.LEDPin)
	if err != nil {
		return nil, err
	}
	motor, err := resolve(cfg.MotorPin)
	if err != nil {
		return nil, err
	}

	return newGPIOSink(led, motor, cfg), nil
}

func newGPIOSink(led, motor pwmPin, cfg GPIOConfig) *GPIOSink {
	return &GPIOSink{
		outputs: map[control.Device]gpioOutput{
			control.LED:   {pin: led, freq: physic.Frequency(cfg.LEDFrequency) * physic.Hertz},
			control.Motor: {pin: motor, freq: physic.Frequency(cfg.MotorFrequency) * physic.Hertz},
		},
		settle: cfg.SettleDelay,
	}
}

func (g *GPIOSink) Name() string { return "gpio" }

// dutyFromPercent converts a 0-100 duty percentage to periph's scale.
func dutyFromPercent(pct float64) gpio.Duty {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return gpio.Duty(pct / 100 * float64(gpio.DutyMax))
}

func (g *GPIOSink) Apply(_ context.Context, cmd control.Command, _ control.Snapshot) error {
	if cmd.Kind == control.ModeSwitch {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out, ok := g.outputs[cmd.Device]
	if !ok {
		return fmt.Errorf("no pin for device %s", cmd.Device)
	}

	if cmd.Device == control.Motor {
		g.motorSeq++
		if g.release != nil {
			g.release.Stop()
			g.release = nil
		}
	}

	if err := out.pin.PWM(dutyFromPercent(cmd.Value), out.freq); err != nil {
		return fmt.Errorf("set %s duty %.2f%%: %w", out.pin.Name(), cmd.Value, err)
	}

	if cmd.Device == control.Motor && cmd.Kind == control.PowerOff && g.settle > 0 {
		pin, freq, seq := out.pin, out.freq, g.motorSeq
		g.release = time.AfterFunc(g.settle, func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			if seq != g.motorSeq {
				return
			}
			g.release = nil
			if err := pin.PWM(0, freq); err != nil {
				log.Printf("Motor release on %s: %v", pin.Name(), err)
			}
		})
	}

	return nil
}

// Close stops PWM output on both pins.
func (g *GPIOSink) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.motorSeq++
	if g.release != nil {
		g.release.Stop()
		g.release = nil
	}

	var firstErr error
	for _, d := range control.Devices() {
		if err := g.outputs[d].pin.Halt(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
