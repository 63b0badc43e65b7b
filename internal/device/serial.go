package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/ayusman/mudra/internal/control"
)

// SerialConfig configures the Arduino link.
type SerialConfig struct {
	Enabled bool `yaml:"enabled"`
	// Port is the serial device, e.g. /dev/ttyACM0 or COM3. Empty means
	// auto-detect the first Arduino-like USB port.
	Port             string        `yaml:"port"`
	BaudRate         int           `yaml:"baud_rate"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// DefaultSerialConfig matches the firmware: 115200 baud, and enough time for
// the board to reset after the port opens before it prints READY.
func DefaultSerialConfig() SerialConfig {
	return SerialConfig{
		BaudRate:         115200,
		HandshakeTimeout: 7 * time.Second,
	}
}

// ErrBadReply is returned by ParseReply for lines without a known prefix.
var ErrBadReply = errors.New("bad serial reply")

// Reply prefixes sent by the firmware.
const (
	ReplyReady  = "READY"
	ReplyStatus = "STATUS"
	ReplyMode   = "MODE"
	ReplyError  = "ERROR"
)

// Reply is one line received from the board.
type Reply struct {
	Kind    string
	Payload string
}

// EncodeLine renders a command in the firmware's line protocol without the
// trailing newline: MODE:LED, LED:ON, LED:OFF, LED:UP, LED:DOWN (MOTOR
// likewise).
func EncodeLine(cmd control.Command) (string, error) {
	switch cmd.Kind {
	case control.ModeSwitch:
		return "MODE:" + string(cmd.Device), nil
	case control.PowerOn:
		return string(cmd.Device) + ":ON", nil
	case control.PowerOff:
		return string(cmd.Device) + ":OFF", nil
	case control.LevelChanged:
		if cmd.Delta < 0 {
			return string(cmd.Device) + ":DOWN", nil
		}
		return string(cmd.Device) + ":UP", nil
	}
	return "", fmt.Errorf("unsupported command kind %q", cmd.Kind)
}

// ParseReply splits a firmware line into its prefix and payload.
func ParseReply(line string) (Reply, error) {
	line = strings.TrimSpace(line)
	kind, payload, ok := strings.Cut(line, ":")
	if !ok {
		return Reply{}, fmt.Errorf("%w: %q", ErrBadReply, line)
	}
	switch kind {
	case ReplyReady, ReplyStatus, ReplyMode, ReplyError, string(control.LED), string(control.Motor):
		return Reply{Kind: kind, Payload: payload}, nil
	}
	return Reply{}, fmt.Errorf("%w: unknown prefix %q", ErrBadReply, kind)
}

// SerialSink talks to the Arduino firmware over a USB serial port.
type SerialSink struct {
	port io.ReadWriteCloser

	ready chan struct{}
	done  chan struct{}

	mu sync.Mutex
	// remote is the state last reported by the board.
	remote control.Snapshot
	known  bool
	closed bool
}

// NewSerialSink opens the port and waits for the firmware's READY line.
func NewSerialSink(ctx context.Context, cfg SerialConfig) (*SerialSink, error) {
	name := cfg.Port
	if name == "" {
		var err error
		if name, err = FindArduinoPort(); err != nil {
			return nil, err
		}
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	log.Printf("Serial port %s opened at %d baud", name, cfg.BaudRate)

	s := newSerialSink(port)
	if err := s.WaitReady(ctx, cfg.HandshakeTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return s, nil
}

// FindArduinoPort returns the first USB serial port that looks like an
// Arduino or a CH340/FTDI adapter.
func FindArduinoPort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		switch strings.ToUpper(p.VID) {
		case "2341", "2A03", "1A86", "0403":
			return p.Name, nil
		}
		if strings.Contains(p.Product, "Arduino") || strings.Contains(p.Product, "CH340") {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w: no Arduino found", ErrNotConnected)
}

func newSerialSink(port io.ReadWriteCloser) *SerialSink {
	s := &SerialSink{
		port:  port,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// WaitReady blocks until the board has sent READY.
func (s *SerialSink) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return fmt.Errorf("%w: port closed before READY", ErrNotConnected)
	case <-ctx.Done():
		return fmt.Errorf("%w: no READY from board: %v", ErrNotConnected, ctx.Err())
	}
}

func (s *SerialSink) readLoop() {
	defer close(s.done)

	readyOnce := sync.Once{}
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		reply, err := ParseReply(line)
		if err != nil {
			log.Printf("Arduino: %s", line)
			continue
		}
		if reply.Kind == ReplyReady {
			readyOnce.Do(func() { close(s.ready) })
		}
		s.record(reply)
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if err := scanner.Err(); err != nil && !closed {
		log.Printf("Serial read: %v", err)
	}
}

// record folds a reply into the board-reported state.
func (s *SerialSink) record(r Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Kind {
	case ReplyStatus:
		snap, err := control.ParseStatusLine(r.Payload)
		if err != nil {
			log.Printf("Arduino status: %v", err)
			return
		}
		s.remote = snap
		s.known = true
	case ReplyMode:
		if d, err := control.ParseDevice(r.Payload); err == nil {
			s.remote.Mode = d
		}
	case string(control.LED), string(control.Motor):
		st := &s.remote.LED
		if r.Kind == string(control.Motor) {
			st = &s.remote.Motor
		}
		switch {
		case r.Payload == "ON":
			st.Powered = true
		case r.Payload == "OFF":
			st.Powered = false
		case strings.HasPrefix(r.Payload, "LEVEL:"):
			if n, err := strconv.Atoi(strings.TrimPrefix(r.Payload, "LEVEL:")); err == nil {
				st.Level = n
			}
		}
	case ReplyError:
		log.Printf("Arduino error: %s", r.Payload)
	}
}

// DeviceStatus returns the state last reported by the board. ok is false
// until a full STATUS line has been received.
func (s *SerialSink) DeviceStatus() (snap control.Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote, s.known
}

func (s *SerialSink) Name() string { return "serial" }

func (s *SerialSink) Apply(_ context.Context, cmd control.Command, _ control.Snapshot) error {
	select {
	case <-s.ready:
	default:
		return ErrNotConnected
	}

	line, err := EncodeLine(cmd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrNotConnected
	}
	if _, err := io.WriteString(s.port, line+"\n"); err != nil {
		return fmt.Errorf("write %q: %w", line, err)
	}
	return nil
}

func (s *SerialSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.port.Close()
}
