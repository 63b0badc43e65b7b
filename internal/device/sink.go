// Package device forwards controller commands to the hardware that acts on
// them: PWM pins, an Arduino over USB serial, an MQTT broker or driver
// plugins.
package device

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/mudra/internal/control"
)

var (
	// ErrNotConnected is returned when a sink's transport is not ready.
	ErrNotConnected = errors.New("device not connected")
	// ErrCircuitOpen is returned by a Breaker while it rejects calls.
	ErrCircuitOpen = errors.New("device circuit open")
)

// Sink receives every command emitted by the controller together with the
// session state right after it.
type Sink interface {
	Name() string
	Apply(ctx context.Context, cmd control.Command, status control.Snapshot) error
	Close() error
}

// Multi fans a command out to several sinks. Every sink is called even when
// an earlier one fails; the errors are joined.
type Multi []Sink

func (m Multi) Name() string { return "multi" }

func (m Multi) Apply(ctx context.Context, cmd control.Command, status control.Snapshot) error {
	var errs []error
	for _, s := range m {
		if err := s.Apply(ctx, cmd, status); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes every command to the standard logger.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Apply(_ context.Context, cmd control.Command, status control.Snapshot) error {
	log.Printf("Device command: %s [%s]", cmd, status.StatusLine())
	return nil
}

func (LogSink) Close() error { return nil }

// MemorySink keeps every command in memory. The dashboard uses it for the
// recent command list and tests use it to observe the pipeline.
type MemorySink struct {
	mu    sync.Mutex
	limit int
	cmds  []control.Command
}

// NewMemorySink keeps at most limit commands; limit <= 0 keeps everything.
func NewMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: limit}
}

func (m *MemorySink) Name() string { return "memory" }

func (m *MemorySink) Apply(_ context.Context, cmd control.Command, _ control.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cmds = append(m.cmds, cmd)
	if m.limit > 0 && len(m.cmds) > m.limit {
		m.cmds = m.cmds[len(m.cmds)-m.limit:]
	}
	return nil
}

// Commands returns a copy of the recorded commands, oldest first.
func (m *MemorySink) Commands() []control.Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]control.Command, len(m.cmds))
	copy(out, m.cmds)
	return out
}

func (m *MemorySink) Close() error { return nil }
