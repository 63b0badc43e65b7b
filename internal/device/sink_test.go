package device

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/gesture"
)

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func powerOn(d control.Device, level int, value float64) control.Command {
	return control.Command{Device: d, Kind: control.PowerOn, Level: level, Value: value, Gesture: gesture.Open, At: testTime}
}

// failingSink fails every Apply and Close with err.
type failingSink struct {
	name  string
	err   error
	calls int
}

func (f *failingSink) Name() string { return f.name }

func (f *failingSink) Apply(context.Context, control.Command, control.Snapshot) error {
	f.calls++
	return f.err
}

func (f *failingSink) Close() error { return f.err }

func TestMulti(t *testing.T) {
	t.Run("fans out to every sink", func(t *testing.T) {
		a, b := NewMemorySink(0), NewMemorySink(0)
		m := Multi{a, b}

		if err := m.Apply(context.Background(), powerOn(control.LED, 3, 60), control.Snapshot{}); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if len(a.Commands()) != 1 || len(b.Commands()) != 1 {
			t.Errorf("expected both sinks to record the command")
		}
	})

	t.Run("keeps going after a failure and joins errors", func(t *testing.T) {
		errA := errors.New("broker down")
		errB := errors.New("pin busy")
		fa := &failingSink{name: "a", err: errA}
		fb := &failingSink{name: "b", err: errB}
		mem := NewMemorySink(0)

		err := Multi{fa, mem, fb}.Apply(context.Background(), powerOn(control.LED, 3, 60), control.Snapshot{})
		if !errors.Is(err, errA) || !errors.Is(err, errB) {
			t.Fatalf("expected joined errors, got %v", err)
		}
		if !strings.Contains(err.Error(), "a: broker down") {
			t.Errorf("expected sink name in error, got %v", err)
		}
		if len(mem.Commands()) != 1 {
			t.Error("sink after the failing one was not called")
		}

		if err := (Multi{fa, fb}).Close(); !errors.Is(err, errA) || !errors.Is(err, errB) {
			t.Errorf("Close() = %v", err)
		}
	})

	t.Run("empty multi", func(t *testing.T) {
		if err := (Multi{}).Apply(context.Background(), control.Command{}, control.Snapshot{}); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}

func TestMemorySink(t *testing.T) {
	m := NewMemorySink(2)
	for level := 1; level <= 3; level++ {
		m.Apply(context.Background(), powerOn(control.LED, level, 0), control.Snapshot{})
	}

	cmds := m.Commands()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(cmds))
	}
	if cmds[0].Level != 2 || cmds[1].Level != 3 {
		t.Errorf("expected the two newest commands, got %v", cmds)
	}

	cmds[0].Level = 99
	if m.Commands()[0].Level == 99 {
		t.Error("Commands() must return a copy")
	}
}

func TestLogSink(t *testing.T) {
	var s Sink = LogSink{}
	if err := s.Apply(context.Background(), powerOn(control.Motor, 3, 10.2), control.Snapshot{Mode: control.Motor}); err != nil {
		t.Errorf("Apply() error = %v", err)
	}
	if s.Name() != "log" {
		t.Errorf("Name() = %q", s.Name())
	}
}
