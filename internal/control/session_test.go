package control

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

const epsilon = 1e-9

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return t0.Add(d)
}

// hold feeds label every tick from start up to and including start+dur and
// returns every command produced.
func hold(s *Session, label gesture.Label, start, dur, tick time.Duration) []Command {
	var cmds []Command
	for d := time.Duration(0); d < dur; d += tick {
		cmds = append(cmds, s.Step(label, at(start+d))...)
	}
	return append(cmds, s.Step(label, at(start+dur))...)
}

func countKind(cmds []Command, kind CommandKind) int {
	n := 0
	for _, c := range cmds {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func TestNewSession(t *testing.T) {
	s := NewSession(DefaultConfig())
	snap := s.Snapshot()

	if snap.Mode != LED {
		t.Errorf("expected mode LED, got %s", snap.Mode)
	}
	if snap.LED != (DeviceState{}) || snap.Motor != (DeviceState{}) {
		t.Errorf("expected both devices off and uninitialized, got %+v %+v", snap.LED, snap.Motor)
	}
	if snap.Hold != nil {
		t.Error("expected no hold in progress")
	}
	if got := snap.StatusLine(); got != "LED,OFF,0,OFF,0" {
		t.Errorf("StatusLine() = %q", got)
	}
}

func TestSession_ModeSwitch(t *testing.T) {
	t.Run("ONE in LED mode is a no-op", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		if cmds := s.Step(gesture.One, t0); len(cmds) != 0 {
			t.Errorf("expected no commands, got %v", cmds)
		}
	})

	t.Run("TWO switches to MOTOR once", func(t *testing.T) {
		s := NewSession(DefaultConfig())

		cmds := s.Step(gesture.Two, t0)
		if len(cmds) != 1 || cmds[0].Kind != ModeSwitch || cmds[0].Device != Motor {
			t.Fatalf("expected one MODE_SWITCH to MOTOR, got %v", cmds)
		}
		if cmds[0].Gesture != gesture.Two || !cmds[0].At.Equal(t0) {
			t.Errorf("command metadata not set: %+v", cmds[0])
		}

		for i := 1; i <= 5; i++ {
			if cmds := s.Step(gesture.Two, at(time.Duration(i)*100*time.Millisecond)); len(cmds) != 0 {
				t.Errorf("repeat %d: expected no commands, got %v", i, cmds)
			}
		}
		if s.Snapshot().Mode != Motor {
			t.Error("expected mode MOTOR")
		}
	})

	t.Run("ONE switches back to LED", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Two, t0)
		cmds := s.Step(gesture.One, at(time.Second))
		if len(cmds) != 1 || cmds[0].Device != LED {
			t.Fatalf("expected MODE_SWITCH to LED, got %v", cmds)
		}
	})
}

func TestSession_Power(t *testing.T) {
	t.Run("first power on uses default level", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		cmds := s.Step(gesture.Open, t0)
		if len(cmds) != 1 {
			t.Fatalf("expected 1 command, got %v", cmds)
		}
		c := cmds[0]
		if c.Kind != PowerOn || c.Device != LED || c.Level != 3 {
			t.Errorf("unexpected command %+v", c)
		}
		if math.Abs(c.Value-60) > epsilon {
			t.Errorf("expected LED value 60, got %f", c.Value)
		}
	})

	t.Run("OPEN while on is a no-op", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Open, t0)
		if cmds := s.Step(gesture.Open, at(time.Second)); len(cmds) != 0 {
			t.Errorf("expected no commands, got %v", cmds)
		}
	})

	t.Run("CLOSED while off is a no-op", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		if cmds := s.Step(gesture.Closed, t0); len(cmds) != 0 {
			t.Errorf("expected no commands, got %v", cmds)
		}
	})

	t.Run("motor off drives exactly neutral", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Two, t0)
		on := s.Step(gesture.Open, at(time.Second))
		if math.Abs(on[0].Value-(7.5+0.6*4.5)) > epsilon {
			t.Errorf("expected motor value 10.2, got %f", on[0].Value)
		}

		off := s.Step(gesture.Closed, at(2*time.Second))
		if len(off) != 1 || off[0].Kind != PowerOff {
			t.Fatalf("expected POWER_OFF, got %v", off)
		}
		if off[0].Value != 7.5 {
			t.Errorf("expected neutral 7.5, got %f", off[0].Value)
		}
		if off[0].Level != 3 {
			t.Errorf("expected level 3 kept, got %d", off[0].Level)
		}
	})

	t.Run("level survives power cycle", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Open, t0)
		hold(s, gesture.ThumbsUp, time.Second, 2*time.Second, 100*time.Millisecond)
		s.Step(gesture.Closed, at(4*time.Second))

		cmds := s.Step(gesture.Open, at(5*time.Second))
		if len(cmds) != 1 || cmds[0].Level != 4 {
			t.Fatalf("expected POWER_ON at level 4, got %v", cmds)
		}
		if math.Abs(cmds[0].Value-80) > epsilon {
			t.Errorf("expected value 80, got %f", cmds[0].Value)
		}
	})

	t.Run("NONE never powers off", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Open, t0)
		for i := 1; i <= 100; i++ {
			if cmds := s.Step(gesture.None, at(time.Duration(i)*time.Second)); len(cmds) != 0 {
				t.Fatalf("expected no commands, got %v", cmds)
			}
		}
		if !s.Snapshot().LED.Powered {
			t.Error("LED should still be on")
		}
	})
}

func TestSession_HoldLaw(t *testing.T) {
	tests := []struct {
		held time.Duration
		want int
	}{
		{0, 0},
		{500 * time.Millisecond, 0},
		{1999 * time.Millisecond, 0},
		{2 * time.Second, 1},
		{3999 * time.Millisecond, 1},
		{4 * time.Second, 2},
		{5999 * time.Millisecond, 2},
	}

	for _, tt := range tests {
		t.Run(tt.held.String(), func(t *testing.T) {
			s := NewSession(DefaultConfig())
			s.Step(gesture.Open, t0)

			cmds := hold(s, gesture.ThumbsUp, time.Second, tt.held, 100*time.Millisecond)
			if got := countKind(cmds, LevelChanged); got != tt.want {
				t.Errorf("held %v: %d level changes, want %d (%v)", tt.held, got, tt.want, cmds)
			}
			if got := s.Snapshot().LED.Level; got != 3+tt.want {
				t.Errorf("expected level %d, got %d", 3+tt.want, got)
			}
		})
	}

	t.Run("sparse cycles still wait the full duration", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Open, t0)

		s.Step(gesture.ThumbsDown, at(0))
		if cmds := s.Step(gesture.ThumbsDown, at(1900*time.Millisecond)); len(cmds) != 0 {
			t.Fatalf("expected no commands before 2s, got %v", cmds)
		}
		cmds := s.Step(gesture.ThumbsDown, at(2500*time.Millisecond))
		if len(cmds) != 1 || cmds[0].Delta != -1 || cmds[0].Level != 2 {
			t.Fatalf("expected one -1 change to level 2, got %v", cmds)
		}
		// The next window starts at the adjustment, not at the original start.
		if cmds := s.Step(gesture.ThumbsDown, at(4200*time.Millisecond)); len(cmds) != 0 {
			t.Errorf("expected no commands at 4.2s, got %v", cmds)
		}
		if cmds := s.Step(gesture.ThumbsDown, at(4500*time.Millisecond)); len(cmds) != 1 {
			t.Errorf("expected a change at 4.5s, got %v", cmds)
		}
	})

	t.Run("interruption discards the hold", func(t *testing.T) {
		interruptions := []gesture.Label{gesture.None, gesture.Unknown, gesture.ThumbsDown, gesture.One}
		for _, interrupt := range interruptions {
			s := NewSession(DefaultConfig())
			s.Step(gesture.Open, t0)

			cmds := hold(s, gesture.ThumbsUp, 0, 1500*time.Millisecond, 100*time.Millisecond)
			cmds = append(cmds, s.Step(interrupt, at(1600*time.Millisecond))...)
			cmds = append(cmds, hold(s, gesture.ThumbsUp, 1700*time.Millisecond, 1500*time.Millisecond, 100*time.Millisecond)...)

			if got := countKind(cmds, LevelChanged); got != 0 {
				t.Errorf("interrupted by %s: expected no level change, got %v", interrupt, cmds)
			}
		}
	})

	t.Run("hold on a powered-off device changes nothing", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		cmds := hold(s, gesture.ThumbsUp, 0, 5*time.Second, 100*time.Millisecond)
		if len(cmds) != 0 {
			t.Errorf("expected no commands, got %v", cmds)
		}
		if got := s.Snapshot().LED.Level; got != 0 {
			t.Errorf("expected level 0, got %d", got)
		}
	})
}

func TestSession_Clamp(t *testing.T) {
	t.Run("never above max", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Open, t0)

		cmds := hold(s, gesture.ThumbsUp, 0, 20*time.Second, 100*time.Millisecond)
		if got := countKind(cmds, LevelChanged); got != 2 {
			t.Errorf("expected 2 level changes (3->5), got %d", got)
		}
		if got := s.Snapshot().LED.Level; got != 5 {
			t.Errorf("expected level 5, got %d", got)
		}
		for _, c := range cmds {
			if c.Level > 5 {
				t.Errorf("level above max in %v", c)
			}
		}
	})

	t.Run("never below one", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		s.Step(gesture.Open, t0)

		cmds := hold(s, gesture.ThumbsDown, 0, 20*time.Second, 100*time.Millisecond)
		if got := countKind(cmds, LevelChanged); got != 2 {
			t.Errorf("expected 2 level changes (3->1), got %d", got)
		}
		if got := s.Snapshot().LED.Level; got != 1 {
			t.Errorf("expected level 1, got %d", got)
		}
		if math.Abs(s.Output(LED)-20) > epsilon {
			t.Errorf("expected LED output 20, got %f", s.Output(LED))
		}
	})
}

func TestSession_ModeIsolation(t *testing.T) {
	s := NewSession(DefaultConfig())

	s.Step(gesture.Open, t0)
	s.Step(gesture.Two, at(time.Second))
	s.Step(gesture.Open, at(2*time.Second))

	hold(s, gesture.ThumbsUp, 3*time.Second, 4*time.Second, 100*time.Millisecond)
	snap := s.Snapshot()
	if snap.Motor.Level != 5 {
		t.Errorf("expected motor level 5, got %d", snap.Motor.Level)
	}
	if snap.LED.Level != 3 {
		t.Errorf("LED level changed while in MOTOR mode: %d", snap.LED.Level)
	}

	s.Step(gesture.One, at(10*time.Second))
	hold(s, gesture.ThumbsDown, 11*time.Second, 4*time.Second, 100*time.Millisecond)
	snap = s.Snapshot()
	if snap.LED.Level != 1 {
		t.Errorf("expected LED level 1, got %d", snap.LED.Level)
	}
	if snap.Motor.Level != 5 {
		t.Errorf("motor level changed while in LED mode: %d", snap.Motor.Level)
	}

	s.Step(gesture.Closed, at(20*time.Second))
	if snap := s.Snapshot(); snap.LED.Powered || !snap.Motor.Powered {
		t.Errorf("CLOSED should only switch off the LED: %+v", snap)
	}
}

func TestSession_Scenarios(t *testing.T) {
	t.Run("motor up to full speed", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		var cmds []Command
		cmds = append(cmds, s.Step(gesture.Two, t0)...)
		cmds = append(cmds, s.Step(gesture.Open, at(100*time.Millisecond))...)
		cmds = append(cmds, hold(s, gesture.ThumbsUp, 200*time.Millisecond, 2*time.Second, 100*time.Millisecond)...)
		cmds = append(cmds, hold(s, gesture.ThumbsUp, 2300*time.Millisecond, 1900*time.Millisecond, 100*time.Millisecond)...)

		snap := s.Snapshot()
		if snap.Mode != Motor || !snap.Motor.Powered || snap.Motor.Level != 5 {
			t.Fatalf("unexpected final state %+v", snap)
		}

		last := cmds[len(cmds)-1]
		if last.Kind != LevelChanged || last.Level != 5 {
			t.Fatalf("expected last command LEVEL_CHANGED to 5, got %v", last)
		}
		if math.Abs(last.Value-12.0) > epsilon {
			t.Errorf("expected value 12.0, got %f", last.Value)
		}
		if got := snap.StatusLine(); got != "MOTOR,OFF,0,ON,5" {
			t.Errorf("StatusLine() = %q", got)
		}
	})

	t.Run("LED on then off keeps level", func(t *testing.T) {
		s := NewSession(DefaultConfig())
		var cmds []Command
		cmds = append(cmds, s.Step(gesture.One, t0)...)
		cmds = append(cmds, s.Step(gesture.Open, at(time.Second))...)
		cmds = append(cmds, s.Step(gesture.Closed, at(2*time.Second))...)

		snap := s.Snapshot()
		if snap.LED.Powered || snap.LED.Level != 3 {
			t.Fatalf("unexpected LED state %+v", snap.LED)
		}
		if len(cmds) != 2 {
			t.Fatalf("expected POWER_ON and POWER_OFF, got %v", cmds)
		}
		if cmds[1].Value != 0 {
			t.Errorf("expected output 0, got %f", cmds[1].Value)
		}
		if s.Output(LED) != 0 {
			t.Errorf("expected LED output 0, got %f", s.Output(LED))
		}
	})
}

func TestSession_HoldProgress(t *testing.T) {
	s := NewSession(DefaultConfig())

	if _, _, ok := s.HoldProgress(t0); ok {
		t.Error("expected no hold before any gesture")
	}

	s.Step(gesture.ThumbsUp, t0)
	h, remaining, ok := s.HoldProgress(at(800 * time.Millisecond))
	if !ok || h.Label != gesture.ThumbsUp {
		t.Fatalf("expected THUMBS_UP hold, got %+v ok=%v", h, ok)
	}
	if remaining != 1200*time.Millisecond {
		t.Errorf("expected 1.2s remaining, got %v", remaining)
	}

	if _, remaining, _ := s.HoldProgress(at(5 * time.Second)); remaining != 0 {
		t.Errorf("remaining should not go negative, got %v", remaining)
	}

	s.Step(gesture.Unknown, at(time.Second))
	if _, _, ok := s.HoldProgress(at(time.Second)); ok {
		t.Error("UNKNOWN should clear the hold")
	}
	if s.Snapshot().Gesture != gesture.Unknown {
		t.Error("snapshot should record the last gesture")
	}
}

func TestSession_CancelHold(t *testing.T) {
	s := NewSession(DefaultConfig())
	s.Step(gesture.Open, t0)
	s.Step(gesture.ThumbsUp, at(100*time.Millisecond))
	s.Step(gesture.ThumbsUp, at(500*time.Millisecond))

	s.CancelHold()
	if _, _, ok := s.HoldProgress(at(time.Second)); ok {
		t.Fatal("CancelHold should clear the hold")
	}

	// Well past the old window: the first frame only starts a new hold.
	if cmds := s.Step(gesture.ThumbsUp, at(60*time.Second)); len(cmds) != 0 {
		t.Fatalf("expected no command on the first frame of a new hold, got %v", cmds)
	}
	if cmds := s.Step(gesture.ThumbsUp, at(62*time.Second)); countKind(cmds, LevelChanged) != 1 {
		t.Errorf("expected one LEVEL_CHANGED after a full new window, got %v", cmds)
	}
	if s.Snapshot().LED.Level != 4 {
		t.Errorf("LED level = %d, want 4", s.Snapshot().LED.Level)
	}
}

func TestSession_ConcurrentStep(t *testing.T) {
	s := NewSession(DefaultConfig())
	s.Step(gesture.Open, t0)

	labels := []gesture.Label{gesture.ThumbsUp, gesture.ThumbsDown, gesture.One, gesture.Two, gesture.Open, gesture.Closed}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.Step(labels[(g+i)%len(labels)], at(time.Duration(i)*time.Second))
				_ = s.Snapshot()
			}
		}(g)
	}
	wg.Wait()

	snap := s.Snapshot()
	for _, d := range Devices() {
		st := snap.Device(d)
		if st.Level != 0 && (st.Level < MinLevel || st.Level > 5) {
			t.Errorf("%s level out of range: %d", d, st.Level)
		}
	}
}
