package app

import (
	"time"

	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/gesture"
)

// EventType distinguishes events sent to observers.
type EventType string

const (
	// EventCycle is sent after every control cycle.
	EventCycle EventType = "cycle"
	// EventEnabled is sent when processing is paused or resumed.
	EventEnabled EventType = "enabled"
	// EventPace is sent when the pipeline switches between idle and active.
	EventPace EventType = "pace"
)

// Event is a notification about the running session.
type Event struct {
	Type     EventType         `json:"type"`
	Label    gesture.Label     `json:"label,omitempty"`
	Commands []control.Command `json:"commands,omitempty"`
	Snapshot control.Snapshot  `json:"snapshot"`
	Status   string            `json:"status"`

	// HoldRemaining is the seconds left before the running hold adjusts the
	// level, zero when no hold is running.
	HoldRemaining float64 `json:"hold_remaining,omitempty"`

	Enabled *bool `json:"enabled,omitempty"`
	Active  *bool `json:"active,omitempty"`

	At time.Time `json:"at"`
}

// Subscribe registers fn for every event and returns a function that removes
// it. fn runs on the publishing goroutine and must not block.
func (a *App) Subscribe(fn func(Event)) (unsubscribe func()) {
	a.obsMu.Lock()
	id := a.nextObs
	a.nextObs++
	a.observers[id] = fn
	a.obsMu.Unlock()

	return func() {
		a.obsMu.Lock()
		delete(a.observers, id)
		a.obsMu.Unlock()
	}
}

func (a *App) publish(ev Event) {
	ev.Status = ev.Snapshot.StatusLine()

	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, fn := range a.observers {
		fn(ev)
	}
}
