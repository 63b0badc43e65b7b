// Package app runs the mudra control loop: camera frames in, classified
// gestures through the controller, device commands out.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/device"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// sinkTimeout bounds how long one command may take across all sinks.
const sinkTimeout = 3 * time.Second

// PipelineConfig controls frame pacing.
type PipelineConfig struct {
	// IdleFPS is the frame rate while nothing moves and no hand is visible.
	IdleFPS int `yaml:"idle_fps"`
	// ActiveFPS is the frame rate while a hand may be posing.
	ActiveFPS int `yaml:"active_fps"`
	// IdleTimeout is how long without motion or a hand before dropping to IdleFPS.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultPipelineConfig returns 5 FPS idle, 15 FPS active and a 2s timeout.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		IdleFPS:     5,
		ActiveFPS:   15,
		IdleTimeout: 2 * time.Second,
	}
}

// Config holds the collaborators of an App. Camera, Detector, Sink and Store
// may be nil; a nil Camera means frames only arrive through ProcessHands.
type Config struct {
	Pipeline        PipelineConfig
	Control         control.Config
	MotionThreshold float64

	Camera   capture.Camera
	Detector detector.Detector
	Sink     device.Sink
	Store    *store.Store

	// Source is recorded on the journal session ("camera", "api", ...).
	Source string
}

// Result is the outcome of one control cycle.
type Result struct {
	Label    gesture.Label     `json:"label"`
	Commands []control.Command `json:"commands"`
	Snapshot control.Snapshot  `json:"snapshot"`
}

// App owns a control session and everything that feeds or consumes it.
type App struct {
	config  Config
	session *control.Session
	motion  *capture.MotionDetector

	// procMu keeps dispatch order equal to step order.
	procMu    sync.Mutex
	lastLabel gesture.Label
	sessionID string

	mu       sync.RWMutex
	enabled  bool
	detector detector.Detector
	stopCh   chan struct{}
	doneCh   chan struct{}
	frame    []byte

	obsMu     sync.RWMutex
	observers map[int]func(Event)
	nextObs   int
}

// New creates an App with a fresh session: mode LED, both devices off.
func New(config Config) (*App, error) {
	if err := config.Control.Validate(); err != nil {
		return nil, err
	}
	if config.Pipeline.IdleFPS <= 0 || config.Pipeline.ActiveFPS <= 0 || config.Pipeline.IdleTimeout <= 0 {
		config.Pipeline = DefaultPipelineConfig()
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = 1.0
	}
	if config.Sink == nil {
		config.Sink = device.LogSink{}
	}
	if config.Source == "" {
		config.Source = "camera"
	}

	a := &App{
		config:    config,
		session:   control.NewSession(config.Control),
		motion:    capture.NewMotionDetector(config.MotionThreshold),
		detector:  config.Detector,
		enabled:   true,
		lastLabel: gesture.None,
		observers: make(map[int]func(Event)),
	}

	if config.Store != nil {
		sess := &store.Session{Source: config.Source}
		if err := config.Store.Sessions().Create(sess); err != nil {
			return nil, fmt.Errorf("create journal session: %w", err)
		}
		a.sessionID = sess.ID
		log.Printf("Journal session %s started", sess.ID)
	}

	return a, nil
}

// Session returns the control session.
func (a *App) Session() *control.Session {
	return a.session
}

// SessionID returns the journal session ID, or "" without a store.
func (a *App) SessionID() string {
	return a.sessionID
}

// Store returns the journal, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// SetEnabled pauses or resumes frame processing. A paused pipeline keeps
// the devices in their current state but drops any running hold, since the
// gesture stream is not observed while paused.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !enabled {
		a.procMu.Lock()
		a.session.CancelHold()
		a.procMu.Unlock()
	}

	if changed {
		log.Printf("Gesture control enabled: %v", enabled)
		a.publish(Event{Type: EventEnabled, Enabled: &enabled, Snapshot: a.session.Snapshot(), At: time.Now()})
	}
}

// IsEnabled reports whether frame processing is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// LatestFrame returns the most recent annotated frame as JPEG, or nil.
func (a *App) LatestFrame() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frame
}

func (a *App) setFrame(jpeg []byte) {
	a.mu.Lock()
	a.frame = jpeg
	a.mu.Unlock()
}

// ProcessHands runs one control cycle on the hands detected in a frame. Only
// the first hand is classified.
func (a *App) ProcessHands(hands []detector.HandLandmarks, now time.Time) Result {
	label := gesture.None
	if len(hands) > 0 {
		label = gesture.Classify(&hands[0])
	}
	return a.step(label, now)
}

// Inject runs one control cycle as if label had been classified from a frame.
func (a *App) Inject(label gesture.Label, now time.Time) Result {
	return a.step(label, now)
}

func (a *App) step(label gesture.Label, now time.Time) Result {
	a.procMu.Lock()
	defer a.procMu.Unlock()

	cmds := a.session.Step(label, now)
	snap := a.session.Snapshot()

	if label != a.lastLabel {
		a.recordOccurrence(label, now)
		a.lastLabel = label
	}

	a.dispatch(cmds, snap)

	res := Result{Label: label, Commands: cmds, Snapshot: snap}
	ev := Event{Type: EventCycle, Label: label, Commands: cmds, Snapshot: snap, At: now}
	if _, remaining, ok := a.session.HoldProgress(now); ok {
		ev.HoldRemaining = remaining.Seconds()
	}
	a.publish(ev)

	return res
}

// recordOccurrence counts a label the first cycle it appears.
func (a *App) recordOccurrence(label gesture.Label, now time.Time) {
	if a.config.Store == nil || label == gesture.None {
		return
	}
	if err := a.config.Store.Stats().Increment(a.sessionID, label.String(), now); err != nil {
		log.Printf("Failed to record gesture %s: %v", label, err)
	}
}

// dispatch sends each command to the sink and the journal. Failures are
// logged; the session state has already moved on.
func (a *App) dispatch(cmds []control.Command, snap control.Snapshot) {
	for _, cmd := range cmds {
		log.Printf("Command: %s", cmd)

		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		if err := a.config.Sink.Apply(ctx, cmd, snap); err != nil {
			if errors.Is(err, device.ErrCircuitOpen) {
				log.Printf("Sink skipped (circuit open): %v", err)
			} else {
				log.Printf("Sink error for %s: %v", cmd, err)
			}
		}
		cancel()

		if a.config.Store == nil {
			continue
		}
		rec := &store.CommandRecord{
			SessionID: a.sessionID,
			Device:    string(cmd.Device),
			Kind:      string(cmd.Kind),
			Level:     cmd.Level,
			Delta:     cmd.Delta,
			Value:     cmd.Value,
			Gesture:   cmd.Gesture.String(),
			Status:    snap.StatusLine(),
			At:        cmd.At,
		}
		if err := a.config.Store.Commands().Create(rec); err != nil {
			log.Printf("Failed to journal command: %v", err)
		}
	}
}

// Start opens the camera and begins the pipeline. Without a camera it is a
// no-op and cycles only run through ProcessHands and Inject.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil || a.config.Camera == nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.config.Camera.SetFPS(a.config.Pipeline.IdleFPS)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the pipeline and closes the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if a.config.Camera != nil {
		if err := a.config.Camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	if stopCh != nil {
		log.Println("Detection pipeline stopped")
	}
}

// Close stops the pipeline, releases the sinks and ends the journal session.
// Devices are left as they are; the firmware and plugins decide what a
// released output does.
func (a *App) Close() error {
	a.Stop()

	var errs []error
	if err := a.config.Sink.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sinks: %w", err))
	}
	if a.config.Store != nil && a.sessionID != "" {
		if err := a.config.Store.Sessions().End(a.sessionID, time.Now()); err != nil {
			errs = append(errs, fmt.Errorf("end journal session: %w", err))
		}
	}
	return errors.Join(errs...)
}
