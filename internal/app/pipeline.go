package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/overlay"
)

// pacer tracks whether the pipeline runs at its idle or active rate.
//
// Motion alone is not enough to stay active: a held thumbs-up is nearly
// still, so a visible hand also counts as activity.
type pacer struct {
	cfg          PipelineConfig
	active       bool
	lastActivity time.Time
}

// observe records one frame and reports whether the rate changed.
func (p *pacer) observe(motion, hand bool, now time.Time) (changed bool) {
	if motion || hand {
		p.lastActivity = now
		if !p.active {
			p.active = true
			return true
		}
		return false
	}
	if p.active && now.Sub(p.lastActivity) > p.cfg.IdleTimeout {
		p.active = false
		return true
	}
	return false
}

func (p *pacer) interval() time.Duration {
	fps := p.cfg.IdleFPS
	if p.active {
		fps = p.cfg.ActiveFPS
	}
	return time.Second / time.Duration(fps)
}

func (p *pacer) fps() int {
	if p.active {
		return p.cfg.ActiveFPS
	}
	return p.cfg.IdleFPS
}

// runPipeline reads frames until stopCh closes.
//
// Each tick: read a frame, gate on motion, detect hands while active, run a
// control cycle, then annotate the frame for the stream. Idle frames skip
// detection and the session is left untouched.
func (a *App) runPipeline(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	p := &pacer{cfg: a.config.Pipeline, lastActivity: time.Now()}
	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.config.Camera.ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if a.cycle(frame, p, time.Now()) {
				a.config.Camera.SetFPS(p.fps())
				ticker.Reset(p.interval())
				log.Printf("Pipeline %s (%d FPS)", paceName(p.active), p.fps())

				active := p.active
				a.publish(Event{Type: EventPace, Active: &active, Snapshot: a.session.Snapshot(), At: time.Now()})
			}
			frame.Close()
		}
	}
}

// cycle processes one frame and reports whether the pacing changed.
func (a *App) cycle(frame *gocv.Mat, p *pacer, now time.Time) bool {
	motion, _ := a.motion.Detect(frame)

	hand := false
	if d := a.Detector(); d != nil && (p.active || motion) {
		hands, err := d.Detect(frame)
		if err != nil {
			log.Printf("Error detecting hands: %v", err)
		} else {
			hand = len(hands) > 0
			a.ProcessHands(hands, now)
		}
	}

	changed := p.observe(motion, hand, now)
	a.annotate(frame, now)
	return changed
}

// annotate draws the session state onto frame and keeps it as the latest
// stream frame.
func (a *App) annotate(frame *gocv.Mat, now time.Time) {
	st := overlay.State{
		Snapshot: a.session.Snapshot(),
		MaxLevel: a.config.Control.MaxLevel,
		Now:      now,
	}
	if _, remaining, ok := a.session.HoldProgress(now); ok {
		st.Holding = true
		st.HoldRemaining = remaining
	}
	overlay.Render(frame, st)

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		log.Printf("Error encoding frame: %v", err)
		return
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	a.setFrame(jpeg)
}

func paceName(active bool) string {
	if active {
		return "active"
	}
	return "idle"
}
