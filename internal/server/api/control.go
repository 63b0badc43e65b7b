package api

import (
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/control"
	"github.com/ayusman/mudra/internal/gesture"
)

// Controller is the part of the application the control endpoints drive.
type Controller interface {
	Session() *control.Session
	SessionID() string
	Inject(label gesture.Label, now time.Time) app.Result
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// ControlHandler serves the live session: status, gesture injection and the
// enable switch.
type ControlHandler struct {
	ctrl    Controller
	limiter *rate.Limiter
	now     func() time.Time
}

// NewControlHandler creates a handler. Injection is limited to perSecond
// requests with the given burst.
func NewControlHandler(ctrl Controller, perSecond float64, burst int) *ControlHandler {
	return &ControlHandler{
		ctrl:    ctrl,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		now:     time.Now,
	}
}

type holdResponse struct {
	Label     gesture.Label `json:"label"`
	Since     time.Time     `json:"since"`
	Remaining float64       `json:"remaining"`
}

type statusResponse struct {
	control.Snapshot
	Status    string             `json:"status"`
	Enabled   bool               `json:"enabled"`
	SessionID string             `json:"session_id,omitempty"`
	Outputs   map[string]float64 `json:"outputs"`
	Hold      *holdResponse      `json:"hold,omitempty"`
}

// Status handles GET /api/status.
func (h *ControlHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess := h.ctrl.Session()
	snap := sess.Snapshot()

	resp := statusResponse{
		Snapshot:  snap,
		Status:    snap.StatusLine(),
		Enabled:   h.ctrl.IsEnabled(),
		SessionID: h.ctrl.SessionID(),
		Outputs: map[string]float64{
			string(control.LED):   sess.Output(control.LED),
			string(control.Motor): sess.Output(control.Motor),
		},
	}
	if hold, remaining, ok := sess.HoldProgress(h.now()); ok {
		resp.Hold = &holdResponse{Label: hold.Label, Since: hold.Since, Remaining: remaining.Seconds()}
	}

	writeJSON(w, http.StatusOK, resp)
}

type injectRequest struct {
	Label string `json:"label"`
}

// Inject handles POST /api/gestures. It runs one control cycle with the
// given label, exactly as if the camera had seen it.
func (h *ControlHandler) Inject(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "Too many gestures")
		return
	}

	var req injectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	label, err := gesture.ParseLabel(req.Label)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unknown gesture label")
		return
	}

	res := h.ctrl.Inject(label, h.now())
	if res.Commands == nil {
		res.Commands = []control.Command{}
	}
	writeJSON(w, http.StatusOK, struct {
		app.Result
		Status string `json:"status"`
	}{res, res.Snapshot.StatusLine()})
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetEnabled handles PUT /api/enabled.
func (h *ControlHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "Expected {\"enabled\": true|false}")
		return
	}

	h.ctrl.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": h.ctrl.IsEnabled()})
}
