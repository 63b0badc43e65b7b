package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/mudra/internal/store"
)

// SessionHandler serves the session journal.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

type listSessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

// List handles GET /api/sessions?limit=n.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*store.Session{}
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Commands handles GET /api/sessions/{id}/commands.
func (h *SessionHandler) Commands(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	records, err := h.store.Commands().ListBySession(sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commands")
		return
	}
	if records == nil {
		records = []store.CommandRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"commands": records})
}

// Stats handles GET /api/sessions/{id}/stats.
func (h *SessionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	stats, err := h.store.Stats().ListBySession(sess.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stats")
		return
	}
	if stats == nil {
		stats = []store.GestureStat{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return sess, true
}
