package handlers

import (
	"net/http"

	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/facematch"
	"github.com/kozaktomas/presence-station/internal/presence"
)

// PresenceHandler exposes the presence registry and the attendance log.
type PresenceHandler struct {
	registry *presence.Registry
	log      attendance.Log
}

// NewPresenceHandler creates a new presence handler.
func NewPresenceHandler(registry *presence.Registry, log attendance.Log) *PresenceHandler {
	return &PresenceHandler{registry: registry, log: log}
}

type presenceResponse struct {
	Count   int              `json:"count"`
	Present []presence.Entry `json:"present"`
}

// Presence returns who is currently in.
func (h *PresenceHandler) Presence(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.Snapshot()
	if entries == nil {
		entries = []presence.Entry{}
	}
	respondJSON(w, http.StatusOK, presenceResponse{Count: len(entries), Present: entries})
}

// Attendance returns the attendance log, optionally for one person (?name=).
func (h *PresenceHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	var (
		entries []attendance.Entry
		err     error
	)
	if name := r.URL.Query().Get("name"); name != "" {
		entries, err = attendance.EntriesFor(r.Context(), h.log, facematch.IdentityKey(name))
	} else {
		entries, err = h.log.Entries(r.Context())
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read attendance log")
		return
	}
	if entries == nil {
		entries = []attendance.Entry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
