package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/events"
	"github.com/kozaktomas/presence-station/internal/gallery"
)

// IdentitiesHandler lists and registers identities.
type IdentitiesHandler struct {
	store  *gallery.Store
	events events.Publisher
	logger *zap.Logger
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(store *gallery.Store, publisher events.Publisher, logger *zap.Logger) *IdentitiesHandler {
	return &IdentitiesHandler{store: store, events: publisher, logger: logger}
}

// List returns every identity in the gallery with its metadata.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	workers, err := h.store.Workers()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read identities")
		return
	}
	respondJSON(w, http.StatusOK, workers)
}

// Register stores a new identity from a multipart form with the photo and
// full_name, employee_id, department and position fields.
func (h *IdentitiesHandler) Register(w http.ResponseWriter, r *http.Request) {
	photo, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	worker, err := h.store.Register(r.Context(), gallery.Registration{
		Worker: gallery.Worker{
			FullName:   r.FormValue("full_name"),
			EmployeeID: r.FormValue("employee_id"),
			Department: r.FormValue("department"),
			Position:   r.FormValue("position"),
		},
		Photo: photo,
	})
	if err != nil {
		h.logger.Warn("registration failed",
			zap.String("name", sanitizeForLog(r.FormValue("full_name"))), zap.Error(err))
		respondServiceError(w, err)
		return
	}

	h.events.Publish(events.Event{Type: events.TypeGallery, Message: worker.Key + " registered", Data: worker})
	respondJSON(w, http.StatusCreated, worker)
}

// Reload rebuilds the gallery from disk.
func (h *IdentitiesHandler) Reload(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.Reload(r.Context(), nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.events.Publish(events.Event{Type: events.TypeGallery, Message: "gallery reloaded", Data: report})
	respondJSON(w, http.StatusOK, report)
}
