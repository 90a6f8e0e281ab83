package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/presence-station/internal/climate"
	"github.com/kozaktomas/presence-station/internal/hardware"
)

// ClimateHandler exposes the environmental controller.
type ClimateHandler struct {
	ctrl *climate.Controller
}

// NewClimateHandler creates a new climate handler.
func NewClimateHandler(ctrl *climate.Controller) *ClimateHandler {
	return &ClimateHandler{ctrl: ctrl}
}

// Get returns the controller state.
func (h *ClimateHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ctrl.State())
}

// Toggle flips the fan or the light like the physical buttons do.
func (h *ClimateHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := hardware.ParseActuator(chi.URLParam(r, "actuator"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	var st climate.ActuatorState
	switch id {
	case hardware.Fan:
		st, err = h.ctrl.ToggleFan(r.Context())
	case hardware.Light:
		st, err = h.ctrl.ToggleLight(r.Context())
	default:
		respondError(w, http.StatusBadRequest, "only fan and light can be toggled")
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}
