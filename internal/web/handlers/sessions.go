package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/capture"
	"github.com/kozaktomas/presence-station/internal/station"
)

// SessionsHandler exposes capture sessions and one-shot recognition.
type SessionsHandler struct {
	svc    *station.Service
	logger *zap.Logger
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(svc *station.Service, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, logger: logger}
}

type openSessionRequest struct {
	Station string `json:"station"`
}

type outcomeResponse struct {
	Outcome attendance.Outcome `json:"outcome"`
	Message string             `json:"message"`
}

// Open starts a capture session. The body is optional.
func (h *SessionsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}

	sess, err := h.svc.OpenSession(req.Station)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// List returns the open sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.svc.Sessions()
	if sessions == nil {
		sessions = []*capture.Session[station.Candidate]{}
	}
	respondJSON(w, http.StatusOK, sessions)
}

// SubmitFrame runs one frame through the session's gate.
func (h *SessionsHandler) SubmitFrame(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.SubmitFrame(r.Context(), chi.URLParam(r, "id"), image)
	if err != nil {
		h.logger.Debug("frame rejected", zap.Error(err))
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// Captured returns the frame held by the session as JPEG.
func (h *SessionsHandler) Captured(w http.ResponseWriter, r *http.Request) {
	cand, err := h.svc.Captured(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(cand.Frame)
}

// Retake drops the captured frame.
func (h *SessionsHandler) Retake(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Retake(chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Confirm records attendance for the captured frame.
func (h *SessionsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome, Message: outcome.Message()})
}

// Close cancels a session without recording anything.
func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Snapshot recognises a single image and records attendance immediately.
func (h *SessionsHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	image, err := readImage(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.svc.Snapshot(r.Context(), image)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, outcomeResponse{Outcome: outcome, Message: outcome.Message()})
}
