package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/capture"
	"github.com/kozaktomas/presence-station/internal/climate"
	"github.com/kozaktomas/presence-station/internal/constants"
	"github.com/kozaktomas/presence-station/internal/fingerprint"
	"github.com/kozaktomas/presence-station/internal/gallery"
	"github.com/kozaktomas/presence-station/internal/hardware"
	"github.com/kozaktomas/presence-station/internal/station"
	"github.com/kozaktomas/presence-station/internal/voice"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// photoField is the multipart field carrying an image.
const photoField = "photo"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a domain error to a status code and a user-facing status text.
func respondServiceError(w http.ResponseWriter, err error) {
	respondJSON(w, errorStatus(err), map[string]string{
		"error":  err.Error(),
		"status": station.StatusText(err),
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, capture.ErrSessionNotFound), errors.Is(err, hardware.ErrUnknownActuator):
		return http.StatusNotFound
	case errors.Is(err, capture.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, capture.ErrNothingCaptured):
		return http.StatusConflict
	case errors.Is(err, station.ErrInvalidFrame), errors.Is(err, gallery.ErrInvalidKey), errors.Is(err, voice.ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, fingerprint.ErrNoFace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrLogAppend):
		return http.StatusServiceUnavailable
	case errors.Is(err, voice.ErrNoAssistant):
		return http.StatusNotImplemented
	case errors.Is(err, climate.ErrActuator):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// readImage returns the image of a request. Multipart requests carry it in the
// "photo" field, anything else is treated as the raw image.
func readImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			return nil, fmt.Errorf("parse multipart form: %w", err)
		}
		file, _, err := r.FormFile(photoField)
		if err != nil {
			return nil, fmt.Errorf("missing %s field: %w", photoField, err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	return data, nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
