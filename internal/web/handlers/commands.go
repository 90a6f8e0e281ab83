package handlers

import (
	"net/http"

	"github.com/kozaktomas/presence-station/internal/voice"
)

// CommandsHandler routes text commands.
type CommandsHandler struct {
	router *voice.Router
}

// NewCommandsHandler creates a new commands handler.
func NewCommandsHandler(router *voice.Router) *CommandsHandler {
	return &CommandsHandler{router: router}
}

type commandRequest struct {
	Text string `json:"text"`
}

// Handle runs a device command or forwards a question to the assistant.
func (h *CommandsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	resp, err := h.router.HandleCommand(r.Context(), req.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
