// Package api is the HTTP boundary: webhook handlers for chat events,
// the callback-id codec, and the router glue.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/centsible/centsible/internal/api/respond"
	"github.com/centsible/centsible/internal/api/validate"
	"github.com/centsible/centsible/internal/orchestrator"
)

// Handler is the thin HTTP transport over the orchestrator. The upstream
// bot gateway POSTs chat events here; duplicate deliveries are processed
// as-is, there is no dedup.
type Handler struct {
	orch *orchestrator.Orchestrator
	log  zerolog.Logger
}

func NewHandler(orch *orchestrator.Orchestrator, log zerolog.Logger) *Handler {
	return &Handler{orch: orch, log: log}
}

type messageRequest struct {
	UserID    string `json:"userId"`
	ChatID    string `json:"chatId"`
	ProjectID string `json:"projectId"`
	Text      string `json:"text"`
}

type callbackRequest struct {
	UserID    string `json:"userId"`
	ChatID    string `json:"chatId"`
	ProjectID string `json:"projectId"`
	Data      string `json:"data"`
}

type replyResponse struct {
	Reply   string         `json:"reply"`
	Details map[string]any `json:"details,omitempty"`
}

// HandleMessage POST /api/messages
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Message(req.UserID, req.ChatID, req.ProjectID, req.Text); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}

	out := h.orch.HandleMessage(r.Context(), orchestrator.Inbound{
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		ProjectID: req.ProjectID,
		Text:      req.Text,
	})
	respond.WriteJSON(w, http.StatusOK, replyResponse{Reply: out.Text, Details: out.Details})
}

// HandleCallback POST /api/callbacks
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Callback(req.UserID, req.ChatID, req.ProjectID, req.Data); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	action, err := ParseCallback(req.Data)
	if err != nil {
		h.log.Warn().Err(err).Msg("rejected callback data")
		respond.WriteBadRequest(w, "unrecognized callback data")
		return
	}

	out := h.orch.HandleCallback(r.Context(), orchestrator.Inbound{
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		ProjectID: req.ProjectID,
	}, action)
	respond.WriteJSON(w, http.StatusOK, replyResponse{Reply: out.Text, Details: out.Details})
}
