package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wonny/stockcast/internal/chat"
	"github.com/wonny/stockcast/pkg/logger"
)

// Responder answers chat messages
type Responder interface {
	Respond(ctx context.Context, message, reportContext string, history [][]string) (string, error)
}

// ChatHandler serves the financial chat endpoint
type ChatHandler struct {
	responder Responder
	logger    *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(responder Responder, log *logger.Logger) *ChatHandler {
	return &ChatHandler{responder: responder, logger: log}
}

// ChatRequest is the body of POST /financial-chat
type ChatRequest struct {
	Message       string     `json:"message"`
	ReportContext string     `json:"report_context,omitempty"`
	History       [][]string `json:"history,omitempty"`
}

// Chat answers a question, optionally grounded on a report
// POST /financial-chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.responder.Respond(r.Context(), req.Message, req.ReportContext, req.History)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Chat response failed")
		respondError(w, http.StatusBadGateway, "Failed to generate response: "+err.Error())
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"response": reply})
}
