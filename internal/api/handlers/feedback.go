package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/stockcast/internal/feedback"
	"github.com/wonny/stockcast/pkg/logger"
)

// FeedbackHandler serves feedback submission and summaries
type FeedbackHandler struct {
	service *feedback.Service
	logger  *logger.Logger
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(service *feedback.Service, log *logger.Logger) *FeedbackHandler {
	return &FeedbackHandler{service: service, logger: log}
}

// FeedbackRequest is the body of POST /submit-feedback
type FeedbackRequest struct {
	StockSymbol string `json:"stock_symbol"`
	Rating      int    `json:"rating"`
	Comments    string `json:"comments,omitempty"`
}

// Submit records a rating
// POST /submit-feedback
func (h *FeedbackHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.service.Submit(r.Context(), req.StockSymbol, req.Rating, req.Comments)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Feedback submitted successfully",
		"id":      entry.ID,
	})
}

// Summary returns rating statistics
// GET /feedback-summary?stock_symbol=AAPL
func (h *FeedbackHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize(r.Context(), r.URL.Query().Get("stock_symbol"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, summary)
}

func (h *FeedbackHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, feedback.ErrInvalid):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, feedback.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.WithError(err).Error("Feedback request failed")
		respondError(w, http.StatusInternalServerError, "Failed to process feedback")
	}
}
