// Package feedback stores user ratings of analyses.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/logger"
)

var (
	// ErrInvalid marks a rejected submission
	ErrInvalid = errors.New("invalid feedback")

	// ErrUnavailable is returned when no database is configured
	ErrUnavailable = errors.New("feedback storage is not configured")
)

// Entry is one submitted rating
type Entry struct {
	ID          int64     `json:"id,omitempty"`
	StockSymbol string    `json:"stock_symbol"`
	Rating      int       `json:"rating"`
	Comments    string    `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summary aggregates ratings, optionally for one symbol
type Summary struct {
	StockSymbol        string      `json:"stock_symbol,omitempty"`
	TotalFeedback      int         `json:"total_feedback"`
	AverageRating      float64     `json:"average_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// Store persists entries
type Store interface {
	Save(ctx context.Context, e Entry) (int64, error)
	Summary(ctx context.Context, symbol string) (*Summary, error)
}

// Service validates and records feedback
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates a feedback service. A nil store yields ErrUnavailable on every call.
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

// Available reports whether a store is configured
func (s *Service) Available() bool {
	return s.store != nil
}

// Submit validates and saves an entry
func (s *Service) Submit(ctx context.Context, symbol string, rating int, comments string) (*Entry, error) {
	if s.store == nil {
		return nil, ErrUnavailable
	}

	entry := Entry{
		StockSymbol: contracts.NormalizeSymbol(symbol),
		Rating:      rating,
		Comments:    strings.TrimSpace(comments),
		CreatedAt:   time.Now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.Save(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("save feedback: %w", err)
	}
	entry.ID = id

	s.logger.WithFields(map[string]interface{}{
		"symbol": entry.StockSymbol,
		"rating": entry.Rating,
	}).Info("Feedback recorded")

	return &entry, nil
}

// Summarize aggregates ratings; an empty symbol covers all feedback
func (s *Service) Summarize(ctx context.Context, symbol string) (*Summary, error) {
	if s.store == nil {
		return nil, ErrUnavailable
	}

	summary, err := s.store.Summary(ctx, contracts.NormalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("feedback summary: %w", err)
	}
	if summary.RatingDistribution == nil {
		summary.RatingDistribution = map[int]int{}
	}
	return summary, nil
}

// Validate checks rating bounds and the symbol
func (e Entry) Validate() error {
	if e.StockSymbol == "" {
		return fmt.Errorf("%w: stock_symbol is required", ErrInvalid)
	}
	if e.Rating < 1 || e.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5, got %d", ErrInvalid, e.Rating)
	}
	return nil
}
