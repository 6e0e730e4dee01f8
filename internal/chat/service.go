// Package chat answers free-form questions about an analysis.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wonny/stockcast/internal/contracts"
)

// ErrEmptyMessage is returned for a blank question
var ErrEmptyMessage = errors.New("message is required")

// maxHistoryTurns bounds how much conversation is replayed to the model
const maxHistoryTurns = 20

const systemPrompt = `You are a professional financial analyst assistant.

Conversation Guidelines:
1. Provide clear, concise, and professional financial insights
2. Base responses on available data and context
3. Offer actionable advice when possible
4. Maintain a professional and helpful tone
5. If unsure about something, be transparent`

// Service builds the assistant conversation and delegates to a ChatGenerator
type Service struct {
	generator contracts.ChatGenerator
	log       zerolog.Logger
}

// NewService creates a chat service
func NewService(generator contracts.ChatGenerator, log zerolog.Logger) *Service {
	return &Service{
		generator: generator,
		log:       log.With().Str("component", "chat.service").Logger(),
	}
}

// Respond answers message. reportContext is an optional narrative report;
// history holds earlier [user, assistant] exchanges, oldest first.
func (s *Service) Respond(ctx context.Context, message, reportContext string, history [][]string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	turns := BuildTurns(message, history)
	reply, err := s.generator.Chat(ctx, BuildSystemPrompt(reportContext), turns)
	if err != nil {
		s.log.Warn().Err(err).Int("turns", len(turns)).Msg("chat generation failed")
		return "", fmt.Errorf("chat: %w", err)
	}
	return reply, nil
}

// BuildSystemPrompt appends the report, if any, to the assistant instructions
func BuildSystemPrompt(reportContext string) string {
	reportContext = strings.TrimSpace(reportContext)
	if reportContext == "" {
		return systemPrompt
	}
	return systemPrompt + "\n\nCurrent Financial Report Context:\n" + reportContext
}

// BuildTurns flattens history pairs and appends the new question.
// Malformed pairs are skipped; only the most recent turns are kept.
func BuildTurns(message string, history [][]string) []contracts.ChatTurn {
	turns := make([]contracts.ChatTurn, 0, 2*len(history)+1)
	for _, pair := range history {
		if len(pair) != 2 || strings.TrimSpace(pair[0]) == "" {
			continue
		}
		turns = append(turns, contracts.ChatTurn{Role: "user", Text: pair[0]})
		if strings.TrimSpace(pair[1]) != "" {
			turns = append(turns, contracts.ChatTurn{Role: "model", Text: pair[1]})
		}
	}
	if len(turns) > maxHistoryTurns {
		turns = turns[len(turns)-maxHistoryTurns:]
	}
	// a conversation must open with the user
	for len(turns) > 0 && turns[0].Role != "user" {
		turns = turns[1:]
	}
	return append(turns, contracts.ChatTurn{Role: "user", Text: message})
}
