// Package gemini is the generative-text collaborator backed by the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/config"
	"github.com/wonny/stockcast/pkg/logger"
)

// Client generates text with a single Gemini model
// ⭐ SSOT: Gemini API calls happen here only
type Client struct {
	genai   *genai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *logger.Logger
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
}

// WithBaseURL points the client at a different API host (tests, proxies)
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// New creates a client from config. An empty API key is accepted; every call
// then fails with ErrAuth so the rest of the pipeline still runs.
func New(ctx context.Context, cfg config.GeminiConfig, log *logger.Logger, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}

	c := &Client{
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		logger:  log,
	}

	if cfg.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set; report generation will fail")
		return c, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if o.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}
	c.genai = client

	log.WithFields(map[string]interface{}{
		"model":   cfg.Model,
		"timeout": cfg.Timeout.String(),
		"rps":     rps,
	}).Info("Gemini client initialized")

	return c, nil
}

// Generate sends a single-turn prompt and returns the model's text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, genai.Text(prompt), nil)
}

// Chat sends a conversation with a system instruction
func (c *Client) Chat(ctx context.Context, system string, turns []contracts.ChatTurn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("chat: no messages")
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.RoleUser
		if t.Role == genai.RoleModel || t.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(t.Text)},
		})
	}

	var cfg *genai.GenerateContentConfig
	if system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}
	return c.generate(ctx, contents, cfg)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if c.genai == nil {
		return "", fmt.Errorf("%w: GEMINI_API_KEY is not configured", contracts.ErrAuth)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", contracts.ErrRateLimited, err)
	}

	start := time.Now()
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		c.logger.WithError(err).Warn("Gemini request failed")
		return "", classify(err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", c.model)
	}

	c.logger.WithFields(map[string]interface{}{
		"model":        c.model,
		"response_len": len(text),
		"duration":     time.Since(start).String(),
	}).Debug("Gemini response received")

	return text, nil
}

// extractText concatenates the text parts of the first candidate that has any
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

// classify maps API failures onto the shared error kinds
func classify(err error) error {
	var code int
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", contracts.ErrNetwork, err)
	default:
		return fmt.Errorf("%w: %v", contracts.ErrNetwork, err)
	}

	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", contracts.ErrRateLimited, err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %v", contracts.ErrAuth, err)
	case code == http.StatusBadRequest && mentionsAPIKey(err.Error()):
		return fmt.Errorf("%w: %v", contracts.ErrAuth, err)
	case code >= 500:
		return fmt.Errorf("%w: %v", contracts.ErrNetwork, err)
	default:
		return err
	}
}

func mentionsAPIKey(msg string) bool {
	msg = strings.ToUpper(msg)
	return strings.Contains(msg, "API KEY") || strings.Contains(msg, "API_KEY")
}
