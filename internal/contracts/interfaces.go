package contracts

import "context"

// MarketDataSource supplies raw daily OHLCV rows for a trailing window.
// Unknown symbols fail with ErrNotFound, transport failures with ErrNetwork.
type MarketDataSource interface {
	FetchDailySeries(ctx context.Context, symbol, lookback, interval string) ([]PriceBar, error)
}

// NewsScraper returns up to five headlines for a symbol.
// Callers treat any error as an empty list.
type NewsScraper interface {
	FetchHeadlines(ctx context.Context, symbol string) ([]string, error)
}

// TextGenerator turns a prompt into free text.
// Failures wrap ErrRateLimited, ErrNetwork or ErrAuth where they can be told apart.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// StageObserver receives pipeline progress events. It must not block.
type StageObserver interface {
	OnStage(event StageEvent)
}

// StageObserverFunc adapts a function to StageObserver
type StageObserverFunc func(event StageEvent)

// OnStage calls f(event)
func (f StageObserverFunc) OnStage(event StageEvent) {
	f(event)
}

// ChatTurn is one message of a conversation. Role is "user" or "model".
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatGenerator continues a conversation under a system instruction
type ChatGenerator interface {
	Chat(ctx context.Context, system string, turns []ChatTurn) (string, error)
}
