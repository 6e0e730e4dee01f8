// Package report turns a finished forecast into a narrative through a text generator.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wonny/stockcast/internal/contracts"
)

// Composer builds the analysis prompt and delegates it to a TextGenerator
type Composer struct {
	generator contracts.TextGenerator
	log       zerolog.Logger
}

// NewComposer creates a composer. The generator carries its own API key,
// model and timeout.
func NewComposer(generator contracts.TextGenerator, log zerolog.Logger) *Composer {
	return &Composer{
		generator: generator,
		log:       log.With().Str("component", "report.composer").Logger(),
	}
}

// Compose returns the generator's text verbatim.
// Missing series fail with ErrInsufficientData before the generator is called;
// generator failures are wrapped in ErrReportGeneration.
func (c *Composer) Compose(ctx context.Context, state *contracts.AnalysisState) (string, error) {
	metrics, err := ComputeMetrics(state.PreprocessedSeries, state.Forecast)
	if err != nil {
		return "", fmt.Errorf("compose report: %w", err)
	}

	prompt := BuildPrompt(state.Symbol(), metrics, state.Forecast)

	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", state.Symbol()).Msg("text generation failed")
		return "", fmt.Errorf("%w: %w", contracts.ErrReportGeneration, err)
	}

	c.log.Info().
		Str("symbol", state.Symbol()).
		Float64("price_change_pct", metrics.PriceChangePct).
		Float64("volatility", metrics.Volatility).
		Int("report_len", len(text)).
		Msg("report composed")

	return text, nil
}

// BuildPrompt renders the analysis prompt
func BuildPrompt(symbol string, m Metrics, forecast []contracts.ForecastPoint) string {
	var b strings.Builder

	b.WriteString("Comprehensive Stock Analysis Report\n\n")
	fmt.Fprintf(&b, "Stock Symbol: %s\n", symbol)
	fmt.Fprintf(&b, "Last Closing Price: %.2f\n\n", m.LastClose)

	b.WriteString("Predicted Price Trajectory:\n")
	for _, p := range forecast {
		fmt.Fprintf(&b, "%s: %.2f\n", p.Date.Format("2006-01-02"), p.PredictedClose)
	}

	b.WriteString("\nKey Insights:\n")
	fmt.Fprintf(&b, "- Projected Price Change: %.2f%%\n", m.PriceChangePct)
	fmt.Fprintf(&b, "- Historical Volatility: %.2f%%\n\n", m.Volatility)

	b.WriteString("Detailed Market Analysis:\n")
	b.WriteString("Provide a comprehensive analysis of the stock's potential movement, ")
	b.WriteString("including fundamental and technical insights. Consider:\n")
	b.WriteString("1. Current market trends\n")
	b.WriteString("2. Potential growth factors\n")
	b.WriteString("3. Risk assessment\n")
	b.WriteString("4. Short-term and long-term investment outlook\n")

	return b.String()
}
