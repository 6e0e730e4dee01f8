// Package visualization draws historical and forecast prices to a PNG artifact.
package visualization

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/wonny/stockcast/internal/contracts"
)

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 6 * vg.Inch

	fileSuffix = "_forecast.png"
)

var forecastColor = color.RGBA{R: 220, G: 30, B: 30, A: 255}

// Renderer writes <SYMBOL>_forecast.png into a fixed directory
type Renderer struct {
	dir string
	log zerolog.Logger
}

// NewRenderer creates a renderer writing into dir
func NewRenderer(dir string, log zerolog.Logger) *Renderer {
	return &Renderer{
		dir: dir,
		log: log.With().Str("component", "visualization.renderer").Logger(),
	}
}

// Render draws the chart and returns the artifact file name.
// The file is written to a temp file and renamed into place, so readers never
// see a partial image; concurrent renders of one symbol leave the last writer's chart.
func (r *Renderer) Render(ctx context.Context, state *contracts.AnalysisState) (string, error) {
	if !state.HasForecast() {
		return "", fmt.Errorf("render: %w", contracts.ErrInsufficientData)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", contracts.ErrRenderFailure, err)
	}

	p, err := buildPlot(state)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contracts.ErrRenderFailure, err)
	}

	name := FileName(state.Symbol())
	if err := r.writeAtomic(p, name); err != nil {
		return "", fmt.Errorf("%w: %v", contracts.ErrRenderFailure, err)
	}

	r.log.Info().Str("symbol", state.Symbol()).Str("file", name).Msg("chart rendered")
	return name, nil
}

func (r *Renderer) writeAtomic(p *plot.Plot, name string) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".tmp-"+strings.TrimSuffix(name, ".png")+"-*.png")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := wt.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(r.dir, name)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func buildPlot(state *contracts.AnalysisState) (*plot.Plot, error) {
	history := make(plotter.XYs, len(state.PreprocessedSeries))
	for i, pt := range state.PreprocessedSeries {
		history[i].X = float64(pt.Date.Unix())
		history[i].Y = pt.Close
	}

	predicted := make(plotter.XYs, len(state.Forecast))
	for i, pt := range state.Forecast {
		predicted[i].X = float64(pt.Date.Unix())
		predicted[i].Y = pt.PredictedClose
	}

	p := plot.New()
	p.Title.Text = state.Symbol() + " Price Forecast"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	histLine, err := plotter.NewLine(history)
	if err != nil {
		return nil, fmt.Errorf("historical line: %w", err)
	}
	histLine.Width = vg.Points(1.5)

	predLine, err := plotter.NewLine(predicted)
	if err != nil {
		return nil, fmt.Errorf("forecast line: %w", err)
	}
	predLine.Width = vg.Points(1.5)
	predLine.Color = forecastColor
	predLine.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(histLine, predLine)
	p.Legend.Add("Historical Prices", histLine)
	p.Legend.Add("Predicted Prices", predLine)

	return p, nil
}

// FileName returns the artifact name for a symbol.
// Path separators and other unsafe runes become '_' and ".." is broken up,
// so the name always stays inside the artifact directory.
func FileName(symbol string) string {
	return SafeSymbol(symbol) + fileSuffix
}

// SafeSymbol maps a ticker to a filesystem-safe token
func SafeSymbol(symbol string) string {
	symbol = contracts.NormalizeSymbol(symbol)
	safe := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case r == '.' || r == '-' || r == '^' || r == '=':
			return r
		default:
			return '_'
		}
	}, symbol)
	safe = strings.ReplaceAll(safe, "..", "__")
	safe = strings.TrimLeft(safe, ".")
	if safe == "" {
		return "UNKNOWN"
	}
	return safe
}

// IsArtifactName reports whether name could have been produced by FileName
func IsArtifactName(name string) bool {
	if !strings.HasSuffix(name, fileSuffix) {
		return false
	}
	base := strings.TrimSuffix(name, fileSuffix)
	return base != "" && SafeSymbol(base) == base
}
