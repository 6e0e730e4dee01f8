package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/stockcast/internal/contracts"
	"github.com/wonny/stockcast/pkg/logger"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	seen   []string
	failOn map[string]bool
}

func (f *fakeAnalyzer) RunAnalysis(ctx context.Context, symbol string) (*contracts.AnalysisState, error) {
	f.mu.Lock()
	f.seen = append(f.seen, symbol)
	f.mu.Unlock()

	state, err := contracts.NewAnalysisState(symbol)
	if err != nil {
		return nil, err
	}
	if f.failOn[state.Symbol()] {
		state.SetError(contracts.ErrNotFound)
		return state, nil
	}
	state.VisualizationRef = state.Symbol() + "_forecast.png"
	return state, nil
}

func TestWatchlistJob_Metadata(t *testing.T) {
	job := NewWatchlistJob(&fakeAnalyzer{}, nil, "0 0 18 * * 1-5", logger.NewNop())
	assert.Equal(t, "watchlist_refresh", job.Name())
	assert.Equal(t, "0 0 18 * * 1-5", job.Schedule())
}

func TestWatchlistJob_Run(t *testing.T) {
	tests := []struct {
		name    string
		symbols []string
		failOn  map[string]bool
		wantErr bool
	}{
		{"empty watchlist", nil, nil, false},
		{"all succeed", []string{"AAPL", "MSFT", "GOOG"}, nil, false},
		{"partial failure", []string{"AAPL", "NOPE"}, map[string]bool{"NOPE": true}, false},
		{"all fail", []string{"NOPE", "NADA"}, map[string]bool{"NOPE": true, "NADA": true}, true},
		{"invalid symbol", []string{"  "}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{failOn: tt.failOn}
			job := NewWatchlistJob(analyzer, tt.symbols, "@daily", logger.NewNop())

			err := job.Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.ElementsMatch(t, tt.symbols, analyzer.seen)
		})
	}
}

func TestWatchlistJob_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := NewWatchlistJob(&fakeAnalyzer{}, []string{"AAPL"}, "@daily", logger.NewNop())
	err := job.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
