package preprocess

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockcast/internal/contracts"
)

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func bar(day int, closePrice float64) contracts.PriceBar {
	return contracts.PriceBar{
		Date:   base.AddDate(0, 0, day),
		Open:   contracts.Float(closePrice),
		High:   contracts.Float(closePrice + 1),
		Low:    contracts.Float(closePrice - 1),
		Close:  contracts.Float(closePrice),
		Volume: contracts.Float(1000),
	}
}

func TestPreprocess_Empty(t *testing.T) {
	assert.Empty(t, Preprocess(nil))
	assert.Empty(t, Preprocess([]contracts.PriceBar{}))

	missing := bar(0, 10)
	missing.Close = nil
	assert.Empty(t, Preprocess([]contracts.PriceBar{missing}))
}

func TestPreprocess_DropsSortsAndDerives(t *testing.T) {
	missingVolume := bar(1, 999)
	missingVolume.Volume = nil
	nanOpen := bar(2, 999)
	nanOpen.Open = contracts.Float(math.NaN())

	raw := []contracts.PriceBar{
		bar(4, 110),
		missingVolume,
		bar(0, 100),
		nanOpen,
		bar(3, 105),
	}

	got := Preprocess(raw)
	require.Len(t, got, 3)

	assert.Equal(t, base, got[0].Date)
	assert.Equal(t, base.AddDate(0, 0, 3), got[1].Date)
	assert.Equal(t, base.AddDate(0, 0, 4), got[2].Date)

	assert.Nil(t, got[0].Returns)
	assert.Nil(t, got[0].LogReturns)

	require.NotNil(t, got[1].Returns)
	assert.InDelta(t, 0.05, *got[1].Returns, 1e-12)
	assert.InDelta(t, math.Log(1.05), *got[1].LogReturns, 1e-12)
	assert.InDelta(t, 110.0/105.0-1, *got[2].Returns, 1e-12)
}

func TestPreprocess_DuplicateDateLastWins(t *testing.T) {
	got := Preprocess([]contracts.PriceBar{bar(0, 100), bar(1, 101), bar(1, 102)})
	require.Len(t, got, 2)
	assert.Equal(t, 102.0, got[1].Close)
}

func TestPreprocess_LengthAndFirstReturn(t *testing.T) {
	tests := []struct {
		name string
		rows int
	}{
		{"single", 1},
		{"week", 5},
		{"month", 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([]contracts.PriceBar, tt.rows)
			for i := range raw {
				raw[i] = bar(i, 50+float64(i))
			}
			got := Preprocess(raw)
			assert.Len(t, got, tt.rows)
			assert.Nil(t, got[0].Returns)
			for _, p := range got[1:] {
				assert.NotNil(t, p.Returns)
			}
		})
	}
}

func TestReprocess_Idempotent(t *testing.T) {
	raw := []contracts.PriceBar{bar(2, 12), bar(0, 10), bar(1, 11), bar(1, 11.5), bar(5, 9)}
	once := Preprocess(raw)
	twice := Reprocess(once)
	thrice := Reprocess(twice)

	assert.Equal(t, once, twice)
	assert.Equal(t, twice, thrice)
}

func TestPreprocess_ZeroPreviousClose(t *testing.T) {
	got := Preprocess([]contracts.PriceBar{bar(0, 0), bar(1, 10)})
	require.Len(t, got, 2)
	assert.Nil(t, got[1].Returns)
}

func TestPreprocess_CloseAtOrBelowZero(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
	}{
		{"drop to zero", []float64{10, 0, 5}},
		{"negative close", []float64{10, -5}},
		{"negative to positive", []float64{-4, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([]contracts.PriceBar, len(tt.closes))
			for i, c := range tt.closes {
				raw[i] = bar(i, c)
			}
			got := Preprocess(raw)
			require.Len(t, got, len(tt.closes))

			for _, p := range got {
				if p.Returns != nil {
					assert.False(t, math.IsNaN(*p.Returns) || math.IsInf(*p.Returns, 0))
				}
				if p.LogReturns != nil {
					assert.False(t, math.IsNaN(*p.LogReturns) || math.IsInf(*p.LogReturns, 0))
				}
			}
			assert.Nil(t, got[1].LogReturns)

			state, err := contracts.NewAnalysisState("CL=F")
			require.NoError(t, err)
			state.RawSeries = raw
			state.PreprocessedSeries = got

			_, err = json.Marshal(state)
			assert.NoError(t, err)
		})
	}
}

func TestReturns(t *testing.T) {
	got := Preprocess([]contracts.PriceBar{bar(0, 100), bar(1, 110), bar(2, 99)})
	r := Returns(got)
	require.Len(t, r, 2)
	assert.InDelta(t, 0.1, r[0], 1e-12)
	assert.InDelta(t, -0.1, r[1], 1e-12)
	assert.Equal(t, []float64{100, 110, 99}, Closes(got))
}
