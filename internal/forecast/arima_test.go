package forecast

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDifferenceAndIntegrate(t *testing.T) {
	history := []float64{1, 3, 6, 10}
	d1 := difference(history)
	assert.Equal(t, []float64{2, 3, 4}, d1)

	// continuing the first differences 5, 6 from the last level 10
	assert.Equal(t, []float64{15, 21}, integrate([]float64{5, 6}, history, 1))

	// second differences of 1 continue the quadratic: 15, 21
	assert.Equal(t, []float64{15, 21}, integrate([]float64{1, 1}, history, 2))

	assert.Equal(t, []float64{7}, integrate([]float64{7}, history, 0))
}

func TestSolve(t *testing.T) {
	a := [][]float64{
		{0, 2, 1},
		{1, 1, 1},
		{2, 1, 0},
	}
	b := []float64{7, 6, 4}
	x, err := solve(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, x[0], 1e-12)
	assert.InDelta(t, 2.0, x[1], 1e-12)
	assert.InDelta(t, 3.0, x[2], 1e-12)

	_, err = solve([][]float64{{1, 2}, {2, 4}}, []float64{1, 2})
	assert.ErrorIs(t, err, errSingular)
}

func TestFit_RecoversARCoefficient(t *testing.T) {
	// y[t] = 0.6 y[t-1] + e[t] on differences
	rng := rand.New(rand.NewSource(7))
	diffs := []float64{0}
	for len(diffs) < 2000 {
		n := len(diffs)
		diffs = append(diffs, 0.6*diffs[n-1]+rng.NormFloat64())
	}
	levels := make([]float64, len(diffs)+1)
	levels[0] = 100
	for i, d := range diffs {
		levels[i+1] = levels[i] + d
	}

	model, err := Fit(levels, 1, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, model.Coeffs[0], 0.08)
}

func TestFit_LinearTrendIsSolvable(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100 + float64(i)
	}

	model, err := Fit(values, 5, 1)
	require.NoError(t, err)

	out, err := model.Forecast(7)
	require.NoError(t, err)
	require.Len(t, out, 7)

	prev := values[len(values)-1]
	for _, v := range out {
		assert.False(t, math.IsNaN(v))
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestFit_FlatSeries(t *testing.T) {
	values := []float64{50, 50, 50, 50, 50, 50, 50, 50, 50}
	model, err := Fit(values, 5, 1)
	require.NoError(t, err)

	out, err := model.Forecast(3)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50, 50}, out)
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit([]float64{1, 2, 3}, 5, 1)
	assert.ErrorIs(t, err, errShortSeries)

	_, err = Fit([]float64{1, 2, math.Inf(1), 4, 5, 6, 7, 8}, 5, 1)
	assert.ErrorIs(t, err, errNonFinite)
}
