package forecast

import (
	"errors"
	"fmt"
	"math"
)

var (
	errSingular    = errors.New("singular normal equations")
	errNonFinite   = errors.New("non-finite value")
	errShortSeries = errors.New("series too short for model order")
)

// ridgeScale is the relative diagonal load added to the normal equations.
// It keeps collinear lags (e.g. a perfectly linear trend) solvable.
const ridgeScale = 1e-8

// Model is a fitted ARIMA(p,d,0) model without intercept
type Model struct {
	P      int
	D      int
	Coeffs []float64 // phi_1..phi_p on the differenced series
	Shrunk bool      // least-squares fit was non-stationary and was shrunk

	history []float64 // original (undifferenced) observations
	diffs   []float64 // d-times differenced observations
}

// Fit estimates an ARIMA(p,d,0) model by conditional least squares.
// Explosive fits are shrunk to a stationary model before forecasting.
func Fit(values []float64, p, d int) (*Model, error) {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("input: %w", errNonFinite)
		}
	}

	diffs := append([]float64(nil), values...)
	for i := 0; i < d; i++ {
		diffs = difference(diffs)
	}
	if len(diffs) < p+1 {
		return nil, errShortSeries
	}

	coeffs, err := fitAR(diffs, p)
	if err != nil {
		return nil, err
	}
	coeffs, shrunk := stabilize(coeffs)

	return &Model{
		P:       p,
		D:       d,
		Coeffs:  coeffs,
		Shrunk:  shrunk,
		history: append([]float64(nil), values...),
		diffs:   diffs,
	}, nil
}

// Forecast projects the next steps observations on the original scale
func (m *Model) Forecast(steps int) ([]float64, error) {
	ext := append([]float64(nil), m.diffs...)
	for h := 0; h < steps; h++ {
		var next float64
		n := len(ext)
		for i, phi := range m.Coeffs {
			next += phi * ext[n-1-i]
		}
		ext = append(ext, next)
	}
	predicted := ext[len(m.diffs):]

	out := integrate(predicted, m.history, m.D)
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("forecast: %w", errNonFinite)
		}
	}
	return out, nil
}

// fitAR regresses y[t] on y[t-1..t-p] for t >= p
func fitAR(y []float64, p int) ([]float64, error) {
	if p == 0 {
		return nil, nil
	}

	// X'X and X'y accumulated directly
	xtx := make([][]float64, p)
	for i := range xtx {
		xtx[i] = make([]float64, p)
	}
	xty := make([]float64, p)

	for t := p; t < len(y); t++ {
		for i := 0; i < p; i++ {
			xi := y[t-1-i]
			xty[i] += xi * y[t]
			for j := 0; j < p; j++ {
				xtx[i][j] += xi * y[t-1-j]
			}
		}
	}

	var trace float64
	for i := 0; i < p; i++ {
		trace += xtx[i][i]
	}
	if trace == 0 {
		// All lags are zero: the flat series is its own best forecast.
		return make([]float64, p), nil
	}
	lambda := ridgeScale * trace / float64(p)
	for i := 0; i < p; i++ {
		xtx[i][i] += lambda
	}

	coeffs, err := solve(xtx, xty)
	if err != nil {
		return nil, err
	}
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficients: %w", errNonFinite)
		}
	}
	return coeffs, nil
}

// solve runs Gaussian elimination with partial pivoting on a copy of a|b
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range a {
		m[i] = append(append([]float64(nil), a[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-300 {
			return nil, errSingular
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			f := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}

func difference(v []float64) []float64 {
	if len(v) < 2 {
		return nil
	}
	out := make([]float64, len(v)-1)
	for i := 1; i < len(v); i++ {
		out[i-1] = v[i] - v[i-1]
	}
	return out
}

// integrate undoes d rounds of differencing, anchoring on the tail of history
func integrate(diffs, history []float64, d int) []float64 {
	if d == 0 {
		return append([]float64(nil), diffs...)
	}

	// tails[k] is the last value of history differenced k times
	levels := append([]float64(nil), history...)
	tails := make([]float64, d)
	for k := 0; k < d; k++ {
		tails[k] = levels[len(levels)-1]
		levels = difference(levels)
	}

	out := append([]float64(nil), diffs...)
	for k := d - 1; k >= 0; k-- {
		last := tails[k]
		for i := range out {
			last += out[i]
			out[i] = last
		}
	}
	return out
}
