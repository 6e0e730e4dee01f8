// Package preprocess cleans a raw daily price series and derives return features.
package preprocess

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/stockcast/internal/contracts"
)

// Preprocess drops incomplete rows, orders the remainder by date and derives
// simple and log returns. The last row for a duplicated date wins.
// Empty input, or input where every row is dropped, yields an empty slice.
func Preprocess(raw []contracts.PriceBar) []contracts.PreprocessedPoint {
	byDate := make(map[time.Time]float64, len(raw))
	for _, bar := range raw {
		if !bar.Complete() {
			continue
		}
		byDate[dayKey(bar.Date)] = *bar.Close
	}

	points := make([]contracts.PreprocessedPoint, 0, len(byDate))
	for date, closePrice := range byDate {
		points = append(points, contracts.PreprocessedPoint{Date: date, Close: closePrice})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	derive(points)
	return points
}

// Reprocess re-derives features of an already preprocessed series.
// Rows with a non-finite close are dropped. Applied to its own output it is a no-op.
func Reprocess(series []contracts.PreprocessedPoint) []contracts.PreprocessedPoint {
	raw := make([]contracts.PriceBar, 0, len(series))
	for _, p := range series {
		c := p.Close
		if math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		// Only Close is carried; the other fields just need to be present.
		raw = append(raw, contracts.PriceBar{
			Date:   p.Date,
			Open:   &c,
			High:   &c,
			Low:    &c,
			Close:  &c,
			Volume: contracts.Float(0),
		})
	}
	return Preprocess(raw)
}

// Closes returns the close column of a preprocessed series
func Closes(series []contracts.PreprocessedPoint) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Close
	}
	return out
}

// Returns collects the non-nil simple returns of a series
func Returns(series []contracts.PreprocessedPoint) []float64 {
	out := make([]float64, 0, len(series))
	for _, p := range series {
		if p.Returns != nil {
			out = append(out, *p.Returns)
		}
	}
	return out
}

func derive(points []contracts.PreprocessedPoint) {
	for i := range points {
		if i == 0 {
			points[i].Returns = nil
			points[i].LogReturns = nil
			continue
		}
		prev := points[i-1].Close
		if prev == 0 {
			// undefined return; keep the row, leave features empty
			points[i].Returns = nil
			points[i].LogReturns = nil
			continue
		}
		r := points[i].Close/prev - 1
		points[i].Returns = &r
		points[i].LogReturns = nil
		if 1+r > 0 {
			// ln is undefined for a close at or across zero
			lr := math.Log1p(r)
			points[i].LogReturns = &lr
		}
	}
}

// dayKey normalizes a timestamp to UTC midnight of its calendar day
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
