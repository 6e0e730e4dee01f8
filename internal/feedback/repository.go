package feedback

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores feedback in PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a repository on an existing pool
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save inserts an entry and returns its id
func (r *Repository) Save(ctx context.Context, e Entry) (int64, error) {
	query := `
		INSERT INTO feedback (stock_symbol, rating, comments, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		RETURNING id`

	var id int64
	err := r.pool.QueryRow(ctx, query, e.StockSymbol, e.Rating, e.Comments, e.CreatedAt).Scan(&id)
	return id, err
}

// Summary counts ratings; an empty symbol covers every row
func (r *Repository) Summary(ctx context.Context, symbol string) (*Summary, error) {
	query := `
		SELECT rating, COUNT(*)
		FROM feedback
		WHERE ($1::text = '' OR stock_symbol = $1)
		GROUP BY rating
		ORDER BY rating`

	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var rating int16
		var count int64
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, err
		}
		counts[int(rating)] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summarize(symbol, counts), nil
}

// summarize derives totals from a rating histogram
func summarize(symbol string, counts map[int]int) *Summary {
	s := &Summary{
		StockSymbol:        symbol,
		RatingDistribution: counts,
	}
	var sum int
	for rating, n := range counts {
		s.TotalFeedback += n
		sum += rating * n
	}
	if s.TotalFeedback > 0 {
		s.AverageRating = float64(sum) / float64(s.TotalFeedback)
	}
	return s
}
