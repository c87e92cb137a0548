package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elmarb/edurate/internal/contracts"
)

// HistoryStore reads a person's historical academic component scores
// out of previously stored ratings. Periods are "YYYY-YYYY" strings,
// so lexicographic order is chronological order.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// AcademicWeightedScores returns the weighted academic scores of the
// periods strictly before the given one, most recent first, capped at
// limit.
func (s *HistoryStore) AcademicWeightedScores(ctx context.Context, personID int64, before contracts.Period, limit int) ([]float64, error) {
	query := `
		SELECT COALESCE((components->'academic'->>'weighted_score')::double precision, 0)
		FROM ratings
		WHERE person_id = $1 AND period < $2
		ORDER BY period DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, personID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query academic history: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var score float64
		if err := rows.Scan(&score); err != nil {
			return nil, fmt.Errorf("failed to scan academic score: %w", err)
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read academic history: %w", err)
	}

	return scores, nil
}
