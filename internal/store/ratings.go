package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elmarb/edurate/internal/contracts"
)

// RatingStore persists aggregated rating results in the ratings table.
// Component scores and the yearly breakdown are stored as jsonb; the
// rank columns are written separately after ranking.
type RatingStore struct {
	pool *pgxpool.Pool
}

// NewRatingStore creates a new rating store.
func NewRatingStore(pool *pgxpool.Pool) *RatingStore {
	return &RatingStore{pool: pool}
}

// Upsert writes the rating of one person for one period as a single
// atomic statement keyed by (person_id, period). Rank columns are
// cleared: a freshly computed rating has no rank until its cohort is
// ranked again.
func (s *RatingStore) Upsert(ctx context.Context, result *contracts.RatingResult) error {
	componentsJSON, err := json.Marshal(result.Components)
	if err != nil {
		return fmt.Errorf("failed to marshal components: %w", err)
	}
	breakdownJSON, err := json.Marshal(result.YearlyBreakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal yearly breakdown: %w", err)
	}

	query := `
		INSERT INTO ratings (
			person_id, institution_id, period, components, growth_bonus,
			total_score, yearly_breakdown, status, computed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (person_id, period) DO UPDATE SET
			institution_id = EXCLUDED.institution_id,
			components = EXCLUDED.components,
			growth_bonus = EXCLUDED.growth_bonus,
			total_score = EXCLUDED.total_score,
			yearly_breakdown = EXCLUDED.yearly_breakdown,
			status = EXCLUDED.status,
			computed_at = EXCLUDED.computed_at,
			rank_school = NULL,
			rank_sector = NULL,
			rank_region = NULL,
			rank_subject = NULL
	`

	_, err = s.pool.Exec(ctx, query,
		result.PersonID, result.InstitutionID, result.Period,
		componentsJSON, result.GrowthBonus, result.TotalScore,
		breakdownJSON, result.Status, result.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}

	return nil
}

// Get returns the stored rating of one person for one period, or nil
// when none exists.
func (s *RatingStore) Get(ctx context.Context, personID int64, period contracts.Period) (*contracts.RatingResult, error) {
	query := `
		SELECT person_id, institution_id, period, components, growth_bonus,
		       total_score, yearly_breakdown, status, computed_at,
		       rank_school, rank_sector, rank_region, rank_subject
		FROM ratings
		WHERE person_id = $1 AND period = $2
	`

	result, err := scanRating(s.pool.QueryRow(ctx, query, personID, period))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}

	return result, nil
}

// ListByPeriod returns the stored ratings of the period restricted to
// the given institutions, ordered by person id.
func (s *RatingStore) ListByPeriod(ctx context.Context, period contracts.Period, institutionIDs []int64) ([]*contracts.RatingResult, error) {
	if len(institutionIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT person_id, institution_id, period, components, growth_bonus,
		       total_score, yearly_breakdown, status, computed_at,
		       rank_school, rank_sector, rank_region, rank_subject
		FROM ratings
		WHERE period = $1 AND institution_id = ANY($2)
		ORDER BY person_id
	`

	rows, err := s.pool.Query(ctx, query, period, institutionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var results []*contracts.RatingResult
	for rows.Next() {
		result, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}

	return results, nil
}

// UpdateRanks writes the four rank columns of the given results in one
// transaction, so readers never observe a half-ranked cohort.
func (s *RatingStore) UpdateRanks(ctx context.Context, results []*contracts.RatingResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE ratings SET
			rank_school = $3,
			rank_sector = $4,
			rank_region = $5,
			rank_subject = $6
		WHERE person_id = $1 AND period = $2
	`

	for _, r := range results {
		_, err := tx.Exec(ctx, query,
			r.PersonID, r.Period,
			r.RankSchool, r.RankSector, r.RankRegion, r.RankSubject,
		)
		if err != nil {
			return fmt.Errorf("failed to update ranks of person %d: %w", r.PersonID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func scanRating(row pgx.Row) (*contracts.RatingResult, error) {
	var result contracts.RatingResult
	var componentsJSON, breakdownJSON []byte

	err := row.Scan(
		&result.PersonID, &result.InstitutionID, &result.Period,
		&componentsJSON, &result.GrowthBonus, &result.TotalScore,
		&breakdownJSON, &result.Status, &result.ComputedAt,
		&result.RankSchool, &result.RankSector, &result.RankRegion, &result.RankSubject,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(componentsJSON, &result.Components); err != nil {
		return nil, fmt.Errorf("failed to unmarshal components: %w", err)
	}
	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &result.YearlyBreakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yearly breakdown: %w", err)
		}
	}

	return &result, nil
}
