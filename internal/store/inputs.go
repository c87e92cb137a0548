package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elmarb/edurate/internal/contracts"
)

// Repositories for the raw performance inputs the component calculators
// read. Absence of records is an empty result, never an error.

// periodEnd returns the first instant after the academic year, i.e.
// September 1 of the closing calendar year. Certificate and award
// lookups treat records before this cutoff as belonging to the year.
func periodEnd(period contracts.Period) (time.Time, error) {
	parts := strings.SplitN(string(period), "-", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed period %q", period)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed period %q", period)
	}
	return time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC), nil
}

// ClassResultStore reads class-level academic outcomes.
type ClassResultStore struct {
	pool *pgxpool.Pool
}

func NewClassResultStore(pool *pgxpool.Pool) *ClassResultStore {
	return &ClassResultStore{pool: pool}
}

func (s *ClassResultStore) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.ClassResult, error) {
	query := `
		SELECT person_id, period, class_name, avg_score, student_count
		FROM class_results
		WHERE person_id = $1 AND period = $2
		ORDER BY class_name
	`

	rows, err := s.pool.Query(ctx, query, personID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list class results: %w", err)
	}

	return collectRows(rows, func(row pgx.Row) (*contracts.ClassResult, error) {
		var r contracts.ClassResult
		err := row.Scan(&r.PersonID, &r.Period, &r.ClassName, &r.AvgScore, &r.StudentCount)
		return &r, err
	})
}

// LessonObservationStore reads observation-protocol scores.
type LessonObservationStore struct {
	pool *pgxpool.Pool
}

func NewLessonObservationStore(pool *pgxpool.Pool) *LessonObservationStore {
	return &LessonObservationStore{pool: pool}
}

func (s *LessonObservationStore) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.LessonObservation, error) {
	query := `
		SELECT person_id, period, final_score, observed_at
		FROM lesson_observations
		WHERE person_id = $1 AND period = $2
		ORDER BY observed_at
	`

	rows, err := s.pool.Query(ctx, query, personID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list lesson observations: %w", err)
	}

	return collectRows(rows, func(row pgx.Row) (*contracts.LessonObservation, error) {
		var o contracts.LessonObservation
		err := row.Scan(&o.PersonID, &o.Period, &o.FinalScore, &o.ObservedAt)
		return &o, err
	})
}

// AssessmentStore reads qualifying assessment results.
type AssessmentStore struct {
	pool *pgxpool.Pool
}

func NewAssessmentStore(pool *pgxpool.Pool) *AssessmentStore {
	return &AssessmentStore{pool: pool}
}

func (s *AssessmentStore) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.AssessmentScore, error) {
	query := `
		SELECT person_id, period, type, score, max_score, taken_at
		FROM assessments
		WHERE person_id = $1 AND period = $2
		ORDER BY taken_at
	`

	rows, err := s.pool.Query(ctx, query, personID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	return collectRows(rows, func(row pgx.Row) (*contracts.AssessmentScore, error) {
		var a contracts.AssessmentScore
		err := row.Scan(&a.PersonID, &a.Period, &a.Type, &a.Score, &a.MaxScore, &a.TakenAt)
		return &a, err
	})
}

// CertificateStore reads earned certificates.
type CertificateStore struct {
	pool *pgxpool.Pool
}

func NewCertificateStore(pool *pgxpool.Pool) *CertificateStore {
	return &CertificateStore{pool: pool}
}

// ListActiveThrough returns the active certificates issued before the
// end of the academic year.
func (s *CertificateStore) ListActiveThrough(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.Certificate, error) {
	cutoff, err := periodEnd(period)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT person_id, type, issued_at, active
		FROM certificates
		WHERE person_id = $1 AND active AND issued_at < $2
		ORDER BY issued_at
	`

	rows, err := s.pool.Query(ctx, query, personID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	return collectRows(rows, func(row pgx.Row) (*contracts.Certificate, error) {
		var c contracts.Certificate
		err := row.Scan(&c.PersonID, &c.Type, &c.IssuedAt, &c.Active)
		return &c, err
	})
}

// OlympiadStore reads olympiad achievements.
type OlympiadStore struct {
	pool *pgxpool.Pool
}

func NewOlympiadStore(pool *pgxpool.Pool) *OlympiadStore {
	return &OlympiadStore{pool: pool}
}

func (s *OlympiadStore) ListByPersonAndPeriod(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.OlympiadResult, error) {
	query := `
		SELECT person_id, period, level, placement
		FROM olympiad_results
		WHERE person_id = $1 AND period = $2
		ORDER BY level, placement
	`

	rows, err := s.pool.Query(ctx, query, personID, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list olympiad results: %w", err)
	}

	return collectRows(rows, func(row pgx.Row) (*contracts.OlympiadResult, error) {
		var o contracts.OlympiadResult
		err := row.Scan(&o.PersonID, &o.Period, &o.Level, &o.Placement)
		return &o, err
	})
}

// AwardStore reads received awards.
type AwardStore struct {
	pool *pgxpool.Pool
}

func NewAwardStore(pool *pgxpool.Pool) *AwardStore {
	return &AwardStore{pool: pool}
}

// ListThrough returns the awards received before the end of the
// academic year.
func (s *AwardStore) ListThrough(ctx context.Context, personID int64, period contracts.Period) ([]*contracts.Award, error) {
	cutoff, err := periodEnd(period)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT person_id, type, awarded_at
		FROM awards
		WHERE person_id = $1 AND awarded_at < $2
		ORDER BY awarded_at
	`

	rows, err := s.pool.Query(ctx, query, personID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}

	return collectRows(rows, func(row pgx.Row) (*contracts.Award, error) {
		var a contracts.Award
		err := row.Scan(&a.PersonID, &a.Type, &a.AwardedAt)
		return &a, err
	})
}

// collectRows drains a query result through scan, closing the rows.
func collectRows[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var records []*T
	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return records, nil
}
