package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PersonStore reads the person attributes rating needs from the
// persons table.
type PersonStore struct {
	pool *pgxpool.Pool
}

// NewPersonStore creates a new person store.
func NewPersonStore(pool *pgxpool.Pool) *PersonStore {
	return &PersonStore{pool: pool}
}

// School returns the school institution the person belongs to.
func (s *PersonStore) School(ctx context.Context, personID int64) (int64, error) {
	var institutionID int64
	err := s.pool.QueryRow(ctx,
		`SELECT institution_id FROM persons WHERE id = $1`,
		personID,
	).Scan(&institutionID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve school of person %d: %w", personID, err)
	}

	return institutionID, nil
}

// PrimarySubject returns the person's primary subject id, or nil when
// none is assigned.
func (s *PersonStore) PrimarySubject(ctx context.Context, personID int64) (*int64, error) {
	var subjectID *int64
	err := s.pool.QueryRow(ctx,
		`SELECT primary_subject_id FROM persons WHERE id = $1`,
		personID,
	).Scan(&subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve primary subject of person %d: %w", personID, err)
	}

	return subjectID, nil
}

// TeacherIDs lists the rateable persons of the given institutions in
// ascending id order.
func (s *PersonStore) TeacherIDs(ctx context.Context, institutionIDs []int64) ([]int64, error) {
	if len(institutionIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM persons WHERE institution_id = ANY($1) AND role = 'teacher' ORDER BY id`,
		institutionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan teacher id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read teacher list: %w", err)
	}

	return ids, nil
}
