package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InstitutionStore resolves scopes over the institutions table, an
// adjacency-list tree of regions, sectors and schools.
type InstitutionStore struct {
	pool *pgxpool.Pool
}

// NewInstitutionStore creates a new institution store.
func NewInstitutionStore(pool *pgxpool.Pool) *InstitutionStore {
	return &InstitutionStore{pool: pool}
}

// DescendantIDs returns the transitive descendants of the institution,
// the institution itself included.
func (s *InstitutionStore) DescendantIDs(ctx context.Context, institutionID int64) ([]int64, error) {
	query := `
		WITH RECURSIVE subtree AS (
			SELECT id FROM institutions WHERE id = $1
			UNION ALL
			SELECT i.id
			FROM institutions i
			JOIN subtree s ON i.parent_id = s.id
		)
		SELECT id FROM subtree ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query institution subtree: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan institution id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read institution subtree: %w", err)
	}

	return ids, nil
}

// AncestorAtLevel walks up the tree from the institution and returns
// the ancestor carrying the given level, or 0 when none exists. The
// institution itself qualifies when it already sits at that level.
func (s *InstitutionStore) AncestorAtLevel(ctx context.Context, institutionID int64, level int) (int64, error) {
	query := `
		WITH RECURSIVE chain AS (
			SELECT id, parent_id, level FROM institutions WHERE id = $1
			UNION ALL
			SELECT i.id, i.parent_id, i.level
			FROM institutions i
			JOIN chain c ON i.id = c.parent_id
		)
		SELECT id FROM chain WHERE level = $2 LIMIT 1
	`

	var id int64
	err := s.pool.QueryRow(ctx, query, institutionID, level).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve ancestor at level %d: %w", level, err)
	}

	return id, nil
}
