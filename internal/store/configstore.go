package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/elmarb/edurate/internal/ratingconfig"
)

// ConfigStore persists the active rating configuration as a single
// jsonb row, alongside its content hash for change auditing.
type ConfigStore struct {
	pool *pgxpool.Pool
}

// NewConfigStore creates a new configuration store.
func NewConfigStore(pool *pgxpool.Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Active returns the stored configuration, or the built-in defaults
// when nothing has been saved yet. A stored configuration that fails
// validation is an error, not a silent fallback.
func (s *ConfigStore) Active(ctx context.Context) (ratingconfig.Config, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM rating_configurations WHERE id = 1`,
	).Scan(&payload)
	if err == pgx.ErrNoRows {
		return ratingconfig.Default(), nil
	}
	if err != nil {
		return ratingconfig.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := ratingconfig.Default()
	if err := json.Unmarshal(payload, &cfg); err != nil {
		return ratingconfig.Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ratingconfig.Config{}, fmt.Errorf("stored configuration is invalid: %w", err)
	}

	return cfg, nil
}

// Save replaces the active configuration atomically.
func (s *ConfigStore) Save(ctx context.Context, cfg ratingconfig.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid configuration: %w", err)
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	hash, err := ratingconfig.Hash(&cfg)
	if err != nil {
		return fmt.Errorf("failed to hash configuration: %w", err)
	}

	query := `
		INSERT INTO rating_configurations (id, payload, hash, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			hash = EXCLUDED.hash,
			updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, payload, hash); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	return nil
}
