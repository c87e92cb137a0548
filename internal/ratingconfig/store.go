package ratingconfig

import "context"

// Store persists the active rating configuration. Save replaces the
// active configuration atomically; Active returns the built-in defaults
// when nothing has been saved yet.
type Store interface {
	Active(ctx context.Context) (Config, error)
	Save(ctx context.Context, cfg Config) error
}
