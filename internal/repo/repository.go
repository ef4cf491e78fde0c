package repo

import (
	"context"
	"errors"

	"github.com/probegate/probegate/internal/domain"
)

var ErrNotFound = errors.New("repo: run not found")

// RunStore persists run envelopes for report consumers (history panel,
// exporters). The engine hands a Run out once and never re-reads it for its
// own correctness. Swap in any DB adapter behind this port.
type RunStore interface {
	// Save upserts the run keyed by its ID.
	Save(ctx context.Context, r *domain.Run) error
	// Get returns ErrNotFound when the id is unknown.
	Get(ctx context.Context, id domain.RunID) (*domain.Run, error)
	// List returns runs newest-first, at most limit (<=0 means all).
	List(ctx context.Context, limit int) ([]*domain.Run, error)
}
