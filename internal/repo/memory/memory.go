package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/probegate/probegate/internal/domain"
	"github.com/probegate/probegate/internal/repo"
)

var _ repo.RunStore = (*Store)(nil)

// Store keeps runs in process memory. Default when no DATABASE_URL is set.
type Store struct {
	mu   sync.RWMutex
	runs map[domain.RunID]*domain.Run
}

func New() *Store {
	return &Store{runs: make(map[domain.RunID]*domain.Run, 16)}
}

func (m *Store) Save(ctx context.Context, r *domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.runs[r.ID] = &cp
	return nil
}

func (m *Store) Get(ctx context.Context, id domain.RunID) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *Store) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Run, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
