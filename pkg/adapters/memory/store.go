package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/simgym/pkg/domain"
)

// Store implements ports.ExperienceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[int][]domain.Experience
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[int][]domain.Experience),
	}
}

// Save keeps a copy of the records so later mutations by the caller are not visible.
func (s *Store) Save(ctx context.Context, episode int, records []domain.Experience) error {
	copied := make([]domain.Experience, len(records))
	copy(copied, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[episode] = copied
	return nil
}

// Load returns a copy of the saved records.
func (s *Store) Load(ctx context.Context, episode int) ([]domain.Experience, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.data[episode]
	if !ok {
		return nil, domain.ErrEpisodeNotFound
	}

	ret := make([]domain.Experience, len(records))
	copy(ret, records)
	return ret, nil
}

// List returns saved episodes in ascending order.
func (s *Store) List(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	episodes := make([]int, 0, len(s.data))
	for ep := range s.data {
		episodes = append(episodes, ep)
	}
	slices.Sort(episodes)
	return episodes, nil
}
