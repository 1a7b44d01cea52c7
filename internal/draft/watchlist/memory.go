package watchlist

import (
	"context"
	"sync"
)

type key struct {
	seasonID int64
	teamID   int64
}

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu    sync.Mutex
	lists map[key][]int
}

// NewMemoryRepository returns an empty in-memory watchlist repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{lists: make(map[key][]int)}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Get(_ context.Context, seasonID, teamID int64) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.lists[key{seasonID, teamID}]...), nil
}

func (r *MemoryRepository) Replace(_ context.Context, seasonID, teamID int64, pokemonIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[key{seasonID, teamID}] = append([]int(nil), pokemonIDs...)
	return nil
}
