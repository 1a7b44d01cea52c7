package pick

import (
	"context"
	"sync"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
)

// MemoryRepository is an in-memory Repository for tests. It enforces the same
// one-commit-per-slot guarantee the database unique index provides.
type MemoryRepository struct {
	mu    sync.Mutex
	picks map[int64][]models.Pick
}

// NewMemoryRepository returns an empty in-memory pick repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{picks: make(map[int64][]models.Pick)}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Append(_ context.Context, p models.Pick) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.picks[p.SeasonID] {
		if existing.OverallPick == p.OverallPick {
			return drafterrs.Conflict("overall pick %d is already committed for season %d", p.OverallPick, p.SeasonID)
		}
	}
	r.picks[p.SeasonID] = append(r.picks[p.SeasonID], p)
	return nil
}

func (r *MemoryRepository) RemoveLast(_ context.Context, seasonID int64) (*models.Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	picks := r.picks[seasonID]
	if len(picks) == 0 {
		return nil, drafterrs.PreconditionFailed("season %d has no picks to undo", seasonID)
	}
	last := picks[len(picks)-1]
	r.picks[seasonID] = picks[:len(picks)-1]
	return &last, nil
}

func (r *MemoryRepository) ListBySeason(_ context.Context, seasonID int64) ([]models.Pick, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.Pick(nil), r.picks[seasonID]...), nil
}

func (r *MemoryRepository) IsPokemonTaken(_ context.Context, seasonID int64, pokemonID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.takenLocked(seasonID, pokemonID), nil
}

// Taken is the lock-taking form used to back catalog.TakenFunc in tests.
func (r *MemoryRepository) Taken(seasonID int64, pokemonID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takenLocked(seasonID, pokemonID)
}

func (r *MemoryRepository) takenLocked(seasonID int64, pokemonID int) bool {
	if pokemonID <= 0 {
		return false
	}
	for _, p := range r.picks[seasonID] {
		if p.PokemonID == pokemonID {
			return true
		}
	}
	return false
}
