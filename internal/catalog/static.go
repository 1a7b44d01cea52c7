package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
)

// TakenFunc reports whether a pokemon is already committed in a season.
// The Postgres gateway derives this from draft_picks; Static delegates to
// whatever pick store backs the test or seed environment.
type TakenFunc func(seasonID int64, pokemonID int) bool

// Static is an in-memory Gateway used by tests and seed tooling.
type Static struct {
	mu      sync.RWMutex
	entries map[int64]map[int]Entry
	taken   TakenFunc
}

// NewStatic builds a Static gateway over per-season pool entries.
func NewStatic(entries map[int64][]Entry) *Static {
	byID := make(map[int64]map[int]Entry, len(entries))
	for season, list := range entries {
		m := make(map[int]Entry, len(list))
		for _, e := range list {
			m[e.PokemonID] = e
		}
		byID[season] = m
	}
	return &Static{entries: byID, taken: func(int64, int) bool { return false }}
}

var _ Gateway = (*Static)(nil)

// SetTakenFunc wires the availability check to a pick store.
func (s *Static) SetTakenFunc(fn TakenFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taken = fn
}

func (s *Static) IsAvailable(_ context.Context, seasonID int64, pokemonID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[seasonID][pokemonID]
	if !ok || !e.IsLegal {
		return false, nil
	}
	return !s.taken(seasonID, pokemonID), nil
}

func (s *Static) IsLegal(_ context.Context, seasonID int64, pokemonID int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[seasonID][pokemonID]
	return ok && e.IsLegal, nil
}

func (s *Static) GetEntry(_ context.Context, seasonID int64, pokemonID int) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[seasonID][pokemonID]
	if !ok {
		return nil, drafterrs.NotFound("pokemon %d not in season %d pool", pokemonID, seasonID)
	}
	return &e, nil
}

func (s *Static) DefaultAvailable(_ context.Context, seasonID int64) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []Entry
	for _, e := range s.entries[seasonID] {
		if e.IsLegal && !s.taken(seasonID, e.PokemonID) {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return nil, drafterrs.NotFound("season %d pool is exhausted", seasonID)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Cost != candidates[j].Cost {
			return candidates[i].Cost < candidates[j].Cost
		}
		return candidates[i].PokemonID < candidates[j].PokemonID
	})
	e := candidates[0]
	return &e, nil
}
