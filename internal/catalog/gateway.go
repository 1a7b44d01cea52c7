// Package catalog is the read-only query surface over a season's pokemon
// pool. The engine consults it for legality and availability; display
// metadata is used only to enrich responses, never for commit decisions.
package catalog

import "context"

// Entry is the display metadata for one pool pokemon.
type Entry struct {
	PokemonID int    `json:"pokemon_id" db:"pokemon_id"`
	Name      string `json:"name" db:"name"`
	SpriteURL string `json:"sprite_url" db:"sprite_url"`
	Cost      int    `json:"cost" db:"cost"`
	IsLegal   bool   `json:"is_legal" db:"is_legal"`
}

// Gateway defines what the draft engine needs from the pokemon catalog.
type Gateway interface {
	// IsAvailable reports whether the pokemon is in the season pool and not
	// yet committed by any pick.
	IsAvailable(ctx context.Context, seasonID int64, pokemonID int) (bool, error)
	// IsLegal reports whether season rules permit drafting the pokemon.
	IsLegal(ctx context.Context, seasonID int64, pokemonID int) (bool, error)
	// GetEntry returns display metadata for a pool pokemon.
	GetEntry(ctx context.Context, seasonID int64, pokemonID int) (*Entry, error)
	// DefaultAvailable returns the deterministic auto-pick fallback: the
	// available legal entry with the lowest cost, ties broken by lowest ID.
	DefaultAvailable(ctx context.Context, seasonID int64) (*Entry, error)
}
