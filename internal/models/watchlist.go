package models

// Watchlist is a team's ordered list of preferred pokemon. It is advisory:
// the engine only consults it when the auto-pick timeout policy is active.
type Watchlist struct {
	SeasonID   int64 `json:"season_id" db:"season_id"`
	TeamID     int64 `json:"team_id" db:"team_id"`
	PokemonIDs []int `json:"pokemon_ids" db:"-"`
}
