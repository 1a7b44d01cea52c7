// Package events holds the JSON payloads carried by realtime draft events.
// They are shared by the hub, the websocket edge, and the NATS bridge.
package events

import (
	"time"

	"github.com/jmorrisey/pokedraft/internal/models"
)

// LobbyPayload confirms a new subscription. It is the first event pushed on
// every channel so clients can distinguish "connected" from "network stalled".
type LobbyPayload struct {
	SeasonID    int64     `json:"season_id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// StatePayload carries the authoritative session state after a transition.
type StatePayload struct {
	Session       models.DraftSession `json:"session"`
	OnClockTeamID int64               `json:"on_clock_team_id,omitempty"`
	LastPick      *models.Pick        `json:"last_pick,omitempty"`
}

// PoolPayload announces a pool availability delta.
type PoolPayload struct {
	SeasonID  int64 `json:"season_id"`
	PokemonID int   `json:"pokemon_id"`
	// Available is false when a pick consumed the entry, true when an undo
	// restored it.
	Available bool `json:"available"`
}

// WatchlistPayload announces a team's watchlist replacement.
type WatchlistPayload struct {
	SeasonID   int64 `json:"season_id"`
	TeamID     int64 `json:"team_id"`
	PokemonIDs []int `json:"pokemon_ids"`
}

// PresencePayload carries the current non-stale viewer set.
type PresencePayload struct {
	SeasonID int64   `json:"season_id"`
	UserIDs  []int64 `json:"user_ids"`
}
