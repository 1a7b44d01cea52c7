package models

import (
	"time"

	"github.com/google/uuid"
)

// PickSource records which actor committed a pick.
type PickSource string

const (
	PickSourceManager    PickSource = "manager"
	PickSourceSystemAuto PickSource = "system-auto"
	PickSourceAdminForce PickSource = "admin-force"
	// PickSourceSkip marks a turn that elapsed or was advanced with no
	// pokemon consumed. The slot number is still spent so overall numbering
	// stays gapless.
	PickSourceSkip PickSource = "skip"
)

// Pick is one committed draft pick. Rows are append-only; only Undo may
// remove a row, and only ever the most recent one. OverallPick is strictly
// increasing and gapless within a season.
type Pick struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SeasonID    int64     `json:"season_id" db:"season_id"`
	Round       int       `json:"round" db:"round"`
	PickInRound int       `json:"pick_in_round" db:"pick_in_round"`
	OverallPick int       `json:"overall_pick" db:"overall_pick"`
	TeamID      int64     `json:"team_id" db:"team_id"`
	// PokemonID is 0 for skip markers.
	PokemonID int        `json:"pokemon_id" db:"pokemon_id"`
	MadeBy    string     `json:"made_by" db:"made_by"`
	Source    PickSource `json:"source" db:"source"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Consumed reports whether the pick removed a pokemon from the season pool.
func (p *Pick) Consumed() bool {
	return p.Source != PickSourceSkip && p.PokemonID > 0
}
