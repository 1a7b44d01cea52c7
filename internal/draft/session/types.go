package session

import (
	"time"

	"github.com/jmorrisey/pokedraft/internal/models"
)

// CreateSessionRequest carries the commissioner's draft settings for a season.
type CreateSessionRequest struct {
	SeasonID       int64            `json:"season_id"`
	CommissionerID int64            `json:"commissioner_id"`
	DraftType      models.DraftType `json:"draft_type"`
	PickTimerSec   *int             `json:"pick_timer_sec,omitempty"`
	Rounds         *int             `json:"rounds,omitempty"`
	CustomOrder    []int64          `json:"custom_order,omitempty"`
	StartsAt       *time.Time       `json:"starts_at,omitempty"`
}

// AddParticipantRequest registers a team for the season draft.
type AddParticipantRequest struct {
	SeasonID      int64 `json:"season_id"`
	TeamID        int64 `json:"team_id"`
	ManagerUserID int64 `json:"manager_user_id"`
	DraftPosition int   `json:"draft_position"`
}
