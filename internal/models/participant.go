package models

// Participant is a team's entry in a season draft. DraftPosition is 1-based,
// unique within the session, and defines the base turn order. Positions are
// immutable once drafting starts.
type Participant struct {
	SeasonID      int64 `json:"season_id" db:"season_id"`
	TeamID        int64 `json:"team_id" db:"team_id"`
	ManagerUserID int64 `json:"manager_user_id" db:"manager_user_id"`
	DraftPosition int   `json:"draft_position" db:"draft_position"`
	IsReady       bool  `json:"is_ready" db:"is_ready"`
}
