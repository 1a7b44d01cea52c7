package models

import (
	"time"
)

// DraftType defines how the turn order is derived for a season's draft.
type DraftType string

const (
	DraftTypeSnake  DraftType = "SNAKE"
	DraftTypeLinear DraftType = "LINEAR"
	DraftTypeCustom DraftType = "CUSTOM"
)

// DraftStatus defines the lifecycle state of a draft session.
type DraftStatus string

const (
	DraftStatusNotStarted DraftStatus = "NOT_STARTED"
	DraftStatusLobby      DraftStatus = "LOBBY"
	DraftStatusInProgress DraftStatus = "IN_PROGRESS"
	DraftStatusPaused     DraftStatus = "PAUSED"
	DraftStatusCompleted  DraftStatus = "COMPLETED"
)

// DraftSession is the durable record of a season's live draft: configuration,
// turn pointer, and clock state. At most one exists per season, and it is
// mutated only through state-machine transitions owned by the engine.
type DraftSession struct {
	SeasonID       int64       `json:"season_id" db:"season_id"`
	CommissionerID int64       `json:"commissioner_id" db:"commissioner_id"`
	Status         DraftStatus `json:"status" db:"status"`
	DraftType      DraftType   `json:"draft_type" db:"draft_type"`

	// PickTimerSec is nil for untimed drafts; the clock is never armed.
	PickTimerSec *int `json:"pick_timer_sec,omitempty" db:"pick_timer_sec"`
	// Rounds is nil for open-ended drafts, which never auto-complete.
	Rounds *int `json:"rounds,omitempty" db:"rounds"`

	// CustomOrder assigns a team to every overall pick slot. Required for
	// CUSTOM drafts, empty otherwise.
	CustomOrder []int64 `json:"custom_order,omitempty" db:"-"`

	StartsAt *time.Time `json:"starts_at,omitempty" db:"starts_at"`

	// Turn pointer. OverallPick is the 1-based slot currently on the clock.
	CurrentRound       int `json:"current_round" db:"current_round"`
	CurrentPickInRound int `json:"current_pick_in_round" db:"current_pick_in_round"`
	OverallPick        int `json:"overall_pick" db:"overall_pick"`

	CurrentDeadlineAt  *time.Time `json:"current_deadline_at,omitempty" db:"current_deadline_at"`
	PausedRemainingSec *int       `json:"paused_remaining_sec,omitempty" db:"paused_remaining_sec"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TotalSlots returns rounds * participants, or 0 when the draft is open-ended.
func (s *DraftSession) TotalSlots(participants int) int {
	if s.Rounds == nil {
		return 0
	}
	return *s.Rounds * participants
}

// Timed reports whether picks in this session run against a deadline.
func (s *DraftSession) Timed() bool {
	return s.PickTimerSec != nil && *s.PickTimerSec > 0
}
