package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
)

// Repository defines what the session app layer needs from persistence.
type Repository interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.DraftSession, error)
	GetSession(ctx context.Context, seasonID int64) (*models.DraftSession, error)
	UpdateSession(ctx context.Context, sess *models.DraftSession) error
	AddParticipant(ctx context.Context, p models.Participant) error
	ListParticipants(ctx context.Context, seasonID int64) ([]models.Participant, error)
	SetReady(ctx context.Context, seasonID, teamID int64, ready bool) error
}

// App owns the draft session record and its state machine. Every status
// change flows through ValidateTransition.
type App struct {
	repo Repository
}

// NewApp creates a new session App.
func NewApp(repo Repository) *App {
	return &App{repo: repo}
}

// CreateSession creates the season's draft session in NOT_STARTED. A season
// has at most one session; duplicates are a Conflict.
func (a *App) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.DraftSession, error) {
	if err := a.validateCreateSessionRequest(req); err != nil {
		return nil, err
	}

	if existing, err := a.repo.GetSession(ctx, req.SeasonID); err == nil && existing != nil {
		return nil, drafterrs.Conflict("season %d already has a draft session", req.SeasonID)
	}

	sess, err := a.repo.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().
		Int64("season_id", sess.SeasonID).
		Str("draft_type", string(sess.DraftType)).
		Msg("created draft session")
	return sess, nil
}

// GetSession retrieves the season's draft session.
func (a *App) GetSession(ctx context.Context, seasonID int64) (*models.DraftSession, error) {
	sess, err := a.repo.GetSession(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListParticipants returns the season's participants sorted by draft position.
func (a *App) ListParticipants(ctx context.Context, seasonID int64) ([]models.Participant, error) {
	parts, err := a.repo.ListParticipants(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return parts, nil
}

// AddParticipant registers a team before the lobby opens. Positions are
// immutable once drafting starts, so registration is rejected from LOBBY
// onward.
func (a *App) AddParticipant(ctx context.Context, req AddParticipantRequest) error {
	if req.DraftPosition < 1 {
		return drafterrs.BadRequest("draft position must be >= 1, got %d", req.DraftPosition)
	}

	sess, err := a.repo.GetSession(ctx, req.SeasonID)
	if err != nil {
		return err
	}
	if sess.Status != models.DraftStatusNotStarted {
		return drafterrs.PreconditionFailed("participants can only be registered before the lobby opens, session is %s", sess.Status)
	}

	parts, err := a.repo.ListParticipants(ctx, req.SeasonID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range parts {
		if p.TeamID == req.TeamID {
			return drafterrs.Conflict("team %d is already registered for season %d", req.TeamID, req.SeasonID)
		}
		if p.DraftPosition == req.DraftPosition {
			return drafterrs.Conflict("draft position %d is already taken by team %d", req.DraftPosition, p.TeamID)
		}
	}

	if err := a.repo.AddParticipant(ctx, models.Participant{
		SeasonID:      req.SeasonID,
		TeamID:        req.TeamID,
		ManagerUserID: req.ManagerUserID,
		DraftPosition: req.DraftPosition,
	}); err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}

	log.Info().
		Int64("season_id", req.SeasonID).
		Int64("team_id", req.TeamID).
		Int("position", req.DraftPosition).
		Msg("registered draft participant")
	return nil
}

// OpenLobby transitions NOT_STARTED -> LOBBY once the participant set is
// complete and positionally consistent.
func (a *App) OpenLobby(ctx context.Context, seasonID int64) (*models.DraftSession, error) {
	sess, err := a.repo.GetSession(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(sess.Status, models.DraftStatusLobby); err != nil {
		return nil, err
	}

	parts, err := a.repo.ListParticipants(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	if len(parts) < 2 {
		return nil, drafterrs.PreconditionFailed("at least 2 participants must be registered, have %d", len(parts))
	}
	for i, p := range parts {
		if p.DraftPosition != i+1 {
			return nil, drafterrs.PreconditionFailed("draft positions must be contiguous from 1, position %d is missing", i+1)
		}
	}
	if sess.DraftType == models.DraftTypeCustom {
		if sess.Rounds == nil {
			return nil, drafterrs.PreconditionFailed("custom drafts require a round count")
		}
		if err := ValidateCustomOrder(parts, *sess.Rounds, sess.CustomOrder); err != nil {
			return nil, drafterrs.PreconditionFailed("%s", err.Error())
		}
	}

	sess.Status = models.DraftStatusLobby
	if err := a.repo.UpdateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	log.Info().Int64("season_id", seasonID).Int("participants", len(parts)).Msg("draft lobby opened")
	return sess, nil
}

// SetReady toggles a participant's lobby readiness.
func (a *App) SetReady(ctx context.Context, seasonID, teamID, asUserID int64, ready bool) error {
	sess, err := a.repo.GetSession(ctx, seasonID)
	if err != nil {
		return err
	}
	if sess.Status != models.DraftStatusLobby {
		return drafterrs.PreconditionFailed("readiness can only change in the lobby, session is %s", sess.Status)
	}

	parts, err := a.repo.ListParticipants(ctx, seasonID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	p := FindParticipant(parts, teamID)
	if p == nil {
		return drafterrs.NotFound("team %d is not registered for season %d", teamID, seasonID)
	}
	if p.ManagerUserID != asUserID && sess.CommissionerID != asUserID {
		return drafterrs.Forbidden("user %d does not manage team %d", asUserID, teamID)
	}

	if err := a.repo.SetReady(ctx, seasonID, teamID, ready); err != nil {
		return fmt.Errorf("failed to set readiness: %w", err)
	}
	return nil
}

// UpdateSession persists a session mutated inside the per-season critical
// section. Callers are responsible for having validated the transition.
func (a *App) UpdateSession(ctx context.Context, sess *models.DraftSession) error {
	if err := a.repo.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// FindParticipant returns the participant for teamID, or nil.
func FindParticipant(parts []models.Participant, teamID int64) *models.Participant {
	for i := range parts {
		if parts[i].TeamID == teamID {
			return &parts[i]
		}
	}
	return nil
}

// ValidateTransition enforces the session state machine:
// NOT_STARTED -> LOBBY -> IN_PROGRESS <-> PAUSED -> COMPLETED, with COMPLETED
// reachable from any non-terminal state via admin end.
func ValidateTransition(from, to models.DraftStatus) error {
	if from == to {
		return drafterrs.PreconditionFailed("session is already %s", from)
	}

	allowed := map[models.DraftStatus][]models.DraftStatus{
		models.DraftStatusNotStarted: {models.DraftStatusLobby, models.DraftStatusCompleted},
		models.DraftStatusLobby:      {models.DraftStatusInProgress, models.DraftStatusCompleted},
		models.DraftStatusInProgress: {models.DraftStatusPaused, models.DraftStatusCompleted},
		models.DraftStatusPaused:     {models.DraftStatusInProgress, models.DraftStatusCompleted},
		models.DraftStatusCompleted:  {},
	}

	next, ok := allowed[from]
	if !ok {
		return drafterrs.PreconditionFailed("unknown session status: %s", from)
	}
	for _, s := range next {
		if s == to {
			return nil
		}
	}
	return drafterrs.PreconditionFailed("transition from %s to %s is not allowed", from, to)
}

func (a *App) validateCreateSessionRequest(req CreateSessionRequest) error {
	if req.SeasonID <= 0 {
		return drafterrs.BadRequest("season_id is required")
	}
	if req.CommissionerID <= 0 {
		return drafterrs.BadRequest("commissioner_id is required")
	}
	switch req.DraftType {
	case models.DraftTypeSnake, models.DraftTypeLinear, models.DraftTypeCustom:
	default:
		return drafterrs.BadRequest("invalid draft type: %s", req.DraftType)
	}
	if req.PickTimerSec != nil && *req.PickTimerSec <= 0 {
		return drafterrs.BadRequest("pick_timer_sec must be positive when set")
	}
	if req.Rounds != nil && *req.Rounds <= 0 {
		return drafterrs.BadRequest("rounds must be positive when set")
	}
	if req.DraftType == models.DraftTypeCustom && req.Rounds == nil {
		return drafterrs.BadRequest("custom drafts require a round count")
	}
	return nil
}
