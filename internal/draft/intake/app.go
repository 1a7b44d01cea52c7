// Package intake is the single entry point for committing draft picks:
// manager submissions, deadline auto-picks, admin forces, and skips all
// funnel through the same commit path so the one-commit-per-slot rule is
// enforced in exactly one place.
package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/catalog"
	"github.com/jmorrisey/pokedraft/internal/draft/clock"
	"github.com/jmorrisey/pokedraft/internal/draft/events"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/pick"
	"github.com/jmorrisey/pokedraft/internal/draft/session"
	"github.com/jmorrisey/pokedraft/internal/draft/watchlist"
	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
	"github.com/jmorrisey/pokedraft/internal/seasonlock"
)

// Config tunes intake behavior.
type Config struct {
	// TimeoutPolicy selects what an expired deadline does to the turn.
	TimeoutPolicy clock.Policy
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{TimeoutPolicy: clock.PolicyAutoPick}
}

// App validates and commits picks, advances the turn pointer, and re-arms
// the deadline clock. All mutations run inside the per-season critical
// section.
type App struct {
	cfg        Config
	sessions   *session.App
	picks      pick.Repository
	watchlists watchlist.Repository
	catalog    catalog.Gateway
	turnClock  *clock.TurnClock
	locks      *seasonlock.Keyed
	publisher  hub.Publisher
	clock      clockwork.Clock
}

// NewApp creates the intake App and wires itself in as the turn clock's
// timeout handler.
func NewApp(
	cfg Config,
	sessions *session.App,
	picks pick.Repository,
	watchlists watchlist.Repository,
	cat catalog.Gateway,
	turnClock *clock.TurnClock,
	locks *seasonlock.Keyed,
	publisher hub.Publisher,
	clk clockwork.Clock,
) *App {
	a := &App{
		cfg:        cfg,
		sessions:   sessions,
		picks:      picks,
		watchlists: watchlists,
		catalog:    cat,
		turnClock:  turnClock,
		locks:      locks,
		publisher:  publisher,
		clock:      clk,
	}
	turnClock.SetTimeoutFunc(a.HandleTimeout)
	return a
}

// SubmitPickRequest is a manager's attempt to draft a pokemon.
type SubmitPickRequest struct {
	SeasonID  int64 `json:"season_id"`
	TeamID    int64 `json:"team_id"`
	AsUserID  int64 `json:"as_user_id"`
	PokemonID int   `json:"pokemon_id"`
}

// SubmitPick validates and commits a manager pick for the team currently on
// the clock. Exactly one of two concurrent submissions for the same slot can
// succeed; the loser gets a Conflict carrying the authoritative turn state.
func (a *App) SubmitPick(ctx context.Context, req SubmitPickRequest) (*models.Pick, error) {
	if req.PokemonID <= 0 {
		return nil, drafterrs.BadRequest("pokemon_id is required")
	}

	unlock := a.locks.Lock(req.SeasonID)
	defer unlock()

	sess, err := a.sessions.GetSession(ctx, req.SeasonID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.DraftStatusInProgress {
		return nil, drafterrs.Conflict("no pick is on the clock, session is %s", sess.Status)
	}

	parts, err := a.sessions.ListParticipants(ctx, req.SeasonID)
	if err != nil {
		return nil, err
	}
	slot, err := session.SlotFor(sess.DraftType, parts, sess.CustomOrder, sess.OverallPick)
	if err != nil {
		return nil, fmt.Errorf("resolving turn slot: %w", err)
	}

	if req.TeamID != slot.TeamID {
		return nil, drafterrs.Conflict("team %d is not on the clock", req.TeamID).
			WithTurnContext(sess.OverallPick, slot.TeamID)
	}
	p := session.FindParticipant(parts, req.TeamID)
	if p == nil {
		return nil, drafterrs.NotFound("team %d is not registered for season %d", req.TeamID, req.SeasonID)
	}
	if p.ManagerUserID != req.AsUserID {
		return nil, drafterrs.Forbidden("user %d does not manage team %d", req.AsUserID, req.TeamID)
	}

	if err := a.checkDraftable(ctx, req.SeasonID, req.PokemonID, sess, slot); err != nil {
		return nil, err
	}

	return a.commitLocked(ctx, sess, parts, slot, req.PokemonID,
		models.PickSourceManager, fmt.Sprintf("user:%d", req.AsUserID))
}

// ForcePick commits a pick on the commissioner's authority. teamID 0 means
// the on-clock team; a nonzero teamID records the pick for that team instead
// (out-of-turn correction) while the pointer still advances along the
// schedule. Bypasses the turn and manager checks but not availability or
// legality.
func (a *App) ForcePick(ctx context.Context, seasonID int64, pokemonID int, teamID, asUserID int64) (*models.Pick, error) {
	if pokemonID <= 0 {
		return nil, drafterrs.BadRequest("pokemon_id is required")
	}

	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, parts, slot, err := a.currentSlotLocked(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if sess.CommissionerID != asUserID {
		return nil, drafterrs.Forbidden("user %d is not the season commissioner", asUserID)
	}
	if teamID != 0 && teamID != slot.TeamID {
		if session.FindParticipant(parts, teamID) == nil {
			return nil, drafterrs.NotFound("team %d is not registered for season %d", teamID, seasonID)
		}
		slot.TeamID = teamID
	}

	if err := a.checkDraftable(ctx, seasonID, pokemonID, sess, slot); err != nil {
		return nil, err
	}

	return a.commitLocked(ctx, sess, parts, slot, pokemonID,
		models.PickSourceAdminForce, fmt.Sprintf("admin:%d", asUserID))
}

// Advance skips the on-clock team without consuming a pokemon. Commissioner
// only. The slot is spent by a gap marker so overall numbering stays gapless.
func (a *App) Advance(ctx context.Context, seasonID, asUserID int64) (*models.Pick, error) {
	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, parts, slot, err := a.currentSlotLocked(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if sess.CommissionerID != asUserID {
		return nil, drafterrs.Forbidden("user %d is not the season commissioner", asUserID)
	}

	return a.commitLocked(ctx, sess, parts, slot, 0,
		models.PickSourceSkip, fmt.Sprintf("admin:%d", asUserID))
}

// HandleTimeout is the turn clock's fire handler. armedOverall guards
// against stale fires: if the session has moved past the armed slot the
// deadline is a no-op.
func (a *App) HandleTimeout(ctx context.Context, seasonID int64, armedOverall int) {
	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, err := a.sessions.GetSession(ctx, seasonID)
	if err != nil {
		log.Error().Err(err).Int64("season_id", seasonID).Msg("deadline fired for unloadable session")
		return
	}
	if sess.Status != models.DraftStatusInProgress || sess.OverallPick != armedOverall {
		log.Debug().
			Int64("season_id", seasonID).
			Int("armed_overall", armedOverall).
			Int("current_overall", sess.OverallPick).
			Str("status", string(sess.Status)).
			Msg("stale deadline fire ignored")
		return
	}

	parts, err := a.sessions.ListParticipants(ctx, seasonID)
	if err != nil {
		log.Error().Err(err).Int64("season_id", seasonID).Msg("deadline fired but participants unavailable")
		return
	}
	slot, err := session.SlotFor(sess.DraftType, parts, sess.CustomOrder, sess.OverallPick)
	if err != nil {
		log.Error().Err(err).Int64("season_id", seasonID).Msg("deadline fired but turn slot unresolvable")
		return
	}

	pokemonID := 0
	source := models.PickSourceSkip
	if a.cfg.TimeoutPolicy == clock.PolicyAutoPick {
		if id := a.autoPickChoice(ctx, seasonID, slot.TeamID); id > 0 {
			pokemonID = id
			source = models.PickSourceSystemAuto
		}
	}

	if _, err := a.commitLocked(ctx, sess, parts, slot, pokemonID, source, "system"); err != nil {
		log.Error().Err(err).
			Int64("season_id", seasonID).
			Int("overall_pick", slot.Overall).
			Msg("failed to commit deadline pick")
	}
}

// autoPickChoice picks the team's best available pokemon: the first
// watchlist entry that is still draftable, then the deterministic catalog
// default. Returns 0 when nothing is draftable, which degrades to a skip.
func (a *App) autoPickChoice(ctx context.Context, seasonID, teamID int64) int {
	ids, err := a.watchlists.Get(ctx, seasonID, teamID)
	if err != nil {
		log.Error().Err(err).Int64("season_id", seasonID).Int64("team_id", teamID).Msg("watchlist unavailable for auto-pick")
		ids = nil
	}
	for _, id := range ids {
		available, err := a.catalog.IsAvailable(ctx, seasonID, id)
		if err != nil || !available {
			continue
		}
		legal, err := a.catalog.IsLegal(ctx, seasonID, id)
		if err != nil || !legal {
			continue
		}
		return id
	}

	entry, err := a.catalog.DefaultAvailable(ctx, seasonID)
	if err != nil {
		log.Error().Err(err).Int64("season_id", seasonID).Msg("catalog default unavailable, turn will be skipped")
		return 0
	}
	if entry == nil {
		return 0
	}
	return entry.PokemonID
}

// currentSlotLocked loads the session and resolves the on-clock slot.
// Callers must hold the season lock.
func (a *App) currentSlotLocked(ctx context.Context, seasonID int64) (*models.DraftSession, []models.Participant, session.Slot, error) {
	sess, err := a.sessions.GetSession(ctx, seasonID)
	if err != nil {
		return nil, nil, session.Slot{}, err
	}
	if sess.Status != models.DraftStatusInProgress {
		return nil, nil, session.Slot{}, drafterrs.Conflict("no pick is on the clock, session is %s", sess.Status)
	}
	parts, err := a.sessions.ListParticipants(ctx, seasonID)
	if err != nil {
		return nil, nil, session.Slot{}, err
	}
	slot, err := session.SlotFor(sess.DraftType, parts, sess.CustomOrder, sess.OverallPick)
	if err != nil {
		return nil, nil, session.Slot{}, fmt.Errorf("resolving turn slot: %w", err)
	}
	return sess, parts, slot, nil
}

func (a *App) checkDraftable(ctx context.Context, seasonID int64, pokemonID int, sess *models.DraftSession, slot session.Slot) error {
	taken, err := a.picks.IsPokemonTaken(ctx, seasonID, pokemonID)
	if err != nil {
		return fmt.Errorf("checking pick log: %w", err)
	}
	if taken {
		return drafterrs.Conflict("pokemon %d is already drafted in season %d", pokemonID, seasonID).
			WithTurnContext(sess.OverallPick, slot.TeamID)
	}
	available, err := a.catalog.IsAvailable(ctx, seasonID, pokemonID)
	if err != nil {
		return fmt.Errorf("checking availability: %w", err)
	}
	if !available {
		return drafterrs.Conflict("pokemon %d is not available", pokemonID).
			WithTurnContext(sess.OverallPick, slot.TeamID)
	}
	legal, err := a.catalog.IsLegal(ctx, seasonID, pokemonID)
	if err != nil {
		return fmt.Errorf("checking legality: %w", err)
	}
	if !legal {
		return drafterrs.Conflict("pokemon %d is not legal in this season", pokemonID).
			WithTurnContext(sess.OverallPick, slot.TeamID)
	}
	return nil
}

// commitLocked appends the pick, advances the turn pointer, persists the
// session, re-arms or disarms the clock, and publishes the resulting events.
// Callers must hold the season lock.
func (a *App) commitLocked(
	ctx context.Context,
	sess *models.DraftSession,
	parts []models.Participant,
	slot session.Slot,
	pokemonID int,
	source models.PickSource,
	madeBy string,
) (*models.Pick, error) {
	committed := models.Pick{
		ID:          uuid.New(),
		SeasonID:    sess.SeasonID,
		Round:       slot.Round,
		PickInRound: slot.PickInRound,
		OverallPick: slot.Overall,
		TeamID:      slot.TeamID,
		PokemonID:   pokemonID,
		MadeBy:      madeBy,
		Source:      source,
		CreatedAt:   a.clock.Now(),
	}
	if err := a.picks.Append(ctx, committed); err != nil {
		return nil, err
	}

	next := slot.Overall + 1
	total := sess.TotalSlots(len(parts))
	onClock := int64(0)

	if total > 0 && next > total {
		sess.Status = models.DraftStatusCompleted
		sess.CurrentDeadlineAt = nil
		sess.PausedRemainingSec = nil
		a.turnClock.Disarm(sess.SeasonID)
		log.Info().Int64("season_id", sess.SeasonID).Int("total_picks", total).Msg("draft completed")
	} else {
		nextSlot, err := session.SlotFor(sess.DraftType, parts, sess.CustomOrder, next)
		if err != nil {
			return nil, fmt.Errorf("resolving next turn slot: %w", err)
		}
		sess.CurrentRound = nextSlot.Round
		sess.CurrentPickInRound = nextSlot.PickInRound
		sess.OverallPick = nextSlot.Overall
		onClock = nextSlot.TeamID
		a.armLocked(sess)
	}

	if err := a.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.Info().
		Int64("season_id", sess.SeasonID).
		Int("overall_pick", committed.OverallPick).
		Int64("team_id", committed.TeamID).
		Int("pokemon_id", committed.PokemonID).
		Str("source", string(source)).
		Msg("pick committed")

	if committed.Consumed() {
		a.publisher.Publish(sess.SeasonID, hub.KindPool, events.PoolPayload{
			SeasonID:  sess.SeasonID,
			PokemonID: committed.PokemonID,
			Available: false,
		})
	}
	a.publisher.Publish(sess.SeasonID, hub.KindState, events.StatePayload{
		Session:       *sess,
		OnClockTeamID: onClock,
		LastPick:      &committed,
	})

	return &committed, nil
}

// armLocked schedules the deadline for the session's current slot from now.
// Untimed sessions never arm; their deadline stays nil.
func (a *App) armLocked(sess *models.DraftSession) {
	if !sess.Timed() {
		sess.CurrentDeadlineAt = nil
		return
	}
	d := time.Duration(*sess.PickTimerSec) * time.Second
	deadline := a.clock.Now().Add(d)
	sess.CurrentDeadlineAt = &deadline
	a.turnClock.Arm(sess.SeasonID, sess.OverallPick, d)
}
