// Package admin carries the commissioner-only lifecycle controls: starting,
// pausing, resuming, and ending the draft, plus undo and the delegated
// force-pick and advance operations.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/draft/clock"
	"github.com/jmorrisey/pokedraft/internal/draft/events"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/intake"
	"github.com/jmorrisey/pokedraft/internal/draft/pick"
	"github.com/jmorrisey/pokedraft/internal/draft/session"
	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
	"github.com/jmorrisey/pokedraft/internal/seasonlock"
)

// App owns the commissioner control surface. Every operation verifies the
// acting user against the session's commissioner before mutating anything.
type App struct {
	sessions  *session.App
	picks     pick.Repository
	intake    *intake.App
	turnClock *clock.TurnClock
	locks     *seasonlock.Keyed
	publisher hub.Publisher
	clock     clockwork.Clock
}

// NewApp creates the admin App.
func NewApp(
	sessions *session.App,
	picks pick.Repository,
	in *intake.App,
	turnClock *clock.TurnClock,
	locks *seasonlock.Keyed,
	publisher hub.Publisher,
	clk clockwork.Clock,
) *App {
	return &App{
		sessions:  sessions,
		picks:     picks,
		intake:    in,
		turnClock: turnClock,
		locks:     locks,
		publisher: publisher,
		clock:     clk,
	}
}

// Start transitions LOBBY -> IN_PROGRESS, sets the turn pointer to the first
// slot, and arms the clock. Every participant must be ready unless override
// is set.
func (a *App) Start(ctx context.Context, seasonID, asUserID int64, override bool) (*models.DraftSession, error) {
	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, err := a.authorizedSession(ctx, seasonID, asUserID)
	if err != nil {
		return nil, err
	}
	if err := session.ValidateTransition(sess.Status, models.DraftStatusInProgress); err != nil {
		return nil, err
	}

	parts, err := a.sessions.ListParticipants(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if !override {
		for _, p := range parts {
			if !p.IsReady {
				return nil, drafterrs.PreconditionFailed("team %d is not ready", p.TeamID)
			}
		}
	}

	first, err := session.SlotFor(sess.DraftType, parts, sess.CustomOrder, 1)
	if err != nil {
		return nil, fmt.Errorf("resolving first turn slot: %w", err)
	}

	now := a.clock.Now()
	sess.Status = models.DraftStatusInProgress
	sess.StartsAt = &now
	sess.CurrentRound = first.Round
	sess.CurrentPickInRound = first.PickInRound
	sess.OverallPick = first.Overall
	a.armLocked(sess, fullTimer(sess))

	if err := a.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.Info().
		Int64("season_id", seasonID).
		Int64("on_clock_team_id", first.TeamID).
		Bool("override", override).
		Msg("draft started")
	a.publishState(sess, first.TeamID)
	return sess, nil
}

// Pause freezes the draft. The remaining time on the current deadline is
// captured so Resume restores exactly what was left, not a fresh timer.
func (a *App) Pause(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error) {
	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, err := a.authorizedSession(ctx, seasonID, asUserID)
	if err != nil {
		return nil, err
	}
	if err := session.ValidateTransition(sess.Status, models.DraftStatusPaused); err != nil {
		return nil, err
	}

	if sess.Timed() && sess.CurrentDeadlineAt != nil {
		remaining := int(sess.CurrentDeadlineAt.Sub(a.clock.Now()) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
		sess.PausedRemainingSec = &remaining
	}
	sess.Status = models.DraftStatusPaused
	sess.CurrentDeadlineAt = nil
	a.turnClock.Disarm(seasonID)

	if err := a.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.Info().Int64("season_id", seasonID).Msg("draft paused")
	a.publishState(sess, a.onClockLocked(ctx, sess))
	return sess, nil
}

// Resume continues a paused draft. The new deadline is now plus the frozen
// remainder; wall time spent paused never counts against the pick.
func (a *App) Resume(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error) {
	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, err := a.authorizedSession(ctx, seasonID, asUserID)
	if err != nil {
		return nil, err
	}
	if err := session.ValidateTransition(sess.Status, models.DraftStatusInProgress); err != nil {
		return nil, err
	}

	sess.Status = models.DraftStatusInProgress
	d := fullTimer(sess)
	if sess.PausedRemainingSec != nil {
		d = time.Duration(*sess.PausedRemainingSec) * time.Second
	}
	sess.PausedRemainingSec = nil
	a.armLocked(sess, d)

	if err := a.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.Info().Int64("season_id", seasonID).Dur("remaining", d).Msg("draft resumed")
	a.publishState(sess, a.onClockLocked(ctx, sess))
	return sess, nil
}

// End terminates the draft from any non-terminal state.
func (a *App) End(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error) {
	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, err := a.authorizedSession(ctx, seasonID, asUserID)
	if err != nil {
		return nil, err
	}
	if err := session.ValidateTransition(sess.Status, models.DraftStatusCompleted); err != nil {
		return nil, err
	}

	sess.Status = models.DraftStatusCompleted
	sess.CurrentDeadlineAt = nil
	sess.PausedRemainingSec = nil
	a.turnClock.Disarm(seasonID)

	if err := a.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.Info().Int64("season_id", seasonID).Msg("draft ended by commissioner")
	a.publishState(sess, 0)
	return sess, nil
}

// Undo removes the season's most recent pick and puts its team back on the
// clock with a full timer. Undoing with no picks is a precondition failure.
func (a *App) Undo(ctx context.Context, seasonID, asUserID int64) (*models.Pick, error) {
	unlock := a.locks.Lock(seasonID)
	defer unlock()

	sess, err := a.authorizedSession(ctx, seasonID, asUserID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.DraftStatusInProgress && sess.Status != models.DraftStatusPaused {
		return nil, drafterrs.PreconditionFailed("picks can only be undone while drafting, session is %s", sess.Status)
	}

	removed, err := a.picks.RemoveLast(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	sess.CurrentRound = removed.Round
	sess.CurrentPickInRound = removed.PickInRound
	sess.OverallPick = removed.OverallPick
	if sess.Status == models.DraftStatusInProgress {
		a.armLocked(sess, fullTimer(sess))
	} else if sess.Timed() {
		full := *sess.PickTimerSec
		sess.PausedRemainingSec = &full
	}

	if err := a.sessions.UpdateSession(ctx, sess); err != nil {
		return nil, err
	}

	log.Info().
		Int64("season_id", seasonID).
		Int("overall_pick", removed.OverallPick).
		Int64("team_id", removed.TeamID).
		Msg("pick undone")

	if removed.Consumed() {
		a.publisher.Publish(seasonID, hub.KindPool, events.PoolPayload{
			SeasonID:  seasonID,
			PokemonID: removed.PokemonID,
			Available: true,
		})
	}
	a.publishState(sess, removed.TeamID)
	return removed, nil
}

// ForcePick commits a pick on the commissioner's authority, for the on-clock
// team or for an explicitly named one (teamID 0 means on-clock).
func (a *App) ForcePick(ctx context.Context, seasonID int64, pokemonID int, teamID, asUserID int64) (*models.Pick, error) {
	return a.intake.ForcePick(ctx, seasonID, pokemonID, teamID, asUserID)
}

// Advance skips the on-clock team's turn.
func (a *App) Advance(ctx context.Context, seasonID, asUserID int64) (*models.Pick, error) {
	return a.intake.Advance(ctx, seasonID, asUserID)
}

func (a *App) authorizedSession(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error) {
	sess, err := a.sessions.GetSession(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	if sess.CommissionerID != asUserID {
		return nil, drafterrs.Forbidden("user %d is not the season commissioner", asUserID)
	}
	return sess, nil
}

// armLocked schedules a deadline of duration d for the current slot.
// Untimed sessions clear the deadline instead.
func (a *App) armLocked(sess *models.DraftSession, d time.Duration) {
	if !sess.Timed() {
		sess.CurrentDeadlineAt = nil
		return
	}
	deadline := a.clock.Now().Add(d)
	sess.CurrentDeadlineAt = &deadline
	a.turnClock.Arm(sess.SeasonID, sess.OverallPick, d)
}

// onClockLocked best-effort resolves the on-clock team for event payloads.
func (a *App) onClockLocked(ctx context.Context, sess *models.DraftSession) int64 {
	parts, err := a.sessions.ListParticipants(ctx, sess.SeasonID)
	if err != nil {
		return 0
	}
	slot, err := session.SlotFor(sess.DraftType, parts, sess.CustomOrder, sess.OverallPick)
	if err != nil {
		return 0
	}
	return slot.TeamID
}

func (a *App) publishState(sess *models.DraftSession, onClockTeamID int64) {
	a.publisher.Publish(sess.SeasonID, hub.KindState, events.StatePayload{
		Session:       *sess,
		OnClockTeamID: onClockTeamID,
	})
}

func fullTimer(sess *models.DraftSession) time.Duration {
	if !sess.Timed() {
		return 0
	}
	return time.Duration(*sess.PickTimerSec) * time.Second
}
