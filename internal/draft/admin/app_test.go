package admin_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorrisey/pokedraft/internal/catalog"
	"github.com/jmorrisey/pokedraft/internal/draft/admin"
	"github.com/jmorrisey/pokedraft/internal/draft/clock"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/intake"
	"github.com/jmorrisey/pokedraft/internal/draft/pick"
	"github.com/jmorrisey/pokedraft/internal/draft/session"
	"github.com/jmorrisey/pokedraft/internal/draft/watchlist"
	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
	"github.com/jmorrisey/pokedraft/internal/seasonlock"
)

const (
	seasonID       = int64(101)
	commissionerID = int64(1)
)

type harness struct {
	clk      *clockwork.FakeClock
	sessions *session.App
	picks    *pick.MemoryRepository
	catalog  *catalog.Static
	intake   *intake.App
	admin    *admin.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clk := clockwork.NewFakeClock()
	sessions := session.NewApp(session.NewMemoryRepository())
	picks := pick.NewMemoryRepository()
	watchlists := watchlist.NewMemoryRepository()

	cat := catalog.NewStatic(map[int64][]catalog.Entry{
		seasonID: {
			{PokemonID: 1, Name: "Bulbasaur", Cost: 10, IsLegal: true},
			{PokemonID: 7, Name: "Squirtle", Cost: 12, IsLegal: true},
			{PokemonID: 25, Name: "Pikachu", Cost: 14, IsLegal: true},
		},
	})
	cat.SetTakenFunc(picks.Taken)

	turnClock := clock.New(clk)
	h := hub.New(hub.DefaultConfig(), clk)
	locks := seasonlock.New()

	in := intake.NewApp(intake.DefaultConfig(), sessions, picks, watchlists, cat, turnClock, locks, h, clk)
	ad := admin.NewApp(sessions, picks, in, turnClock, locks, h, clk)
	t.Cleanup(turnClock.Shutdown)

	return &harness{clk: clk, sessions: sessions, picks: picks, catalog: cat, intake: in, admin: ad}
}

// openLobby creates a 2-team snake draft and readies both teams. Managers
// are users 100 and 101 for teams 1 and 2.
func (h *harness) openLobby(t *testing.T, timerSec *int) {
	t.Helper()
	ctx := context.Background()

	rounds := 3
	_, err := h.sessions.CreateSession(ctx, session.CreateSessionRequest{
		SeasonID:       seasonID,
		CommissionerID: commissionerID,
		DraftType:      models.DraftTypeSnake,
		PickTimerSec:   timerSec,
		Rounds:         &rounds,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, h.sessions.AddParticipant(ctx, session.AddParticipantRequest{
			SeasonID:      seasonID,
			TeamID:        int64(i + 1),
			ManagerUserID: int64(100 + i),
			DraftPosition: i + 1,
		}))
	}
	_, err = h.sessions.OpenLobby(ctx, seasonID)
	require.NoError(t, err)
	require.NoError(t, h.sessions.SetReady(ctx, seasonID, 1, 100, true))
	require.NoError(t, h.sessions.SetReady(ctx, seasonID, 2, 101, true))
}

func (h *harness) startDraft(t *testing.T, timerSec *int) {
	t.Helper()
	h.openLobby(t, timerSec)
	_, err := h.admin.Start(context.Background(), seasonID, commissionerID, false)
	require.NoError(t, err)
}

func (h *harness) session(t *testing.T) *models.DraftSession {
	t.Helper()
	sess, err := h.sessions.GetSession(context.Background(), seasonID)
	require.NoError(t, err)
	return sess
}

func intPtr(v int) *int { return &v }

func TestStartSetsPointerAndDeadline(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))

	sess := h.session(t)
	assert.Equal(t, models.DraftStatusInProgress, sess.Status)
	assert.Equal(t, 1, sess.CurrentRound)
	assert.Equal(t, 1, sess.CurrentPickInRound)
	assert.Equal(t, 1, sess.OverallPick)
	require.NotNil(t, sess.StartsAt)
	require.NotNil(t, sess.CurrentDeadlineAt)
	assert.Equal(t, h.clk.Now().Add(60*time.Second), *sess.CurrentDeadlineAt)
}

func TestStartRequiresReadinessUnlessOverridden(t *testing.T) {
	h := newHarness(t)
	h.openLobby(t, intPtr(60))
	ctx := context.Background()

	require.NoError(t, h.sessions.SetReady(ctx, seasonID, 2, 101, false))

	_, err := h.admin.Start(ctx, seasonID, commissionerID, false)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))

	_, err = h.admin.Start(ctx, seasonID, commissionerID, true)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusInProgress, h.session(t).Status)
}

func TestStartRejectsNonCommissioner(t *testing.T) {
	h := newHarness(t)
	h.openLobby(t, intPtr(60))

	_, err := h.admin.Start(context.Background(), seasonID, 555, false)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeForbidden))
}

func TestPauseFreezesRemainingTime(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	// 20 seconds of the 60 elapse before the pause.
	h.clk.Advance(20 * time.Second)
	sess, err := h.admin.Pause(ctx, seasonID, commissionerID)
	require.NoError(t, err)

	assert.Equal(t, models.DraftStatusPaused, sess.Status)
	require.NotNil(t, sess.PausedRemainingSec)
	assert.Equal(t, 40, *sess.PausedRemainingSec)
	assert.Nil(t, sess.CurrentDeadlineAt)
}

func TestResumeRestoresExactRemainder(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	h.clk.Advance(20 * time.Second)
	_, err := h.admin.Pause(ctx, seasonID, commissionerID)
	require.NoError(t, err)

	// Wall time spent paused never counts against the pick.
	h.clk.Advance(500 * time.Second)

	sess, err := h.admin.Resume(ctx, seasonID, commissionerID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusInProgress, sess.Status)
	assert.Nil(t, sess.PausedRemainingSec)
	require.NotNil(t, sess.CurrentDeadlineAt)
	assert.Equal(t, h.clk.Now().Add(40*time.Second), *sess.CurrentDeadlineAt)

	// The restored deadline is live: 40 more seconds trigger the auto-pick.
	h.clk.Advance(40 * time.Second)
	require.Eventually(t, func() bool {
		return h.session(t).OverallPick == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPausedDeadlineNeverFires(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	_, err := h.admin.Pause(ctx, seasonID, commissionerID)
	require.NoError(t, err)

	h.clk.Advance(10 * time.Minute)
	time.Sleep(20 * time.Millisecond)

	picks, err := h.picks.ListBySeason(ctx, seasonID)
	require.NoError(t, err)
	assert.Empty(t, picks)
	assert.Equal(t, models.DraftStatusPaused, h.session(t).Status)
}

func TestPauseRequiresInProgress(t *testing.T) {
	h := newHarness(t)
	h.openLobby(t, intPtr(60))

	_, err := h.admin.Pause(context.Background(), seasonID, commissionerID)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))
}

func TestEndCompletesFromAnyNonTerminalState(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	sess, err := h.admin.End(ctx, seasonID, commissionerID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftStatusCompleted, sess.Status)
	assert.Nil(t, sess.CurrentDeadlineAt)

	_, err = h.admin.End(ctx, seasonID, commissionerID)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed), "terminal state")

	// No deadline survives the end.
	h.clk.Advance(10 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	picks, err := h.picks.ListBySeason(ctx, seasonID)
	require.NoError(t, err)
	assert.Empty(t, picks)
}

func TestUndoRestoresSlotAndPool(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	_, err := h.intake.SubmitPick(ctx, intake.SubmitPickRequest{
		SeasonID: seasonID, TeamID: 1, AsUserID: 100, PokemonID: 25,
	})
	require.NoError(t, err)
	h.clk.Advance(15 * time.Second)

	removed, err := h.admin.Undo(ctx, seasonID, commissionerID)
	require.NoError(t, err)
	assert.Equal(t, 25, removed.PokemonID)
	assert.Equal(t, int64(1), removed.TeamID)

	sess := h.session(t)
	assert.Equal(t, 1, sess.OverallPick)
	require.NotNil(t, sess.CurrentDeadlineAt)
	assert.Equal(t, h.clk.Now().Add(60*time.Second), *sess.CurrentDeadlineAt, "undo grants a full timer")

	available, err := h.catalog.IsAvailable(ctx, seasonID, 25)
	require.NoError(t, err)
	assert.True(t, available, "undone pokemon returns to the pool")

	picks, err := h.picks.ListBySeason(ctx, seasonID)
	require.NoError(t, err)
	assert.Empty(t, picks)
}

func TestUndoThenResubmitRoundTrips(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	first, err := h.intake.SubmitPick(ctx, intake.SubmitPickRequest{
		SeasonID: seasonID, TeamID: 1, AsUserID: 100, PokemonID: 25,
	})
	require.NoError(t, err)
	before := h.session(t)

	_, err = h.admin.Undo(ctx, seasonID, commissionerID)
	require.NoError(t, err)

	second, err := h.intake.SubmitPick(ctx, intake.SubmitPickRequest{
		SeasonID: seasonID, TeamID: 1, AsUserID: 100, PokemonID: 25,
	})
	require.NoError(t, err)

	// The re-submitted pick lands in the same slot with the same attribution.
	assert.Equal(t, first.OverallPick, second.OverallPick)
	assert.Equal(t, first.Round, second.Round)
	assert.Equal(t, first.PickInRound, second.PickInRound)
	assert.Equal(t, first.TeamID, second.TeamID)
	assert.Equal(t, first.PokemonID, second.PokemonID)
	assert.Equal(t, first.MadeBy, second.MadeBy)
	assert.Equal(t, first.Source, second.Source)

	after := h.session(t)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.CurrentRound, after.CurrentRound)
	assert.Equal(t, before.CurrentPickInRound, after.CurrentPickInRound)
	assert.Equal(t, before.OverallPick, after.OverallPick)
	require.NotNil(t, after.CurrentDeadlineAt)
	assert.Equal(t, *before.CurrentDeadlineAt, *after.CurrentDeadlineAt)

	picks, err := h.picks.ListBySeason(ctx, seasonID)
	require.NoError(t, err)
	require.Len(t, picks, 1)

	available, err := h.catalog.IsAvailable(ctx, seasonID, 25)
	require.NoError(t, err)
	assert.False(t, available)
}

func TestUndoWithNoPicksFails(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))

	_, err := h.admin.Undo(context.Background(), seasonID, commissionerID)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))
}

func TestUndoWhilePausedFreezesFullTimer(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	_, err := h.intake.SubmitPick(ctx, intake.SubmitPickRequest{
		SeasonID: seasonID, TeamID: 1, AsUserID: 100, PokemonID: 25,
	})
	require.NoError(t, err)
	_, err = h.admin.Pause(ctx, seasonID, commissionerID)
	require.NoError(t, err)

	_, err = h.admin.Undo(ctx, seasonID, commissionerID)
	require.NoError(t, err)

	sess := h.session(t)
	assert.Equal(t, models.DraftStatusPaused, sess.Status)
	assert.Equal(t, 1, sess.OverallPick)
	require.NotNil(t, sess.PausedRemainingSec)
	assert.Equal(t, 60, *sess.PausedRemainingSec)
}

func TestForcePickCommitsForOnClockTeam(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	p, err := h.admin.ForcePick(ctx, seasonID, 7, 0, commissionerID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TeamID, "team 0 targets whoever is on the clock")
	assert.Equal(t, models.PickSourceAdminForce, p.Source)
	assert.Equal(t, "admin:1", p.MadeBy)

	assert.Equal(t, 2, h.session(t).OverallPick)
}

func TestForcePickForNamedTeamAdvancesSchedule(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	// Team 1 is on the clock; the correction names team 2.
	p, err := h.admin.ForcePick(ctx, seasonID, 7, 2, commissionerID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.TeamID)
	assert.Equal(t, 1, p.OverallPick)
	assert.Equal(t, models.PickSourceAdminForce, p.Source)

	// The pointer still follows the snake: pick 2 belongs to team 2.
	sess := h.session(t)
	assert.Equal(t, 2, sess.OverallPick)
	next, err := h.intake.SubmitPick(ctx, intake.SubmitPickRequest{
		SeasonID: seasonID, TeamID: 2, AsUserID: 101, PokemonID: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.TeamID)
}

func TestForcePickRejectsUnknownNamedTeam(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))

	_, err := h.admin.ForcePick(context.Background(), seasonID, 7, 42, commissionerID)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeNotFound))
}

func TestForcePickRejectsNonCommissioner(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))

	_, err := h.admin.ForcePick(context.Background(), seasonID, 7, 0, 100)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeForbidden))
}

func TestAdvanceSpendsSlotWithoutConsuming(t *testing.T) {
	h := newHarness(t)
	h.startDraft(t, intPtr(60))
	ctx := context.Background()

	p, err := h.admin.Advance(ctx, seasonID, commissionerID)
	require.NoError(t, err)
	assert.Equal(t, models.PickSourceSkip, p.Source)
	assert.Equal(t, 0, p.PokemonID)
	assert.False(t, p.Consumed())

	sess := h.session(t)
	assert.Equal(t, 2, sess.OverallPick, "skip still spends the slot")

	// Next commit lands on the following overall number, gapless.
	next, err := h.intake.SubmitPick(ctx, intake.SubmitPickRequest{
		SeasonID: seasonID, TeamID: 2, AsUserID: 101, PokemonID: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, next.OverallPick)
}
