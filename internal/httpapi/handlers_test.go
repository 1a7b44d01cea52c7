package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorrisey/pokedraft/internal/catalog"
	"github.com/jmorrisey/pokedraft/internal/draft"
	"github.com/jmorrisey/pokedraft/internal/draft/admin"
	"github.com/jmorrisey/pokedraft/internal/draft/clock"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/intake"
	"github.com/jmorrisey/pokedraft/internal/draft/pick"
	"github.com/jmorrisey/pokedraft/internal/draft/session"
	"github.com/jmorrisey/pokedraft/internal/draft/watchlist"
	"github.com/jmorrisey/pokedraft/internal/models"
	"github.com/jmorrisey/pokedraft/internal/seasonlock"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	clk := clockwork.NewFakeClock()
	sessions := session.NewApp(session.NewMemoryRepository())
	picks := pick.NewMemoryRepository()
	watchlists := watchlist.NewMemoryRepository()

	cat := catalog.NewStatic(map[int64][]catalog.Entry{
		101: {
			{PokemonID: 1, Name: "Bulbasaur", Cost: 10, IsLegal: true},
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

	svc := draft.NewService(sessions, in, ad, picks, watchlists, cat, h, h)

	// Seed a started 2-team draft so pick routes have something to hit.
	ctx := context.Background()
	rounds := 2
	_, err := svc.CreateSession(ctx, session.CreateSessionRequest{
		SeasonID:       101,
		CommissionerID: 1,
		DraftType:      models.DraftTypeSnake,
		Rounds:         &rounds,
	})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		require.NoError(t, svc.AddParticipant(ctx, session.AddParticipantRequest{
			SeasonID:      101,
			TeamID:        int64(i + 1),
			ManagerUserID: int64(100 + i),
			DraftPosition: i + 1,
		}))
	}
	_, err = svc.OpenLobby(ctx, 101)
	require.NoError(t, err)
	require.NoError(t, svc.ToggleReady(ctx, 101, 1, 100, true))
	require.NoError(t, svc.ToggleReady(ctx, 101, 2, 101, true))
	_, err = svc.Start(ctx, 101, 1, false)
	require.NoError(t, err)

	api := New(svc, hub.NewWSGateway(h, hub.DefaultWSConfig()))
	return api.Routes([]string{"*"})
}

func doRequest(t *testing.T, handler http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetViewEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/seasons/101/draft", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view draft.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, models.DraftStatusInProgress, view.Session.Status)
	assert.Equal(t, int64(1), view.OnClockTeamID)
	assert.Len(t, view.Participants, 2)
}

func TestGetViewUnknownSeasonIs404(t *testing.T) {
	h := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/seasons/999/draft", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitPickEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/seasons/101/draft/picks", "100",
		`{"team_id": 1, "pokemon_id": 25}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var p models.Pick
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 25, p.PokemonID)
	assert.Equal(t, 1, p.OverallPick)
}

func TestSubmitPickConflictCarriesTurnContext(t *testing.T) {
	h := newTestServer(t)

	// Team 2 is not on the clock.
	rec := doRequest(t, h, http.MethodPost, "/seasons/101/draft/picks", "101",
		`{"team_id": 2, "pokemon_id": 25}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error struct {
			Code           string `json:"code"`
			CurrentOverall int    `json:"current_overall"`
			OnClockTeamID  int64  `json:"on_clock_team_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Equal(t, 1, body.Error.CurrentOverall)
	assert.Equal(t, int64(1), body.Error.OnClockTeamID)
}

func TestSubmitPickRequiresUserHeader(t *testing.T) {
	h := newTestServer(t)
	rec := doRequest(t, h, http.MethodPost, "/seasons/101/draft/picks", "",
		`{"team_id": 1, "pokemon_id": 25}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForcePickForbiddenForNonCommissioner(t *testing.T) {
	h := newTestServer(t)
	rec := doRequest(t, h, http.MethodPost, "/seasons/101/draft/force-pick", "100",
		`{"pokemon_id": 25}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPauseAndResumeEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodPost, "/seasons/101/draft/pause", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sess models.DraftSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, models.DraftStatusPaused, sess.Status)

	rec = doRequest(t, h, http.MethodPost, "/seasons/101/draft/resume", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	// Pausing a paused draft is a precondition failure.
	rec = doRequest(t, h, http.MethodPost, "/seasons/101/draft/resume", "1", "")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestWatchlistEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := doRequest(t, h, http.MethodPut, "/seasons/101/draft/teams/1/watchlist", "100",
		`{"pokemon_ids": [25, 1]}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/seasons/101/draft/teams/1/watchlist", "100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		PokemonIDs []int `json:"pokemon_ids"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []int{25, 1}, body.PokemonIDs)
}

func TestHeartbeatEndpoint(t *testing.T) {
	h := newTestServer(t)
	rec := doRequest(t, h, http.MethodPost, "/seasons/101/draft/heartbeat", "100", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
