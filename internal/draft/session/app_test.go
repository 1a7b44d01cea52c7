package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	return NewApp(NewMemoryRepository())
}

func createSnakeSession(t *testing.T, app *App, seasonID int64, teamCount int) *models.DraftSession {
	t.Helper()
	ctx := context.Background()

	timer := 60
	rounds := 3
	sess, err := app.CreateSession(ctx, CreateSessionRequest{
		SeasonID:       seasonID,
		CommissionerID: 1,
		DraftType:      models.DraftTypeSnake,
		PickTimerSec:   &timer,
		Rounds:         &rounds,
	})
	require.NoError(t, err)

	for i := 0; i < teamCount; i++ {
		require.NoError(t, app.AddParticipant(ctx, AddParticipantRequest{
			SeasonID:      seasonID,
			TeamID:        int64(i + 1),
			ManagerUserID: int64(100 + i),
			DraftPosition: i + 1,
		}))
	}
	return sess
}

func TestCreateSessionDuplicateIsConflict(t *testing.T) {
	app := newTestApp(t)
	createSnakeSession(t, app, 101, 2)

	_, err := app.CreateSession(context.Background(), CreateSessionRequest{
		SeasonID:       101,
		CommissionerID: 1,
		DraftType:      models.DraftTypeSnake,
	})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeConflict))
}

func TestCreateSessionValidation(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, err := app.CreateSession(ctx, CreateSessionRequest{CommissionerID: 1, DraftType: models.DraftTypeSnake})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeBadRequest), "missing season")

	_, err = app.CreateSession(ctx, CreateSessionRequest{SeasonID: 101, CommissionerID: 1, DraftType: "MYSTERY"})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeBadRequest), "bad draft type")

	zero := 0
	_, err = app.CreateSession(ctx, CreateSessionRequest{
		SeasonID: 101, CommissionerID: 1, DraftType: models.DraftTypeSnake, PickTimerSec: &zero,
	})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeBadRequest), "zero timer")

	_, err = app.CreateSession(ctx, CreateSessionRequest{
		SeasonID: 101, CommissionerID: 1, DraftType: models.DraftTypeCustom,
	})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeBadRequest), "custom without rounds")
}

func TestAddParticipantRules(t *testing.T) {
	app := newTestApp(t)
	createSnakeSession(t, app, 101, 2)
	ctx := context.Background()

	err := app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 1, ManagerUserID: 9, DraftPosition: 3})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeConflict), "duplicate team")

	err = app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 3, ManagerUserID: 9, DraftPosition: 2})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeConflict), "duplicate position")

	err = app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 3, ManagerUserID: 9, DraftPosition: 0})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeBadRequest), "position below 1")
}

func TestAddParticipantRejectedAfterLobbyOpens(t *testing.T) {
	app := newTestApp(t)
	createSnakeSession(t, app, 101, 2)
	ctx := context.Background()

	_, err := app.OpenLobby(ctx, 101)
	require.NoError(t, err)

	err = app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 3, ManagerUserID: 9, DraftPosition: 3})
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))
}

func TestOpenLobbyRequiresTwoParticipants(t *testing.T) {
	app := newTestApp(t)
	createSnakeSession(t, app, 101, 1)

	_, err := app.OpenLobby(context.Background(), 101)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))
}

func TestOpenLobbyRequiresContiguousPositions(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	_, err := app.CreateSession(ctx, CreateSessionRequest{
		SeasonID: 101, CommissionerID: 1, DraftType: models.DraftTypeSnake,
	})
	require.NoError(t, err)
	require.NoError(t, app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 1, ManagerUserID: 9, DraftPosition: 1}))
	require.NoError(t, app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 2, ManagerUserID: 9, DraftPosition: 3}))

	_, err = app.OpenLobby(ctx, 101)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))
}

func TestOpenLobbyValidatesCustomOrder(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	rounds := 2
	_, err := app.CreateSession(ctx, CreateSessionRequest{
		SeasonID:       101,
		CommissionerID: 1,
		DraftType:      models.DraftTypeCustom,
		Rounds:         &rounds,
		CustomOrder:    []int64{1, 2, 2}, // one slot short
	})
	require.NoError(t, err)
	require.NoError(t, app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 1, ManagerUserID: 9, DraftPosition: 1}))
	require.NoError(t, app.AddParticipant(ctx, AddParticipantRequest{SeasonID: 101, TeamID: 2, ManagerUserID: 9, DraftPosition: 2}))

	_, err = app.OpenLobby(ctx, 101)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))
}

func TestSetReadyAuthorization(t *testing.T) {
	app := newTestApp(t)
	createSnakeSession(t, app, 101, 2)
	ctx := context.Background()

	_, err := app.OpenLobby(ctx, 101)
	require.NoError(t, err)

	// Manager of team 1 is user 100.
	require.NoError(t, app.SetReady(ctx, 101, 1, 100, true))
	// The commissioner may toggle any team.
	require.NoError(t, app.SetReady(ctx, 101, 2, 1, true))

	err = app.SetReady(ctx, 101, 1, 555, true)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeForbidden))

	err = app.SetReady(ctx, 101, 42, 1, true)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodeNotFound))
}

func TestSetReadyOnlyInLobby(t *testing.T) {
	app := newTestApp(t)
	createSnakeSession(t, app, 101, 2)

	err := app.SetReady(context.Background(), 101, 1, 100, true)
	assert.True(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed))
}

func TestValidateTransition(t *testing.T) {
	ok := [][2]models.DraftStatus{
		{models.DraftStatusNotStarted, models.DraftStatusLobby},
		{models.DraftStatusLobby, models.DraftStatusInProgress},
		{models.DraftStatusInProgress, models.DraftStatusPaused},
		{models.DraftStatusPaused, models.DraftStatusInProgress},
		{models.DraftStatusNotStarted, models.DraftStatusCompleted},
		{models.DraftStatusLobby, models.DraftStatusCompleted},
		{models.DraftStatusInProgress, models.DraftStatusCompleted},
		{models.DraftStatusPaused, models.DraftStatusCompleted},
	}
	for _, tc := range ok {
		assert.NoErrorf(t, ValidateTransition(tc[0], tc[1]), "%s -> %s", tc[0], tc[1])
	}

	bad := [][2]models.DraftStatus{
		{models.DraftStatusNotStarted, models.DraftStatusInProgress},
		{models.DraftStatusLobby, models.DraftStatusPaused},
		{models.DraftStatusCompleted, models.DraftStatusInProgress},
		{models.DraftStatusCompleted, models.DraftStatusLobby},
		{models.DraftStatusInProgress, models.DraftStatusInProgress},
	}
	for _, tc := range bad {
		err := ValidateTransition(tc[0], tc[1])
		assert.Truef(t, drafterrs.IsCode(err, drafterrs.CodePreconditionFailed), "%s -> %s", tc[0], tc[1])
	}
}
