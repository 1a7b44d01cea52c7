// Package httpapi is the HTTP edge of the draft engine: JSON handlers over
// the draft Service plus the websocket upgrade endpoint. Authentication is
// terminated upstream; the acting user arrives in the X-User-ID header.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/draft"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/intake"
	"github.com/jmorrisey/pokedraft/internal/draft/session"
	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
)

// API holds the handler dependencies.
type API struct {
	svc *draft.Service
	ws  *hub.WSGateway
}

// New creates the HTTP API over the draft service.
func New(svc *draft.Service, ws *hub.WSGateway) *API {
	return &API{svc: svc, ws: ws}
}

// errorBody is the JSON error envelope. Turn context fields are present only
// on turn/state conflicts.
type errorBody struct {
	Code           drafterrs.Code `json:"code"`
	Message        string         `json:"message"`
	CurrentOverall int            `json:"current_overall,omitempty"`
	OnClockTeamID  int64          `json:"on_clock_team_id,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	status := drafterrs.HTTPStatus(err)
	body := errorBody{Code: drafterrs.CodeOf(err), Message: err.Error()}

	var de *drafterrs.Error
	if errors.As(err, &de) {
		body.CurrentOverall = de.CurrentOverall
		body.OnClockTeamID = de.OnClockTeamID
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("internal error")
		body.Message = "internal error"
	}

	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return drafterrs.BadRequest("invalid request body: %s", err)
	}
	return nil
}

func seasonIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "seasonID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, drafterrs.BadRequest("invalid season id")
	}
	return id, nil
}

func teamIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "teamID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, drafterrs.BadRequest("invalid team id")
	}
	return id, nil
}

// actingUser reads the authenticated user forwarded by the gateway.
func actingUser(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, drafterrs.BadRequest("missing or invalid X-User-ID header")
	}
	return id, nil
}

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (a *API) createSession(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req session.CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.SeasonID = seasonID
	req.CommissionerID = userID

	sess, err := a.svc.CreateSession(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (a *API) getView(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := a.svc.GetView(r.Context(), seasonID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) addParticipant(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req session.AddParticipantRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.SeasonID = seasonID

	if err := a.svc.AddParticipant(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) openLobby(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := a.svc.OpenLobby(r.Context(), seasonID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) toggleReady(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		TeamID int64 `json:"team_id"`
		Ready  bool  `json:"ready"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := a.svc.ToggleReady(r.Context(), seasonID, req.TeamID, userID, req.Ready); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) submitPick(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req intake.SubmitPickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.SeasonID = seasonID
	req.AsUserID = userID

	p, err := a.svc.SubmitPick(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) start(w http.ResponseWriter, r *http.Request) {
	seasonID, userID, err := seasonAndUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Override bool `json:"override"`
	}
	// Empty bodies are fine; override defaults to false.
	_ = json.NewDecoder(r.Body).Decode(&req)

	sess, err := a.svc.Start(r.Context(), seasonID, userID, req.Override)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (a *API) pause(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.svc.Pause)
}

func (a *API) resume(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.svc.Resume)
}

func (a *API) end(w http.ResponseWriter, r *http.Request) {
	a.sessionAction(w, r, a.svc.End)
}

func (a *API) advance(w http.ResponseWriter, r *http.Request) {
	seasonID, userID, err := seasonAndUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.Advance(r.Context(), seasonID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) undo(w http.ResponseWriter, r *http.Request) {
	seasonID, userID, err := seasonAndUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := a.svc.Undo(r.Context(), seasonID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) forcePick(w http.ResponseWriter, r *http.Request) {
	seasonID, userID, err := seasonAndUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		PokemonID int   `json:"pokemon_id"`
		TeamID    int64 `json:"team_id"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := a.svc.ForcePick(r.Context(), seasonID, req.PokemonID, req.TeamID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) getWatchlist(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	teamID, err := teamIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ids, err := a.svc.GetWatchlist(r.Context(), seasonID, teamID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"pokemon_ids": ids})
}

func (a *API) updateWatchlist(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	teamID, err := teamIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		PokemonIDs []int `json:"pokemon_ids"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := a.svc.UpdateWatchlist(r.Context(), seasonID, teamID, userID, req.PokemonIDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) heartbeat(w http.ResponseWriter, r *http.Request) {
	seasonID, userID, err := seasonAndUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	a.svc.Heartbeat(seasonID, userID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) websocket(w http.ResponseWriter, r *http.Request) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	// Browsers cannot set headers on websocket dials, so the user rides the
	// query string here.
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, drafterrs.BadRequest("missing or invalid user_id"))
		return
	}

	if err := a.ws.UpgradeConnection(w, r, seasonID, userID); err != nil {
		log.Error().Err(err).Int64("season_id", seasonID).Msg("websocket upgrade failed")
	}
}

// sessionAction runs a commissioner lifecycle transition that takes no body
// and returns the updated session.
func (a *API) sessionAction(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error),
) {
	seasonID, userID, err := seasonAndUser(r)
	if err != nil {
		writeError(w, err)
		return
	}
	sess, err := fn(r.Context(), seasonID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func seasonAndUser(r *http.Request) (int64, int64, error) {
	seasonID, err := seasonIDParam(r)
	if err != nil {
		return 0, 0, err
	}
	userID, err := actingUser(r)
	if err != nil {
		return 0, 0, err
	}
	return seasonID, userID, nil
}
