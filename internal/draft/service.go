// Package draft is the coordination engine facade: one Service exposing the
// session lifecycle, pick intake, commissioner controls, watchlists, and
// presence behind a single surface the transport edge talks to.
package draft

import (
	"context"
	"fmt"

	"github.com/jmorrisey/pokedraft/internal/catalog"
	"github.com/jmorrisey/pokedraft/internal/draft/admin"
	"github.com/jmorrisey/pokedraft/internal/draft/events"
	"github.com/jmorrisey/pokedraft/internal/draft/hub"
	"github.com/jmorrisey/pokedraft/internal/draft/intake"
	"github.com/jmorrisey/pokedraft/internal/draft/pick"
	"github.com/jmorrisey/pokedraft/internal/draft/session"
	"github.com/jmorrisey/pokedraft/internal/draft/watchlist"
	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
)

// Service composes the engine's app layers.
type Service struct {
	sessions   *session.App
	intake     *intake.App
	admin      *admin.App
	picks      pick.Repository
	watchlists watchlist.Repository
	catalog    catalog.Gateway
	hub        *hub.Hub
	publisher  hub.Publisher
}

// NewService wires the facade over already-constructed app layers.
func NewService(
	sessions *session.App,
	in *intake.App,
	ad *admin.App,
	picks pick.Repository,
	watchlists watchlist.Repository,
	cat catalog.Gateway,
	h *hub.Hub,
	publisher hub.Publisher,
) *Service {
	return &Service{
		sessions:   sessions,
		intake:     in,
		admin:      ad,
		picks:      picks,
		watchlists: watchlists,
		catalog:    cat,
		hub:        h,
		publisher:  publisher,
	}
}

// SessionView is the full read model for a season's draft: everything a
// client needs to render the board after connecting.
type SessionView struct {
	Session       models.DraftSession  `json:"session"`
	Participants  []models.Participant `json:"participants"`
	Picks         []models.Pick        `json:"picks"`
	OnClockTeamID int64                `json:"on_clock_team_id,omitempty"`
	OnlineUserIDs []int64              `json:"online_user_ids,omitempty"`
}

// GetView assembles the season's complete draft state.
func (s *Service) GetView(ctx context.Context, seasonID int64) (*SessionView, error) {
	sess, err := s.sessions.GetSession(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	parts, err := s.sessions.ListParticipants(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	picks, err := s.picks.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("listing picks: %w", err)
	}

	view := &SessionView{
		Session:       *sess,
		Participants:  parts,
		Picks:         picks,
		OnlineUserIDs: s.hub.ListOnline(seasonID),
	}
	if sess.Status == models.DraftStatusInProgress || sess.Status == models.DraftStatusPaused {
		if slot, err := session.SlotFor(sess.DraftType, parts, sess.CustomOrder, sess.OverallPick); err == nil {
			view.OnClockTeamID = slot.TeamID
		}
	}
	return view, nil
}

// Session lifecycle.

func (s *Service) CreateSession(ctx context.Context, req session.CreateSessionRequest) (*models.DraftSession, error) {
	return s.sessions.CreateSession(ctx, req)
}

func (s *Service) AddParticipant(ctx context.Context, req session.AddParticipantRequest) error {
	return s.sessions.AddParticipant(ctx, req)
}

func (s *Service) OpenLobby(ctx context.Context, seasonID int64) (*models.DraftSession, error) {
	return s.sessions.OpenLobby(ctx, seasonID)
}

func (s *Service) ToggleReady(ctx context.Context, seasonID, teamID, asUserID int64, ready bool) error {
	if err := s.sessions.SetReady(ctx, seasonID, teamID, asUserID, ready); err != nil {
		return err
	}
	s.publishLobby(ctx, seasonID)
	return nil
}

// Pick intake.

func (s *Service) SubmitPick(ctx context.Context, req intake.SubmitPickRequest) (*models.Pick, error) {
	return s.intake.SubmitPick(ctx, req)
}

// Commissioner controls.

func (s *Service) Start(ctx context.Context, seasonID, asUserID int64, override bool) (*models.DraftSession, error) {
	return s.admin.Start(ctx, seasonID, asUserID, override)
}

func (s *Service) Pause(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error) {
	return s.admin.Pause(ctx, seasonID, asUserID)
}

func (s *Service) Resume(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error) {
	return s.admin.Resume(ctx, seasonID, asUserID)
}

func (s *Service) End(ctx context.Context, seasonID, asUserID int64) (*models.DraftSession, error) {
	return s.admin.End(ctx, seasonID, asUserID)
}

func (s *Service) Advance(ctx context.Context, seasonID, asUserID int64) (*models.Pick, error) {
	return s.admin.Advance(ctx, seasonID, asUserID)
}

func (s *Service) Undo(ctx context.Context, seasonID, asUserID int64) (*models.Pick, error) {
	return s.admin.Undo(ctx, seasonID, asUserID)
}

func (s *Service) ForcePick(ctx context.Context, seasonID int64, pokemonID int, teamID, asUserID int64) (*models.Pick, error) {
	return s.admin.ForcePick(ctx, seasonID, pokemonID, teamID, asUserID)
}

// Watchlists.

func (s *Service) GetWatchlist(ctx context.Context, seasonID, teamID int64) ([]int, error) {
	ids, err := s.watchlists.Get(ctx, seasonID, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading watchlist: %w", err)
	}
	return ids, nil
}

// UpdateWatchlist replaces the team's ordered preference list. Only the
// team's manager may edit it; the commissioner has no business steering
// auto-picks.
func (s *Service) UpdateWatchlist(ctx context.Context, seasonID, teamID, asUserID int64, pokemonIDs []int) error {
	seen := make(map[int]bool, len(pokemonIDs))
	deduped := pokemonIDs[:0:0]
	for _, id := range pokemonIDs {
		if id <= 0 {
			return drafterrs.BadRequest("pokemon_id must be positive, got %d", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		deduped = append(deduped, id)
	}
	pokemonIDs = deduped

	parts, err := s.sessions.ListParticipants(ctx, seasonID)
	if err != nil {
		return err
	}
	p := session.FindParticipant(parts, teamID)
	if p == nil {
		return drafterrs.NotFound("team %d is not registered for season %d", teamID, seasonID)
	}
	if p.ManagerUserID != asUserID {
		return drafterrs.Forbidden("user %d does not manage team %d", asUserID, teamID)
	}

	if err := s.watchlists.Replace(ctx, seasonID, teamID, pokemonIDs); err != nil {
		return fmt.Errorf("replacing watchlist: %w", err)
	}

	s.publisher.Publish(seasonID, hub.KindWatchlist, events.WatchlistPayload{
		SeasonID:   seasonID,
		TeamID:     teamID,
		PokemonIDs: pokemonIDs,
	})
	return nil
}

// Presence.

func (s *Service) Heartbeat(seasonID, userID int64) {
	s.hub.Heartbeat(seasonID, userID)
}

func (s *Service) ListOnline(seasonID int64) []int64 {
	return s.hub.ListOnline(seasonID)
}

// Catalog reads.

func (s *Service) GetPoolEntry(ctx context.Context, seasonID int64, pokemonID int) (*catalog.Entry, error) {
	return s.catalog.GetEntry(ctx, seasonID, pokemonID)
}

// publishLobby pushes a lobby refresh hint after readiness changes.
func (s *Service) publishLobby(ctx context.Context, seasonID int64) {
	sess, err := s.sessions.GetSession(ctx, seasonID)
	if err != nil {
		return
	}
	s.publisher.Publish(seasonID, hub.KindState, events.StatePayload{Session: *sess})
}
