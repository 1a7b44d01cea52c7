package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jmorrisey/pokedraft/internal/drafterrs"
	"github.com/jmorrisey/pokedraft/internal/models"
)

// MemoryRepository is an in-memory Repository for tests.
type MemoryRepository struct {
	mu           sync.Mutex
	sessions     map[int64]models.DraftSession
	participants map[int64][]models.Participant
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions:     make(map[int64]models.DraftSession),
		participants: make(map[int64][]models.Participant),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) CreateSession(_ context.Context, req CreateSessionRequest) (*models.DraftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[req.SeasonID]; ok {
		return nil, drafterrs.Conflict("season %d already has a draft session", req.SeasonID)
	}

	now := time.Now()
	sess := models.DraftSession{
		SeasonID:       req.SeasonID,
		CommissionerID: req.CommissionerID,
		Status:         models.DraftStatusNotStarted,
		DraftType:      req.DraftType,
		PickTimerSec:   copyInt(req.PickTimerSec),
		Rounds:         copyInt(req.Rounds),
		CustomOrder:    append([]int64(nil), req.CustomOrder...),
		StartsAt:       copyTime(req.StartsAt),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.sessions[req.SeasonID] = sess

	out := sess
	return &out, nil
}

func (r *MemoryRepository) GetSession(_ context.Context, seasonID int64) (*models.DraftSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[seasonID]
	if !ok {
		return nil, drafterrs.NotFound("no draft session for season %d", seasonID)
	}
	out := sess
	out.CustomOrder = append([]int64(nil), sess.CustomOrder...)
	out.PickTimerSec = copyInt(sess.PickTimerSec)
	out.Rounds = copyInt(sess.Rounds)
	out.StartsAt = copyTime(sess.StartsAt)
	out.CurrentDeadlineAt = copyTime(sess.CurrentDeadlineAt)
	out.PausedRemainingSec = copyInt(sess.PausedRemainingSec)
	return &out, nil
}

func (r *MemoryRepository) UpdateSession(_ context.Context, sess *models.DraftSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[sess.SeasonID]
	if !ok {
		return drafterrs.NotFound("no draft session for season %d", sess.SeasonID)
	}
	stored.Status = sess.Status
	stored.CurrentRound = sess.CurrentRound
	stored.CurrentPickInRound = sess.CurrentPickInRound
	stored.OverallPick = sess.OverallPick
	stored.StartsAt = copyTime(sess.StartsAt)
	stored.CurrentDeadlineAt = copyTime(sess.CurrentDeadlineAt)
	stored.PausedRemainingSec = copyInt(sess.PausedRemainingSec)
	stored.UpdatedAt = time.Now()
	r.sessions[sess.SeasonID] = stored
	return nil
}

func (r *MemoryRepository) AddParticipant(_ context.Context, p models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.participants[p.SeasonID] = append(r.participants[p.SeasonID], p)
	return nil
}

func (r *MemoryRepository) ListParticipants(_ context.Context, seasonID int64) ([]models.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := append([]models.Participant(nil), r.participants[seasonID]...)
	sort.Slice(parts, func(i, j int) bool { return parts[i].DraftPosition < parts[j].DraftPosition })
	return parts, nil
}

func (r *MemoryRepository) SetReady(_ context.Context, seasonID, teamID int64, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.participants[seasonID] {
		if r.participants[seasonID][i].TeamID == teamID {
			r.participants[seasonID][i].IsReady = ready
			return nil
		}
	}
	return drafterrs.NotFound("team %d is not registered for season %d", teamID, seasonID)
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
