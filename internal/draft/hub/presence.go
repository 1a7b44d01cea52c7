package hub

import (
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/draft/events"
)

// Heartbeat records that the user is viewing the season's draft. Entries not
// refreshed within the presence TTL are pruned on the next heartbeat or
// listing. A presence event is published only when the online set actually
// changed, so steady-state heartbeats are silent.
func (h *Hub) Heartbeat(seasonID, userID int64) {
	h.mu.Lock()
	rm := h.roomLocked(seasonID)
	before := onlineLocked(rm, h.clock.Now().Add(-h.cfg.PresenceTTL))
	rm.presence[userID] = h.clock.Now()
	h.pruneLocked(seasonID, rm)
	after := onlineLocked(rm, h.clock.Now().Add(-h.cfg.PresenceTTL))
	changed := !slices.Equal(before, after)
	h.mu.Unlock()

	if changed {
		log.Debug().Int64("season_id", seasonID).Int64("user_id", userID).Msg("presence changed")
		h.Publish(seasonID, KindPresence, events.PresencePayload{
			SeasonID: seasonID,
			UserIDs:  after,
		})
	}
}

// ListOnline returns the sorted user IDs with a heartbeat inside the TTL.
// Stale entries are pruned as a side effect.
func (h *Hub) ListOnline(seasonID int64) []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[seasonID]
	if !ok {
		return nil
	}
	h.pruneLocked(seasonID, rm)
	return onlineLocked(rm, h.clock.Now().Add(-h.cfg.PresenceTTL))
}

// pruneLocked removes entries whose last heartbeat fell outside the TTL and
// reaps the room if that emptied it.
func (h *Hub) pruneLocked(seasonID int64, rm *room) {
	cutoff := h.clock.Now().Add(-h.cfg.PresenceTTL)
	for userID, seen := range rm.presence {
		if seen.Before(cutoff) {
			delete(rm.presence, userID)
		}
	}
	h.maybeReapLocked(seasonID, rm)
}

func onlineLocked(rm *room, cutoff time.Time) []int64 {
	ids := make([]int64, 0, len(rm.presence))
	for userID, seen := range rm.presence {
		if !seen.Before(cutoff) {
			ids = append(ids, userID)
		}
	}
	slices.Sort(ids)
	return ids
}
