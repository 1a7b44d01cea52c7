// Package hub is the per-season realtime fan-out: a publish/subscribe
// registry of connected draft clients plus heartbeat-based presence. It is
// fully connection-oriented; nothing here touches durable storage.
package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/draft/events"
)

// Kind names a realtime event.
type Kind string

const (
	KindLobby     Kind = "draft:lobby"
	KindState     Kind = "draft:state"
	KindPool      Kind = "draft:pool"
	KindWatchlist Kind = "draft:watchlist"
	KindPresence  Kind = "draft:presence"
)

// Event is one realtime message delivered to season subscribers.
type Event struct {
	ID        string    `json:"id"`
	SeasonID  int64     `json:"season_id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Publisher is the outbound side of the hub, implemented also by the NATS
// bridge. Publishing is best-effort and never returns an error to the
// mutation that triggered it.
type Publisher interface {
	Publish(seasonID int64, kind Kind, payload any)
}

// Config tunes hub behavior.
type Config struct {
	// SubscriberBuffer is the per-subscription channel depth. A subscriber
	// whose buffer is full when an event arrives is dropped.
	SubscriberBuffer int
	// PresenceTTL is the staleness window after which a heartbeat entry is
	// pruned.
	PresenceTTL time.Duration
	// PingInterval is how often the websocket edge sends liveness pings.
	PingInterval time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SubscriberBuffer: 32,
		PresenceTTL:      45 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Hub owns the season rooms. Rooms are created lazily on first subscribe or
// heartbeat and torn down when the last subscriber leaves and presence is
// empty.
type Hub struct {
	cfg   Config
	clock clockwork.Clock

	mu    sync.Mutex
	rooms map[int64]*room
}

type room struct {
	subs     map[*Subscription]struct{}
	presence map[int64]time.Time
}

// New creates a Hub.
func New(cfg Config, clk clockwork.Clock) *Hub {
	return &Hub{
		cfg:   cfg,
		clock: clk,
		rooms: make(map[int64]*room),
	}
}

var _ Publisher = (*Hub)(nil)

// Subscription is one registered client channel. Close is the idempotent
// disposer and must be invoked on every exit path.
type Subscription struct {
	hub      *Hub
	seasonID int64
	ch       chan Event
	once     sync.Once

	// C delivers events until Close.
	C <-chan Event
}

// Subscribe registers a client channel for the season and immediately pushes
// a confirmation event so subscribers can distinguish "connected" from
// "network stalled".
func (h *Hub) Subscribe(seasonID int64) *Subscription {
	sub := &Subscription{
		hub:      h,
		seasonID: seasonID,
		ch:       make(chan Event, h.cfg.SubscriberBuffer),
	}
	sub.C = sub.ch

	h.mu.Lock()
	rm := h.roomLocked(seasonID)
	rm.subs[sub] = struct{}{}
	count := len(rm.subs)

	// Buffer is empty at this point, so the confirmation cannot be dropped.
	sub.ch <- h.newEvent(seasonID, KindLobby, events.LobbyPayload{
		SeasonID:    seasonID,
		ConnectedAt: h.clock.Now(),
	})
	h.mu.Unlock()

	log.Debug().Int64("season_id", seasonID).Int("subscribers", count).Msg("subscriber registered")
	return sub
}

// Close deregisters the subscription and closes its channel. Safe to call
// any number of times; it is the disposer every subscriber exit path must
// invoke.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	s.closeLocked()
	s.hub.mu.Unlock()
}

func (s *Subscription) closeLocked() {
	s.once.Do(func() {
		if rm, ok := s.hub.rooms[s.seasonID]; ok {
			delete(rm.subs, s)
			s.hub.maybeReapLocked(s.seasonID, rm)
		}
		close(s.ch)
	})
}

// Publish delivers the event to every current subscriber for the season.
// Delivery is at-most-once: a subscriber whose buffer is full is dropped
// immediately, with no retry or buffering. Sends are non-blocking and happen
// under the short-held hub lock, so a publish can never race a close.
func (h *Hub) Publish(seasonID int64, kind Kind, payload any) {
	ev := h.newEvent(seasonID, kind, payload)

	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[seasonID]
	if !ok {
		return
	}

	var dropped []*Subscription
	delivered := 0
	for sub := range rm.subs {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			dropped = append(dropped, sub)
		}
	}
	for _, sub := range dropped {
		log.Warn().
			Int64("season_id", seasonID).
			Str("kind", string(kind)).
			Msg("subscriber buffer full, dropping subscriber")
		sub.closeLocked()
	}

	log.Debug().
		Int64("season_id", seasonID).
		Str("kind", string(kind)).
		Int("subscribers", delivered).
		Msg("event published")
}

// SubscriberCount reports the season's registered subscriber count.
func (h *Hub) SubscriberCount(seasonID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	rm, ok := h.rooms[seasonID]
	if !ok {
		return 0
	}
	return len(rm.subs)
}

// PingInterval exposes the configured liveness interval to the websocket
// edge.
func (h *Hub) PingInterval() time.Duration {
	return h.cfg.PingInterval
}

func (h *Hub) newEvent(seasonID int64, kind Kind, payload any) Event {
	return Event{
		ID:        uuid.New().String(),
		SeasonID:  seasonID,
		Kind:      kind,
		Timestamp: h.clock.Now(),
		Payload:   payload,
	}
}

// roomLocked returns the season room, creating it lazily.
func (h *Hub) roomLocked(seasonID int64) *room {
	rm, ok := h.rooms[seasonID]
	if !ok {
		rm = &room{
			subs:     make(map[*Subscription]struct{}),
			presence: make(map[int64]time.Time),
		}
		h.rooms[seasonID] = rm
		log.Debug().Int64("season_id", seasonID).Msg("season room created")
	}
	return rm
}

// maybeReapLocked tears the room down once it holds no subscribers and no
// presence entries.
func (h *Hub) maybeReapLocked(seasonID int64, rm *room) {
	if len(rm.subs) == 0 && len(rm.presence) == 0 {
		delete(h.rooms, seasonID)
		log.Debug().Int64("season_id", seasonID).Msg("season room reaped")
	}
}
