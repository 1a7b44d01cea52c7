// Package clock owns the per-season pick deadline. Each season has at most
// one armed single-shot timer; re-arming always cancels the previous timer
// first, so a deadline can never fire twice.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Policy selects what happens when a pick deadline expires.
type Policy string

const (
	// PolicyAutoPick commits the highest-priority available watchlist entry,
	// falling back to the deterministic catalog default.
	PolicyAutoPick Policy = "auto-pick"
	// PolicySkip records a gap-pick marker and advances the turn.
	PolicySkip Policy = "skip"
)

// TimeoutFunc handles a fired deadline. armedOverall is the overall pick
// number the timer was armed for; the handler must no-op when the session has
// moved past it.
type TimeoutFunc func(ctx context.Context, seasonID int64, armedOverall int)

// TurnClock schedules one-shot pick deadlines keyed by season.
type TurnClock struct {
	clock       clockwork.Clock
	fireTimeout time.Duration

	mu      sync.Mutex
	armed   map[int64]*armedTimer
	timeout TimeoutFunc
}

type armedTimer struct {
	overall   int
	timer     clockwork.Timer
	stopCh    chan struct{}
	cancelled bool // guarded by TurnClock.mu
}

// New creates a TurnClock. Pass clockwork.NewRealClock() in production and a
// FakeClock in tests.
func New(clk clockwork.Clock) *TurnClock {
	return &TurnClock{
		clock:       clk,
		fireTimeout: 10 * time.Second,
		armed:       make(map[int64]*armedTimer),
	}
}

// SetTimeoutFunc wires the timeout handler. Must be called before Arm; kept
// separate from New to break the construction cycle with the intake layer.
func (c *TurnClock) SetTimeoutFunc(fn TimeoutFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = fn
}

// Arm schedules the deadline for the given overall pick. Any previously
// armed timer for the season is cancelled first, so Arm is idempotent under
// re-arming.
func (c *TurnClock) Arm(seasonID int64, overall int, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked(seasonID)

	at := &armedTimer{
		overall: overall,
		timer:   c.clock.NewTimer(d),
		stopCh:  make(chan struct{}),
	}
	c.armed[seasonID] = at

	go c.wait(seasonID, at)

	log.Debug().
		Int64("season_id", seasonID).
		Int("overall_pick", overall).
		Dur("duration", d).
		Msg("armed pick deadline")
}

// Disarm cancels the season's pending deadline, if any.
func (c *TurnClock) Disarm(seasonID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(seasonID)
}

// Shutdown cancels every pending deadline.
func (c *TurnClock) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seasonID := range c.armed {
		c.cancelLocked(seasonID)
	}
}

func (c *TurnClock) wait(seasonID int64, at *armedTimer) {
	select {
	case <-at.timer.Chan():
		c.mu.Lock()
		if at.cancelled {
			// Disarm won the race after the timer channel was consumed.
			c.mu.Unlock()
			return
		}
		if c.armed[seasonID] == at {
			delete(c.armed, seasonID)
		}
		fn := c.timeout
		c.mu.Unlock()

		if fn == nil {
			log.Warn().Int64("season_id", seasonID).Msg("pick deadline fired with no timeout handler")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.fireTimeout)
		defer cancel()
		fn(ctx, seasonID, at.overall)

	case <-at.stopCh:
	}
}

// cancelLocked stops and drains an armed timer. Draining follows the
// time.Timer.Stop contract so the waiting goroutine cannot fire late.
func (c *TurnClock) cancelLocked(seasonID int64) {
	at, ok := c.armed[seasonID]
	if !ok {
		return
	}
	delete(c.armed, seasonID)
	at.cancelled = true
	close(at.stopCh)
	if !at.timer.Stop() {
		select {
		case <-at.timer.Chan():
		default:
		}
	}
	log.Debug().Int64("season_id", seasonID).Msg("cancelled pick deadline")
}
