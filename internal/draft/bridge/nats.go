// Package bridge republishes committed draft events onto NATS so sibling
// services (rosters, matchups, analytics) can react without subscribing to
// the in-process hub. Delivery is best-effort: a broker outage never fails
// the mutation that produced the event.
package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/jmorrisey/pokedraft/internal/draft/hub"
)

// Config holds the NATS connection settings.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "pokedraft.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Publisher fans events out to both the local hub and NATS. It satisfies
// hub.Publisher, so the engine wires it in exactly where the hub alone
// would go.
type Publisher struct {
	local  hub.Publisher
	nc     *nats.Conn
	config Config
}

var _ hub.Publisher = (*Publisher)(nil)

// NewPublisher connects to NATS and wraps the local publisher.
func NewPublisher(cfg Config, local hub.Publisher) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &Publisher{local: local, nc: nc, config: cfg}, nil
}

// envelope is the wire form of an event on NATS.
type envelope struct {
	ID        string    `json:"id"`
	SeasonID  int64     `json:"season_id"`
	Kind      hub.Kind  `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Publish delivers locally first, then mirrors the event onto
// <prefix>.<seasonID>. NATS failures are logged and swallowed.
func (p *Publisher) Publish(seasonID int64, kind hub.Kind, payload any) {
	p.local.Publish(seasonID, kind, payload)

	data, err := json.Marshal(envelope{
		ID:        uuid.New().String(),
		SeasonID:  seasonID,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		log.Error().Err(err).Str("kind", string(kind)).Msg("failed to marshal event for NATS")
		return
	}

	subject := fmt.Sprintf("%s.%d", p.config.SubjectPrefix, seasonID)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Error().Err(err).
			Str("subject", subject).
			Str("kind", string(kind)).
			Msg("failed to publish event to NATS")
	}
}

// Close drains the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Error().Err(err).Msg("failed to drain NATS connection")
	}
}
