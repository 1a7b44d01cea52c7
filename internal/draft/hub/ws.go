package hub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSConfig holds the websocket edge tuning knobs.
type WSConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// WSGateway upgrades HTTP requests into season-scoped websocket connections
// backed by hub subscriptions. Each connection owns one Subscription; the
// write pump forwards its events and the read pump feeds client heartbeats
// into presence tracking.
type WSGateway struct {
	hub      *Hub
	upgrader websocket.Upgrader
	config   WSConfig
}

// NewWSGateway creates a websocket gateway over the hub.
func NewWSGateway(h *Hub, config WSConfig) *WSGateway {
	return &WSGateway{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

type wsConn struct {
	id       string
	seasonID int64
	userID   int64
	conn     *websocket.Conn
	sub      *Subscription
	gateway  *WSGateway
}

// clientMessage is the envelope for messages the browser sends upstream.
// Only heartbeats are accepted today.
type clientMessage struct {
	Type string `json:"type"`
}

// UpgradeConnection upgrades an HTTP request to a websocket, subscribes it
// to the season's event stream, and records an initial heartbeat for the
// user.
func (g *WSGateway) UpgradeConnection(w http.ResponseWriter, r *http.Request, seasonID, userID int64) error {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	c := &wsConn{
		id:       uuid.New().String(),
		seasonID: seasonID,
		userID:   userID,
		conn:     conn,
		sub:      g.hub.Subscribe(seasonID),
		gateway:  g,
	}

	g.hub.Heartbeat(seasonID, userID)

	go c.writePump()
	go c.readPump()

	log.Info().
		Str("connection_id", c.id).
		Int64("user_id", userID).
		Int64("season_id", seasonID).
		Msg("WebSocket connection established")

	return nil
}

// writePump forwards hub events to the socket and sends liveness pings. It
// owns all writes; gorilla connections allow one concurrent writer.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.gateway.hub.PingInterval())
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.sub.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.config.WriteTimeout))
			if !ok {
				// Subscription was dropped by the hub.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Error().Err(err).Str("connection_id", c.id).Msg("failed to marshal event")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump consumes client frames. Pongs extend the read deadline; heartbeat
// messages refresh presence.
func (c *wsConn) readPump() {
	defer func() {
		c.sub.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.gateway.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.gateway.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.gateway.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.conn.SetReadDeadline(time.Now().Add(c.gateway.config.ReadTimeout))
	}
}

func (c *wsConn) handleClientMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Debug().
			Str("connection_id", c.id).
			Err(err).
			Msg("ignoring malformed client message")
		return
	}

	switch msg.Type {
	case "heartbeat":
		c.gateway.hub.Heartbeat(c.seasonID, c.userID)
	default:
		log.Debug().
			Str("connection_id", c.id).
			Str("type", msg.Type).
			Msg("ignoring unknown client message type")
	}
}
