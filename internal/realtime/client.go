package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/internal/models"
)

const (
	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read next pong message
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Max inbound frame size. Image puts carry base64 data URIs, so this
	// has to clear the 5 MiB payload cap plus encoding overhead.
	maxMessageSize = 8 << 20

	// Outbound frame buffer per connection
	sendBufferSize = 32
)

// Client is one websocket connection to the sync server.
type Client struct {
	id      uuid.UUID
	hub     *Hub
	service *Service
	conn    *websocket.Conn
	send    chan []byte
	logger  zerolog.Logger

	// Subscribed paths and lifecycle flag, both guarded by hub.mu.
	paths    map[string]bool
	detached bool
}

func newClient(hub *Hub, service *Service, conn *websocket.Conn, logger zerolog.Logger) *Client {
	id := uuid.New()
	return &Client{
		id:      id,
		hub:     hub,
		service: service,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		logger:  logger.With().Str("client", id.String()).Logger(),
		paths:   make(map[string]bool),
	}
}

// enqueue hands a frame to the write pump without blocking the caller.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		c.logger.Warn().Msg("send buffer full, dropping frame")
	}
}

func (c *Client) sendError(message string) {
	payload, err := json.Marshal(models.Frame{Op: models.OpError, Message: message})
	if err != nil {
		return
	}
	c.enqueue(payload)
}

// readPump pumps frames from the websocket into the sync service.
func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("unexpected close")
			}
			return
		}
		c.handleFrame(message)
	}
}

func (c *Client) handleFrame(message []byte) {
	var frame models.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.sendError("invalid frame")
		return
	}

	ctx := context.Background()

	switch frame.Op {
	case models.OpSubscribe:
		if err := c.service.Subscribe(ctx, c, frame.Path); err != nil {
			c.sendError(err.Error())
		}
	case models.OpUnsubscribe:
		c.hub.Unregister(c, frame.Path)
	case models.OpPut:
		if err := c.service.Apply(ctx, frame.Path, frame.Value, false); err != nil {
			c.sendError(err.Error())
		}
	case models.OpDelete:
		if err := c.service.Apply(ctx, frame.Path, nil, true); err != nil {
			c.sendError(err.Error())
		}
	default:
		c.sendError("unknown op")
	}
}

// writePump pumps frames from the hub to the websocket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Warn().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
