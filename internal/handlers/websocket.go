package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/voxa-signaling/config"
	"github.com/mossy-p/voxa-signaling/internal/models"
	"github.com/mossy-p/voxa-signaling/internal/relay"
	"github.com/rs/zerolog/log"
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrBufferFull   = errors.New("send buffer full")
)

// SignalingHandler upgrades HTTP requests to WebSocket clients of the relay
type SignalingHandler struct {
	relay    *relay.Relay
	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewSignalingHandler(r *relay.Relay, cfg *config.Config) *SignalingHandler {
	return &SignalingHandler{
		relay: r,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is handled by middleware
				return true
			},
		},
	}
}

// Client represents a WebSocket client connection
type Client struct {
	ID   relay.ConnectionID
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newClient(conn *websocket.Conn, buffer int) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, buffer),
	}
}

// TrySend queues data for the write pump without blocking.
func (c *Client) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// close stops the write pump; it sends a close frame and releases the socket.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// HandleSignaling handles WebSocket connections for WebRTC signaling
func (h *SignalingHandler) HandleSignaling(c *gin.Context) {
	// Upgrade HTTP connection to WebSocket
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("module", "handlers.ws").Msg("failed to upgrade connection")
		return
	}

	client := newClient(conn, h.cfg.SendBuffer)
	client.ID = h.relay.Register(client)

	log.Info().
		Str("module", "handlers.ws").
		Str("conn", string(client.ID)).
		Str("remote", c.ClientIP()).
		Msg("client connected")

	// Start goroutines for reading and writing
	go client.writePump(h.cfg)
	go client.readPump(h.relay, h.cfg)
}

func (c *Client) readPump(r *relay.Relay, cfg *config.Config) {
	defer func() {
		// Unregister before anything else so the peer hears about it and no
		// further message from this client can be dispatched.
		r.Unregister(c.ID)
		c.close()
		log.Info().Str("module", "handlers.ws").Str("conn", string(c.ID)).Msg("client disconnected")
	}()

	c.Conn.SetReadLimit(cfg.ReadLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "handlers.ws").Str("conn", string(c.ID)).Msg("websocket error")
			}
			return
		}

		if err := r.Handle(c.ID, message); err != nil {
			c.sendMessage(models.SignalMessage{
				Type:  models.SignalTypeError,
				Error: relay.ErrorCode(err),
			})
		}
	}
}

func (c *Client) writePump(cfg *config.Config) {
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn().Err(err).Str("module", "handlers.ws").Str("conn", string(c.ID)).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendMessage(msg models.SignalMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "handlers.ws").Msg("failed to marshal message")
		return
	}

	if err := c.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "handlers.ws").Str("conn", string(c.ID)).Msg("failed to send message")
	}
}
