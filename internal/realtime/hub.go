// Package realtime pushes server events to dashboard WebSocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/authintegrate/authintegrate/internal/notification"
)

const defaultWriteWait = 2 * time.Second

// ErrClosed is returned by Register after Close.
var ErrClosed = errors.New("realtime hub closed")

// Conn is the subset of a WebSocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// StatusSource reports the current hardware connectivity.
type StatusSource interface {
	Connected() bool
}

// Client is a registered connection.
type Client struct {
	conn Conn
	mu   sync.Mutex
	open bool
}

func (c *Client) write(messageType int, data []byte, wait time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(messageType, data, wait)
}

// writeLocked requires c.mu.
func (c *Client) writeLocked(messageType int, data []byte, wait time.Duration) error {
	if !c.open {
		return nil
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.open = false
	_ = c.conn.Close()
}

// Hub keeps the set of open dashboard connections. It implements
// notification.Notifier.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	closed    bool
	status    StatusSource
	logger    *slog.Logger
	writeWait time.Duration
}

// NewHub constructs an empty hub.
func NewHub(status StatusSource, logger *slog.Logger) *Hub {
	return &Hub{
		clients:   make(map[*Client]struct{}),
		status:    status,
		logger:    logger,
		writeWait: defaultWriteWait,
	}
}

// Register adds conn to the broadcast set and sends it the current hardware
// status. The client's write lock is held from before it joins the set until
// the status is written, so a concurrent Send is delivered after the status
// and never skipped.
func (h *Hub) Register(conn Conn) (*Client, error) {
	cl := &Client{conn: conn, open: true}
	cl.mu.Lock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cl.mu.Unlock()
		cl.shutdown()
		return nil, ErrClosed
	}
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	data, err := json.Marshal(notification.HardwareStatus(h.status.Connected()))
	if err == nil {
		err = cl.writeLocked(websocket.TextMessage, data, h.writeWait)
	}
	cl.mu.Unlock()
	if err != nil {
		h.Unregister(cl)
		return nil, err
	}
	return cl, nil
}

// Unregister removes cl from the broadcast set and closes it.
func (h *Hub) Unregister(cl *Client) {
	h.mu.Lock()
	delete(h.clients, cl)
	h.mu.Unlock()
	cl.shutdown()
}

// Count returns the number of registered clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send serializes message once and writes it to every open client in turn.
// It runs on the publisher's goroutine, so a stalled client delays the caller
// by at most writeWait before it is dropped along with any client whose write
// fails.
func (h *Hub) Send(_ context.Context, message notification.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		if err := cl.write(websocket.TextMessage, data, h.writeWait); err != nil {
			h.logger.Warn("websocket write failed", "type", message.Type, "error", err)
			h.Unregister(cl)
		}
	}
	return nil
}

// Close sends a normal-closure frame to every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	for cl := range clients {
		_ = cl.write(websocket.CloseMessage, frame, h.writeWait)
		cl.shutdown()
	}
}

// Upgrade rejects plain HTTP requests to the WebSocket route.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves one WebSocket connection until the peer goes away. Clients
// never send data; the read loop only detects closure.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		cl, err := h.Register(c)
		if err != nil {
			h.logger.Warn("websocket register failed", "error", err)
			return
		}
		defer h.Unregister(cl)
		h.logger.Debug("websocket client connected", "clients", h.Count())

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Warn("websocket closed", "error", err)
				}
				return
			}
		}
	})
}
