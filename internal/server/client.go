// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Client represents a WebSocket client connection in the chat system. It
// carries the opaque connection identifier used by the coordinator, the
// send channel drained by the write pump, and per-connection limits.
type Client struct {
	conn           *websocket.Conn
	id             string
	send           chan []byte
	hub            *Hub
	coord          *Coordinator
	log            *slog.Logger
	addr           string
	closed         bool
	maxMessageSize int64
	limiter        *rate.Limiter
	rateLimit      RateLimitConfig
}

// NewClient creates a new Client instance with the provided WebSocket
// connection, hub, coordinator, connection identifier, and remote address.
// The send channel is buffered to absorb fan-out bursts.
func NewClient(conn *websocket.Conn, hub *Hub, coord *Coordinator, id, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		conn:           conn,
		id:             id,
		send:           make(chan []byte, 256),
		hub:            hub,
		coord:          coord,
		log:            hub.log,
		addr:           addr,
		closed:         false,
		maxMessageSize: cfg.MaxMessageSize,
		limiter:        newEventLimiter(cfg.RateLimit),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the opaque connection identifier. Identifiers are never reused
// within a process lifetime.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing events.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection.
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
		c.log.Error("setting initial read deadline", "conn", c.id, "err", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); err != nil {
			c.log.Error("setting read deadline in pong handler", "conn", c.id, "err", err)
		}
		return nil
	})
}

// handleReadError logs appropriate messages based on the error type and
// returns true if the read loop should break.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn("message exceeded maximum size", "conn", c.id, "max_bytes", c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		c.log.Debug("client disconnected", "conn", c.id, "err", err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.log.Debug("client connection closed", "conn", c.id, "err", err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		c.log.Warn("unexpected websocket error", "conn", c.id, "err", err)
		return true
	}

	c.log.Warn("websocket read error", "conn", c.id, "err", err)
	return true
}

// checkRateLimit verifies if the client has exceeded rate limits and returns
// true if the event should be processed.
func (c *Client) checkRateLimit() bool {
	if c.limiter != nil && !c.limiter.Allow() {
		c.log.Warn("rate limit exceeded; discarding event",
			"conn", c.id, "burst", c.rateLimit.Burst, "interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processEvent hands one raw inbound event to the coordinator. A rejected
// event is dropped and the error is surfaced to this connection only.
func (c *Client) processEvent(raw []byte) {
	if err := c.coord.HandleEvent(c.id, raw); err != nil {
		c.log.Warn("event rejected", "conn", c.id, "err", err)
		c.surfaceError(err)
	}
}

// surfaceError queues an error event for this connection without blocking.
// The send channel may already be closed if the hub dropped the client, so
// the send is panic-guarded.
func (c *Client) surfaceError(err error) {
	defer func() { _ = recover() }()

	payload, mErr := marshalEvent(EventError, ErrorPayload{Message: err.Error()})
	if mErr != nil {
		c.log.Error("encoding error event", "conn", c.id, "err", mErr)
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		// Room cleanup and leave notifications run before the hub discards
		// the connection, so user_left events can still resolve the name.
		c.coord.Disconnect(c.id)
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
			// Hub loop already stopped; shutdown tears the client down.
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				c.log.Error("closing connection in readPump", "conn", c.id, "err", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processEvent(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleOutbound(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// closeConnection closes the WebSocket connection, logging only unexpected errors.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Error("closing connection in writePump", "conn", c.id, "err", err)
		}
	}
}

// handleOutbound writes one queued event, draining any backlog into the same
// frame, and returns false if the connection should be closed.
func (c *Client) handleOutbound(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Error("setting write deadline", "conn", c.id, "err", err)
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			if !isExpectedCloseError(err) {
				c.log.Error("writing close message", "conn", c.id, "err", err)
			}
		}
		return false
	}

	w, err := c.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		c.log.Error("creating writer", "conn", c.id, "err", err)
		return false
	}
	if _, err := w.Write(message); err != nil {
		c.log.Error("writing event", "conn", c.id, "err", err)
		return false
	}

	// Drain queued events, one frame line each.
	n := len(c.send)
	for i := 0; i < n; i++ {
		if _, err := w.Write([]byte{'\n'}); err != nil {
			c.log.Error("writing separator", "conn", c.id, "err", err)
			return false
		}
		if _, err := w.Write(<-c.send); err != nil {
			c.log.Error("writing queued event", "conn", c.id, "err", err)
			return false
		}
	}

	if err := w.Close(); err != nil {
		c.log.Error("closing writer", "conn", c.id, "err", err)
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive.
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		c.log.Error("setting write deadline for ping", "conn", c.id, "err", err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Error("writing ping message", "conn", c.id, "err", err)
		}
		return false
	}
	return true
}
