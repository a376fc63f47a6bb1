// Package server coordinates registration, room membership, message fan-out,
// and disconnect cleanup for the roomrelay system via the Coordinator type.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// Broadcaster is the transport collaborator the Coordinator fans events out
// through. Broadcasts are fire-and-forget: a slow or unreachable recipient
// must never stall the caller. The Hub is the production implementation.
type Broadcaster interface {
	BroadcastAll(event string, data any)
	BroadcastRoom(room, event string, data any)
	JoinGroup(connID, group string)
	LeaveGroup(connID, group string)
}

// Coordinator owns the connection registry and room directory and applies
// every inbound event against them. A single mutex serializes event handling
// so that concurrent joins, sends, and disconnects touching the same room or
// connection cannot interleave half-applied.
type Coordinator struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry *Registry
	rooms    *RoomDirectory
	tx       Broadcaster
	validate *validator.Validate
	now      func() time.Time
}

// NewCoordinator creates a Coordinator wired to the given transport.
func NewCoordinator(logger *slog.Logger, tx Broadcaster) *Coordinator {
	return &Coordinator{
		log:      logger,
		registry: NewRegistry(),
		rooms:    NewRoomDirectory(),
		tx:       tx,
		validate: validator.New(),
		now:      time.Now,
	}
}

// HandleEvent decodes and dispatches one inbound event from a connection.
// A non-nil error is surfaced to the originating connection only; registry
// and room state are untouched by failed events.
func (c *Coordinator) HandleEvent(connID string, raw []byte) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch env.Event {
	case EventRegisterUser:
		return c.registerUser(connID, env.Data)
	case EventJoinRoom:
		return c.joinRoom(connID, env.Data)
	case EventSendMessage:
		return c.sendMessage(connID, env.Data)
	default:
		return fmt.Errorf("%w: unknown event %q", ErrMalformedPayload, env.Event)
	}
}

// registerUser stores the display name for a connection and announces it to
// every connection.
func (c *Coordinator) registerUser(connID string, data json.RawMessage) error {
	var p RegisterUserPayload
	if err := c.decode(data, &p); err != nil {
		return err
	}
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		return fmt.Errorf("%w: username is required", ErrMalformedPayload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry.Register(connID, p.Username)
	c.log.Info("user registered", "conn", connID, "username", p.Username)
	c.tx.BroadcastAll(EventUserOnline, UserOnlinePayload{Username: p.Username})
	return nil
}

// joinRoom adds the connection to a room, creating the room on first use,
// and broadcasts the join plus a membership snapshot to the room.
func (c *Coordinator) joinRoom(connID string, data json.RawMessage) error {
	var p JoinRoomPayload
	if err := c.decode(data, &p); err != nil {
		return err
	}
	p.Room = strings.TrimSpace(p.Room)
	if p.Room == "" {
		return fmt.Errorf("%w: room is required", ErrMalformedPayload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	username := c.registry.Lookup(connID)
	c.rooms.EnsureRoom(p.Room)
	c.rooms.Join(p.Room, connID)
	c.tx.JoinGroup(connID, p.Room)

	c.log.Info("room joined", "conn", connID, "username", username, "room", p.Room)
	c.tx.BroadcastRoom(p.Room, EventUserJoined, UserJoinedPayload{Username: username, Room: p.Room})
	c.tx.BroadcastRoom(p.Room, EventRoomUsers, RoomUsersPayload{
		Room: p.Room,
		Users: lo.Map(c.rooms.MembersOf(p.Room), func(id string, _ int) string {
			return c.registry.Lookup(id)
		}),
	})
	return nil
}

// sendMessage relays a chat message to the members of a room. The sender must
// currently be a member; otherwise the event fails and nothing is broadcast.
func (c *Coordinator) sendMessage(connID string, data json.RawMessage) error {
	var p SendMessagePayload
	if err := c.decode(data, &p); err != nil {
		return err
	}
	p.Room = strings.TrimSpace(p.Room)
	if p.Room == "" || strings.TrimSpace(p.Text) == "" {
		return fmt.Errorf("%w: room and text are required", ErrMalformedPayload)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.rooms.IsMember(p.Room, connID) {
		return ErrNotAMember
	}

	c.tx.BroadcastRoom(p.Room, EventNewMessage, NewMessagePayload{
		Room:      p.Room,
		Username:  c.registry.Lookup(connID),
		Text:      p.Text,
		Timestamp: c.now().Unix(),
	})
	return nil
}

// Disconnect purges all state for a connection. Each room the connection was
// a member of is left and notified before the display name is removed, so the
// user_left events still resolve the name.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	username := c.registry.Lookup(connID)
	for _, room := range c.rooms.RoomsContaining(connID) {
		c.rooms.Leave(room, connID)
		c.tx.LeaveGroup(connID, room)
		c.tx.BroadcastRoom(room, EventUserLeft, UserLeftPayload{Username: username, Room: room})
	}
	c.registry.Remove(connID)
	c.log.Info("connection purged", "conn", connID, "username", username)
}

// decode unmarshals an event payload and applies struct validation.
func (c *Coordinator) decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrMalformedPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := c.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
