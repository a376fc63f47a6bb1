// Package server defines the JSON event envelope and payload types exchanged
// between clients and the relay, plus utility helpers reused across client
// and hub logic.
package server

import (
	"encoding/json"
	"strings"
)

// Inbound event names accepted from clients.
const (
	EventRegisterUser = "register_user"
	EventJoinRoom     = "join_room"
	EventSendMessage  = "send_message"
)

// Outbound event names emitted by the relay.
const (
	EventUserOnline = "user_online"
	EventUserJoined = "user_joined"
	EventRoomUsers  = "room_users"
	EventNewMessage = "new_message"
	EventUserLeft   = "user_left"
	EventError      = "error"
)

// Envelope is the wire format for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RegisterUserPayload carries the display name announced by a client.
type RegisterUserPayload struct {
	Username string `json:"username" validate:"required"`
}

// JoinRoomPayload names the room a client wants to enter.
type JoinRoomPayload struct {
	Room string `json:"room" validate:"required"`
}

// SendMessagePayload carries a chat message addressed to one room.
type SendMessagePayload struct {
	Room string `json:"room" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// UserOnlinePayload announces a registration to every connection.
type UserOnlinePayload struct {
	Username string `json:"username"`
}

// UserJoinedPayload announces a join to the members of a room.
type UserJoinedPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// RoomUsersPayload is the membership snapshot broadcast after each join.
// Users are listed in join order.
type RoomUsersPayload struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// NewMessagePayload is the fan-out form of a chat message. Timestamp is Unix
// seconds at the moment the relay accepted the message.
type NewMessagePayload struct {
	Room      string `json:"room"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// UserLeftPayload announces a departure to the members of a room.
type UserLeftPayload struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// ErrorPayload is sent only to the connection whose event was rejected.
type ErrorPayload struct {
	Message string `json:"message"`
}

// marshalEvent wraps a payload in the wire envelope.
func marshalEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
