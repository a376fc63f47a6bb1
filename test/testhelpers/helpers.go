// Package testhelpers provides common utilities and helper functions for
// testing the roomrelay server.
//
// This package contains reusable test utilities shared across unit and
// integration tests: starting wired test servers, dialing authenticated
// WebSocket connections, and reading events from the newline-batched frames
// the write pump produces.
package testhelpers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/braxle/roomrelay/internal/server"
)

// TestSecret is the shared-secret token used by test configurations.
const TestSecret = "11713"

// StartTestServer wires a hub, coordinator, and router, starts them on an
// httptest server, and registers cleanup. The active configuration allows
// the test server's own origin.
func StartTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	// Server goroutines can outlive the test body, so logs go to io.Discard
	// rather than t.Logf.
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
	hub := server.NewHub(logger)
	go hub.Run()

	coord := server.NewCoordinator(logger, hub)
	ts := httptest.NewServer(server.SetupRoutes(hub, coord))

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{ts.URL}
	server.SetConfig(cfg)

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
		server.SetConfig(nil)
	})
	return ts
}

// WebSocketURL converts an httptest server URL into its ws:// /ws endpoint.
func WebSocketURL(t *testing.T, serverURL string) string {
	t.Helper()
	if !strings.HasPrefix(serverURL, "http") {
		t.Fatalf("unexpected test server URL: %s", serverURL)
	}
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// DialChat opens an authenticated WebSocket connection carrying the token in
// the query string and the given Origin header.
func DialChat(t *testing.T, wsURL, token, origin string) *websocket.Conn {
	t.Helper()
	conn, resp, err := DialChatRaw(wsURL, token, origin)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

// DialChatRaw is DialChat without the fatal-on-error behavior, for tests that
// expect the handshake to be refused.
func DialChatRaw(wsURL, token, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	if token != "" {
		wsURL += "?token=" + token
	}
	return dialer.Dial(wsURL, header)
}

// SendEvent writes one event envelope to the connection.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal payload: %v", err)
	}
	if err := conn.WriteJSON(server.Envelope{Event: event, Data: raw}); err != nil {
		t.Fatalf("Failed to send %s event: %v", event, err)
	}
}

// EventReader decodes envelopes from a connection, splitting the
// newline-batched frames produced by the write pump.
type EventReader struct {
	conn  *websocket.Conn
	queue []server.Envelope
}

// NewEventReader wraps a connection for envelope-by-envelope reads.
func NewEventReader(conn *websocket.Conn) *EventReader {
	return &EventReader{conn: conn}
}

// Next returns the next envelope, reading a new frame when the queue is
// empty. The deadline bounds the blocking read.
func (r *EventReader) Next(deadline time.Duration) (server.Envelope, error) {
	if len(r.queue) == 0 {
		if err := r.conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
			return server.Envelope{}, err
		}
		_, frame, err := r.conn.ReadMessage()
		if err != nil {
			return server.Envelope{}, err
		}
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			if len(line) == 0 {
				continue
			}
			var env server.Envelope
			if err := json.Unmarshal(line, &env); err != nil {
				return server.Envelope{}, err
			}
			r.queue = append(r.queue, env)
		}
	}
	env := r.queue[0]
	r.queue = r.queue[1:]
	return env, nil
}

// WaitForEvent reads envelopes until one matches the wanted event name,
// discarding interleaved events, and fails the test after the timeout.
func WaitForEvent(t *testing.T, r *EventReader, event string, timeout time.Duration) server.Envelope {
	t.Helper()
	stop := time.Now().Add(timeout)
	for {
		remaining := time.Until(stop)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %s event", event)
		}
		env, err := r.Next(remaining)
		if err != nil {
			t.Fatalf("Failed reading while waiting for %s event: %v", event, err)
		}
		if env.Event == event {
			return env
		}
	}
}

// DecodePayload unmarshals an envelope's data into dst.
func DecodePayload(t *testing.T, env server.Envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("Failed to decode %s payload: %v", env.Event, err)
	}
}

// ExpectNoEvent asserts that no event named `event` arrives within the window.
func ExpectNoEvent(t *testing.T, r *EventReader, event string, window time.Duration) {
	t.Helper()
	stop := time.Now().Add(window)
	for {
		remaining := time.Until(stop)
		if remaining <= 0 {
			return
		}
		env, err := r.Next(remaining)
		if err != nil {
			return // timeout or close: nothing arrived
		}
		if env.Event == event {
			t.Fatalf("Expected no %s event, but received one: %s", event, env.Data)
		}
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}
