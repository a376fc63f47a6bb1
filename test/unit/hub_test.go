// Package unit contains unit tests for individual components of the roomrelay
// server.
//
// These tests focus on testing specific behaviors in isolation, without real
// network connections, to ensure each component behaves correctly under
// various conditions.
package unit

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/braxle/roomrelay/internal/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestNewHub verifies that NewHub returns a properly initialized Hub with all
// necessary channels and data structures.
func TestNewHub(t *testing.T) {
	hub := server.NewHub(testLogger())

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	select {
	case hub.GetRegisterChan() <- nil:
	case <-time.After(10 * time.Millisecond):
	}
}

// TestHubChannels verifies that the register and unregister channels are
// accessible through their getter methods.
func TestHubChannels(t *testing.T) {
	hub := server.NewHub(testLogger())

	if hub.GetRegisterChan() == nil {
		t.Error("Register channel is nil")
	}
	if hub.GetUnregisterChan() == nil {
		t.Error("Unregister channel is nil")
	}
}

// TestHubRunStartsWithoutPanic verifies that the hub can be started in a
// goroutine and runs without encountering runtime errors.
func TestHubRunStartsWithoutPanic(t *testing.T) {
	hub := server.NewHub(testLogger())

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.Errorf("Hub.Run() panicked: %v", r)
			}
			done <- true
		}()
		go hub.Run()
		time.Sleep(10 * time.Millisecond)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Hub.Run() test timed out")
	}
}

// TestHubBroadcastWithoutClients verifies that broadcasting with no connected
// clients does not block or panic while the hub is running.
func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := server.NewHub(testLogger())
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		hub.BroadcastAll(server.EventUserOnline, server.UserOnlinePayload{Username: "Alice"})
		hub.BroadcastRoom("general", server.EventNewMessage, server.NewMessagePayload{Room: "general", Text: "hi"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Error("Broadcast blocked with no clients")
	}
}

// TestHubGroupOperationsForUnknownConnections verifies that joining or
// leaving a group with an unknown connection ID is a safe no-op.
func TestHubGroupOperationsForUnknownConnections(t *testing.T) {
	hub := server.NewHub(testLogger())

	hub.JoinGroup("ghost", "general")
	hub.LeaveGroup("ghost", "general")
	hub.LeaveGroup("ghost", "never-created")
}

// TestNewClient verifies that NewClient returns a properly initialized Client
// with its send channel set up.
func TestNewClient(t *testing.T) {
	hub := server.NewHub(testLogger())
	coord := server.NewCoordinator(testLogger(), hub)

	client := server.NewClient(nil, hub, coord, "conn-1", "127.0.0.1:12345")

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.ID() != "conn-1" {
		t.Errorf("Expected ID conn-1, got %s", client.ID())
	}
	if client.GetSendChan() == nil {
		t.Error("Client send channel is nil")
	}
}

// TestClientSendChannelStartsEmpty verifies that a fresh client has no queued
// outbound events.
func TestClientSendChannelStartsEmpty(t *testing.T) {
	hub := server.NewHub(testLogger())
	coord := server.NewCoordinator(testLogger(), hub)
	client := server.NewClient(nil, hub, coord, "conn-1", "127.0.0.1:12345")

	select {
	case <-client.GetSendChan():
		t.Error("Expected empty send channel but received an event")
	case <-time.After(10 * time.Millisecond):
	}
}

// TestConcurrentHubOperations verifies that multiple goroutines can broadcast
// simultaneously without causing race conditions or panics.
func TestConcurrentHubOperations(t *testing.T) {
	hub := server.NewHub(testLogger())
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Goroutine %d panicked: %v", id, r)
				}
				done <- true
			}()
			hub.BroadcastAll(server.EventUserOnline, server.UserOnlinePayload{Username: "concurrent"})
		}(i)
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(200 * time.Millisecond):
			t.Error("Concurrent operations test timed out")
			return
		}
	}
}

// TestHubShutdownCompletes verifies that Shutdown returns promptly when no
// clients are connected.
func TestHubShutdownCompletes(t *testing.T) {
	hub := server.NewHub(testLogger())
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	if err := hub.Shutdown(time.Second); err != nil {
		t.Errorf("Hub shutdown returned error: %v", err)
	}
}
