// Package server manages WebSocket connections and group-scoped fan-out for
// the roomrelay system via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BroadcastMessage is one event queued for fan-out. An empty Group targets
// every connection; otherwise only members of the named group receive it.
type BroadcastMessage struct {
	Group   string
	Event   string
	Payload []byte
}

// Hub manages all WebSocket client connections and handles event fan-out.
// It maintains client registration/unregistration, transport-level broadcast
// groups, and ensures thread-safe operations through mutex protection.
type Hub struct {
	log *slog.Logger

	clients map[*Client]bool
	byID    map[string]*Client
	groups  map[string]map[string]*Client

	broadcast  chan BroadcastMessage
	register   chan *Client
	unregister chan *Client

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates and initializes a new Hub instance with all necessary
// channels and maps. The returned Hub is ready to manage connections once
// Run is started.
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        logger,
		clients:    make(map[*Client]bool),
		byID:       make(map[string]*Client),
		groups:     make(map[string]map[string]*Client),
		broadcast:  make(chan BroadcastMessage),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// BroadcastAll queues an event for delivery to every connection.
func (h *Hub) BroadcastAll(event string, data any) {
	h.enqueue("", event, data)
}

// BroadcastRoom queues an event for delivery to the members of one group.
func (h *Hub) BroadcastRoom(room, event string, data any) {
	h.enqueue(room, event, data)
}

func (h *Hub) enqueue(group, event string, data any) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		h.log.Error("encode broadcast", "event", event, "err", err)
		return
	}
	select {
	case h.broadcast <- BroadcastMessage{Group: group, Event: event, Payload: payload}:
	case <-h.ctx.Done():
	}
}

// JoinGroup associates a registered connection with a broadcast group,
// creating the group on first use. Unknown connection IDs are ignored.
func (h *Hub) JoinGroup(connID, group string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client, ok := h.byID[connID]
	if !ok {
		return
	}
	members := h.groups[group]
	if members == nil {
		members = make(map[string]*Client)
		h.groups[group] = members
	}
	members[connID] = client
}

// LeaveGroup removes a connection from a broadcast group. Empty groups are
// dropped so the map does not accumulate dead entries.
func (h *Hub) LeaveGroup(connID, group string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if members, ok := h.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("recovered from panic in safeSend", "panic", r)
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, and event fan-out. This method should be called in a
// separate goroutine as it runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			h.byID[client.id] = client
			clientCount := len(h.clients)
			h.mutex.Unlock()
			connectedClients.Inc()
			h.log.Info("client registered", "conn", client.id, "addr", client.addr, "total", clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeLocked(client)
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock
				close(client.send)
				connectedClients.Dec()
				h.log.Info("client unregistered", "conn", client.id, "addr", client.addr, "total", clientCount)
			} else {
				h.mutex.Unlock()
			}

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

// removeLocked deletes a client from the client set, the ID index, and every
// broadcast group. Callers must hold the write lock.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)
	delete(h.byID, client.id)
	for group, members := range h.groups {
		delete(members, client.id)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	client.closed = true
}

// handleBroadcast fans one event out to its target group and drops clients
// whose send buffers are full rather than stalling the sender.
func (h *Hub) handleBroadcast(msg BroadcastMessage) {
	clients := h.targetSnapshot(msg.Group)
	broadcastsTotal.WithLabelValues(msg.Event).Inc()
	h.log.Debug("broadcasting event", "event", msg.Event, "group", msg.Group, "targets", len(clients))

	var clientsToRemove []*Client
	for _, client := range clients {
		if !h.safeSend(client, msg.Payload) {
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	h.removeFailedClients(clientsToRemove)
}

// targetSnapshot returns a thread-safe snapshot of the clients targeted by a
// group name; an empty group targets all connections.
func (h *Hub) targetSnapshot(group string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if group == "" {
		clients := make([]*Client, 0, len(h.clients))
		for client := range h.clients {
			clients = append(clients, client)
		}
		return clients
	}

	members := h.groups[group]
	clients := make([]*Client, 0, len(members))
	for _, client := range members {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients removes clients that failed to receive events and closes
// their channels.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			h.removeLocked(client)
			channelsToClose = append(channelsToClose, client.send)
			h.log.Warn("client removed due to full send buffer", "conn", client.id, "addr", client.addr)
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
		droppedClients.Inc()
		connectedClients.Dec()
	}
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					h.log.Error("closing client connection", "conn", client.id, "err", err)
				}
			}
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines
// to complete. It returns after all client connections are closed and
// goroutines have finished, or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
