// Package server tracks the display names of live connections via the
// Registry type.
package server

import "sync"

// AnonymousName is used whenever a connection has not registered a username.
const AnonymousName = "Anonymous"

// Registry maps live connection identifiers to display names. A connection
// appears here only between registration and disconnect; unregistered
// connections resolve to AnonymousName.
type Registry struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]string)}
}

// Register stores or overwrites the display name for a connection. Display
// names carry no uniqueness constraint.
func (r *Registry) Register(connID, name string) {
	r.mu.Lock()
	r.names[connID] = name
	r.mu.Unlock()
}

// Lookup returns the display name for a connection, or AnonymousName when the
// connection never registered one.
func (r *Registry) Lookup(connID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.names[connID]; ok {
		return name
	}
	return AnonymousName
}

// Registered reports whether a connection has announced a display name.
func (r *Registry) Registered(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.names[connID]
	return ok
}

// Remove deletes the mapping for a connection. Called exactly once at
// disconnect, after room cleanup, so leave notifications can still resolve
// the name.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	delete(r.names, connID)
	r.mu.Unlock()
}
