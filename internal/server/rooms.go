// Package server maintains room membership via the RoomDirectory type.
package server

import "sync"

// RoomDirectory maps room names to their member connection identifiers.
// Members are kept in join order so membership snapshots list users in the
// order they arrived. Rooms are created lazily on first join and left in
// place when they empty out.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[string][]string
}

// NewRoomDirectory creates an empty room directory.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[string][]string)}
}

// EnsureRoom idempotently creates an empty member list if the room does not
// yet exist.
func (d *RoomDirectory) EnsureRoom(room string) {
	d.mu.Lock()
	if _, ok := d.rooms[room]; !ok {
		d.rooms[room] = nil
	}
	d.mu.Unlock()
}

// Join adds a connection to a room's member list. A duplicate join is a
// no-op; the member keeps its original position.
func (d *RoomDirectory) Join(room, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range d.rooms[room] {
		if id == connID {
			return
		}
	}
	d.rooms[room] = append(d.rooms[room], connID)
}

// Leave removes a connection from a room's member list if present; no-op
// otherwise.
func (d *RoomDirectory) Leave(room, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	members := d.rooms[room]
	for i, id := range members {
		if id == connID {
			d.rooms[room] = append(members[:i], members[i+1:]...)
			return
		}
	}
}

// IsMember reports whether a connection currently belongs to a room.
func (d *RoomDirectory) IsMember(room, connID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, id := range d.rooms[room] {
		if id == connID {
			return true
		}
	}
	return false
}

// MembersOf returns the current membership of a room in join order, or an
// empty slice when the room is unknown.
func (d *RoomDirectory) MembersOf(room string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.rooms[room]...)
}

// RoomsContaining returns every room the connection is currently a member of.
// Used during disconnect cleanup.
func (d *RoomDirectory) RoomsContaining(connID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []string
	for room, members := range d.rooms {
		for _, id := range members {
			if id == connID {
				out = append(out, room)
				break
			}
		}
	}
	return out
}
