// Package notifications provides real-time event delivery over WebSockets.
package notifications

import (
	"sync"
)

// ConnectionRegistry tracks the live user-to-socket mapping and per-user room
// membership. It is injected into the Gateway so a distributed-backed
// implementation can replace the in-memory one without touching call sites.
//
// At most one socket is tracked per user: registering a second connection for
// the same user replaces the first (last-connect-wins) and the displaced
// client is returned so the caller can close it.
type ConnectionRegistry interface {
	Register(userID uint, client *Client) (displaced *Client)
	Unregister(userID uint, client *Client) bool
	Lookup(userID uint) *Client
	JoinRoom(roomID string, userID uint)
	LeaveRoom(roomID string, userID uint)
	LeaveAllRooms(userID uint) []string
	RoomsOf(userID uint) []string
	RoomMembers(roomID string) []uint
	OnlineUserIDs() []uint
	Count() int
}

// memoryRegistry is the single-instance in-memory implementation.
type memoryRegistry struct {
	mu      sync.RWMutex
	sockets map[uint]*Client
	rooms   map[string]map[uint]struct{}
	joined  map[uint]map[string]struct{}
}

// NewConnectionRegistry creates the in-memory registry.
func NewConnectionRegistry() ConnectionRegistry {
	return &memoryRegistry{
		sockets: make(map[uint]*Client),
		rooms:   make(map[string]map[uint]struct{}),
		joined:  make(map[uint]map[string]struct{}),
	}
}

func (r *memoryRegistry) Register(userID uint, client *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	displaced := r.sockets[userID]
	r.sockets[userID] = client
	return displaced
}

// Unregister removes the mapping only if client is still the tracked socket
// for userID. A stale disconnect from a displaced connection must not tear
// down the replacement's state.
func (r *memoryRegistry) Unregister(userID uint, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sockets[userID]
	if !ok || current != client {
		return false
	}
	delete(r.sockets, userID)
	return true
}

func (r *memoryRegistry) Lookup(userID uint) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sockets[userID]
}

func (r *memoryRegistry) JoinRoom(roomID string, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[uint]struct{})
		r.rooms[roomID] = members
	}
	members[userID] = struct{}{}

	joined, ok := r.joined[userID]
	if !ok {
		joined = make(map[string]struct{})
		r.joined[userID] = joined
	}
	joined[roomID] = struct{}{}
}

func (r *memoryRegistry) LeaveRoom(roomID string, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveRoomLocked(roomID, userID)
}

func (r *memoryRegistry) leaveRoomLocked(roomID string, userID uint) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if joined, ok := r.joined[userID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(r.joined, userID)
		}
	}
}

// LeaveAllRooms removes the user from every room and returns the rooms left.
func (r *memoryRegistry) LeaveAllRooms(userID uint) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.joined[userID]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(joined))
	for roomID := range joined {
		rooms = append(rooms, roomID)
	}
	for _, roomID := range rooms {
		r.leaveRoomLocked(roomID, userID)
	}
	return rooms
}

func (r *memoryRegistry) RoomsOf(userID uint) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	joined := r.joined[userID]
	rooms := make([]string, 0, len(joined))
	for roomID := range joined {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (r *memoryRegistry) RoomMembers(roomID string) []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	ids := make([]uint, 0, len(members))
	for userID := range members {
		ids = append(ids, userID)
	}
	return ids
}

func (r *memoryRegistry) OnlineUserIDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint, 0, len(r.sockets))
	for userID := range r.sockets {
		ids = append(ids, userID)
	}
	return ids
}

func (r *memoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sockets)
}
