package main

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// ClientID is the opaque handle a transport assigns to one connection.
// Never reused while the underlying connection is open.
type ClientID = uuid.UUID

// Session tracks one connected client. RoomID and UserName are fixed at
// admission; State is the last envelope tag applied to the session.
// Sessions are owned by the room entry that holds them and mutated only
// inside that room's critical section.
type Session struct {
	RoomID   int
	UserName string
	State    ChatState
}

// RoomMember is a point-in-time view of one room occupant, safe for the
// caller to hold outside any lock.
type RoomMember struct {
	ID   ClientID
	Name string
}

type member struct {
	id      ClientID
	session *Session
}

// room holds membership in join order plus the active round, if any.
// Both are guarded by mu: membership changes, vote recording, tallying,
// and reveal for one room are mutually exclusive, while separate rooms
// progress independently.
type room struct {
	id      int
	mu      sync.Mutex
	members []member
	round   *Round
}

func (rm *room) sizeLocked() int {
	return len(rm.members)
}

func (rm *room) namesLocked() []string {
	names := make([]string, 0, len(rm.members))
	for _, m := range rm.members {
		names = append(names, m.session.UserName)
	}
	return names
}

func (rm *room) membersLocked() []RoomMember {
	out := make([]RoomMember, 0, len(rm.members))
	for _, m := range rm.members {
		out = append(out, RoomMember{ID: m.id, Name: m.session.UserName})
	}
	return out
}

// Registry tracks rooms and their membership. Admission follows a
// first-available policy: the lowest-numbered room with space wins, and
// a new room is created lazily when every room is full.
type Registry struct {
	mu       sync.RWMutex
	capacity int
	nextID   int
	rooms    map[int]*room
	byClient map[ClientID]*room
}

func newRegistry(capacity int) *Registry {
	return &Registry{
		capacity: capacity,
		nextID:   1,
		rooms:    make(map[int]*room),
		byClient: make(map[ClientID]*room),
	}
}

// Add admits the client to the first room with space, creating one if
// none exists, and returns the room and its new size. Under the
// first-available policy this cannot fail.
func (reg *Registry) Add(id ClientID, userName string) (*room, int, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	ids := make([]int, 0, len(reg.rooms))
	for roomID := range reg.rooms {
		ids = append(ids, roomID)
	}
	slices.Sort(ids)

	for _, roomID := range ids {
		rm := reg.rooms[roomID]
		if size, ok := reg.admitLocked(rm, id, userName); ok {
			return rm, size, nil
		}
	}

	rm := &room{id: reg.nextID}
	reg.nextID++
	reg.rooms[rm.id] = rm

	size, _ := reg.admitLocked(rm, id, userName)
	return rm, size, nil
}

// AddTo admits the client to a specific room, creating it if absent.
// Unlike Add, this fails with ErrRoomFull when the target is at
// capacity; it exists for room-selection policies beyond
// first-available.
func (reg *Registry) AddTo(id ClientID, userName string, roomID int) (*room, int, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.rooms[roomID]
	if !ok {
		rm = &room{id: roomID}
		reg.rooms[roomID] = rm
		if roomID >= reg.nextID {
			reg.nextID = roomID + 1
		}
	}

	size, ok := reg.admitLocked(rm, id, userName)
	if !ok {
		return nil, 0, fmt.Errorf("%w: room %d", ErrRoomFull, roomID)
	}
	return rm, size, nil
}

func (reg *Registry) admitLocked(rm *room, id ClientID, userName string) (int, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if len(rm.members) >= reg.capacity {
		return 0, false
	}

	sess := &Session{
		RoomID:   rm.id,
		UserName: userName,
		State:    StateConnect,
	}
	rm.members = append(rm.members, member{id: id, session: sess})
	reg.byClient[id] = rm

	return len(rm.members), true
}

// Remove drops the client from its room, abandoning any round in
// progress and discarding the room once empty. It returns the removed
// session and a snapshot of the remaining membership for the disconnect
// broadcast.
func (reg *Registry) Remove(id ClientID) (*Session, []RoomMember, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rm, ok := reg.byClient[id]
	if !ok {
		return nil, nil, false
	}
	delete(reg.byClient, id)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	var removed *Session
	for i, m := range rm.members {
		if m.id == id {
			removed = m.session
			rm.members = append(rm.members[:i], rm.members[i+1:]...)
			break
		}
	}
	if removed == nil {
		return nil, nil, false
	}

	removed.State = StateDisconnect
	rm.round = nil

	if len(rm.members) == 0 {
		delete(reg.rooms, rm.id)
	}

	return removed, rm.membersLocked(), true
}

// MembersOf returns a snapshot of the room's membership in join order.
// Unknown rooms yield an empty snapshot.
func (reg *Registry) MembersOf(roomID int) []RoomMember {
	reg.mu.RLock()
	rm, ok := reg.rooms[roomID]
	reg.mu.RUnlock()

	if !ok {
		return nil
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.membersLocked()
}

// lookup resolves a client to its room and session.
func (reg *Registry) lookup(id ClientID) (*room, *Session, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rm, ok := reg.byClient[id]
	if !ok {
		return nil, nil, false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, m := range rm.members {
		if m.id == id {
			return rm, m.session, true
		}
	}
	return nil, nil, false
}
