package main

import (
	"regexp"
	"sort"
	"sync"
)

const (
	maxRooms = 100

	// DefaultRoomID is joined when no room is named
	DefaultRoomID = "room100"
)

var roomIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidRoomID reports whether id is usable as a room name
func ValidRoomID(id string) bool {
	return roomIDRe.MatchString(id)
}

// RoomInfo is used in the room list
type RoomInfo struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

// RoomManager creates rooms on first join and drops them when empty
type RoomManager struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	events EventSink
}

// NewRoomManager creates a new RoomManager
func NewRoomManager(events EventSink) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		events: events,
	}
}

// Join places a connection in the named room, creating the room if needed
func (rm *RoomManager) Join(roomID, cid, identity string, info UserInfo, out Broadcaster) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		if len(rm.rooms) >= maxRooms {
			return nil, ErrRoomFull
		}
		room = NewRoom(roomID, rm.events)
		rm.rooms[roomID] = room
		go room.Run()
	}
	if err := room.Join(cid, identity, info, out); err != nil {
		if !ok {
			room.Stop()
			delete(rm.rooms, roomID)
		}
		return nil, err
	}
	return room, nil
}

// Leave removes a connection and drops the room once it is empty
func (rm *RoomManager) Leave(roomID, cid string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return
	}
	if room.Leave(cid) == 0 {
		room.Stop()
		delete(rm.rooms, roomID)
	}
}

// Get returns a room by name
func (rm *RoomManager) Get(roomID string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.rooms[roomID]
}

// List returns info about all active rooms, sorted by name
func (rm *RoomManager) List() []RoomInfo {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	list := make([]RoomInfo, 0, len(rm.rooms))
	for id, room := range rm.rooms {
		list = append(list, RoomInfo{ID: id, Members: room.MemberCount()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Count returns the number of live rooms
func (rm *RoomManager) Count() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.rooms)
}

// StopAll stops every room loop
func (rm *RoomManager) StopAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for id, room := range rm.rooms {
		room.Stop()
		delete(rm.rooms, id)
	}
}
