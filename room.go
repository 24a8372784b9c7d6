package main

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	BroadcastRate     = 20 // roster broadcasts per second, at most
	BroadcastInterval = time.Second / BroadcastRate

	maxMembersPerRoom = 20
	maxDefeatedLen    = 256
)

var (
	ErrRoomFull     = errors.New("room full")
	ErrUnknownList  = errors.New("unknown list")
	ErrNotMember    = errors.New("not a room member")
	ErrRoomStopped  = errors.New("room stopped")
	ErrListTooLarge = errors.New("list too large")
)

// Broadcaster interface for sending messages to room members
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

type member struct {
	cid      string
	identity string
	info     UserInfo
	presence Presence
	joinedAt uint64 // join order, keeps roster frames stable
	out      Broadcaster
}

// Room holds presence and shared storage for one room. Storage lives as long
// as the room has members.
type Room struct {
	mu       sync.Mutex
	id       string
	members  map[string]*member // connection id -> member
	joins    uint64
	defeated []string
	round    uint64
	seq      uint64
	dirty    bool
	stopped  bool
	stop     chan struct{}
	events   EventSink
	log      *logrus.Entry
}

// NewRoom creates an empty room
func NewRoom(id string, events EventSink) *Room {
	return &Room{
		id:      id,
		members: make(map[string]*member),
		stop:    make(chan struct{}),
		events:  events,
		log:     componentLog("room").WithField("room", id),
	}
}

// ID returns the room name
func (r *Room) ID() string {
	return r.id
}

// Run broadcasts the roster at BroadcastRate while it is dirty
func (r *Room) Run() {
	ticker := time.NewTicker(BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.stop:
			return
		}
	}
}

// Stop terminates the broadcast loop. Later joins fail with ErrRoomStopped.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.stopped {
		r.stopped = true
		close(r.stop)
	}
}

func (r *Room) track(evtType, identity, data string) {
	if r.events != nil {
		r.events.Track(evtType, r.id, identity, data)
	}
}

// Join adds a connection. The joiner gets the storage snapshot right away
// and the roster on the next broadcast.
func (r *Room) Join(cid, identity string, info UserInfo, out Broadcaster) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRoomStopped
	}
	if _, ok := r.members[cid]; !ok && len(r.members) >= maxMembersPerRoom {
		return ErrRoomFull
	}
	r.joins++
	r.members[cid] = &member{
		cid:      cid,
		identity: identity,
		info:     info,
		presence: InitialPresence(),
		joinedAt: r.joins,
		out:      out,
	}
	r.dirty = true
	out.SendJSON(Envelope{T: MsgStorage, Data: r.storageLocked()})
	r.track(EvtEnter, identity, "")
	r.log.WithFields(logrus.Fields{"cid": cid, "identity": identity}).Debug("member joined")
	return nil
}

// Leave removes a connection and returns how many members remain
func (r *Room) Leave(cid string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[cid]; ok {
		delete(r.members, cid)
		r.dirty = true
		r.track(EvtLeave, m.identity, "")
	}
	return len(r.members)
}

// UpdatePresence replaces a member's presence
func (r *Room) UpdatePresence(cid string, p Presence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[cid]
	if !ok {
		return ErrNotMember
	}
	m.presence = p
	r.dirty = true
	return nil
}

// Push appends item to a shared list and broadcasts the new storage.
// Pushing an item already in the list is a no-op.
func (r *Room) Push(cid, list, item string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[cid]
	if !ok {
		return ErrNotMember
	}
	if list != ListDefeated {
		return ErrUnknownList
	}
	for _, d := range r.defeated {
		if d == item {
			return nil
		}
	}
	if len(r.defeated) >= maxDefeatedLen {
		return ErrListTooLarge
	}
	r.defeated = append(r.defeated, item)
	r.track(EvtDefeat, item, m.identity)
	r.broadcastStorageLocked()
	return nil
}

// Clear empties a shared list and broadcasts the new storage
func (r *Room) Clear(cid, list string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[cid]
	if !ok {
		return ErrNotMember
	}
	if list != ListDefeated {
		return ErrUnknownList
	}
	r.defeated = r.defeated[:0]
	r.round++
	r.track(EvtClear, m.identity, "")
	r.broadcastStorageLocked()
	return nil
}

// MemberCount returns the number of connections in the room
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Storage returns a copy of the shared storage
func (r *Room) Storage() StorageFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.storageLocked()
}

func (r *Room) storageLocked() StorageFrame {
	d := make([]string, len(r.defeated))
	copy(d, r.defeated)
	return StorageFrame{Defeated: d, Round: r.round}
}

func (r *Room) broadcastStorageLocked() {
	msg := Envelope{T: MsgStorage, Data: r.storageLocked()}
	for _, m := range r.members {
		m.out.SendJSON(msg)
	}
}

// flush sends each member the roster of everyone else if anything changed
func (r *Room) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.dirty || len(r.members) == 0 {
		return
	}
	r.dirty = false
	r.seq++

	ordered := make([]*member, 0, len(r.members))
	for _, m := range r.members {
		ordered = append(ordered, m)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].joinedAt < ordered[j].joinedAt })

	peers := make([]RosterPeer, 0, len(ordered))
	for _, m := range ordered {
		peers = append(peers, RosterPeer{
			ConnectionID: m.cid,
			Identity:     m.identity,
			Info:         m.info,
			Presence:     m.presence,
		})
	}

	for i, m := range ordered {
		others := make([]RosterPeer, 0, len(peers)-1)
		others = append(others, peers[:i]...)
		others = append(others, peers[i+1:]...)
		data, err := msgpack.Marshal(&RosterFrame{Seq: r.seq, Peers: others})
		if err != nil {
			r.log.WithError(err).Error("marshal roster")
			return
		}
		m.out.SendBinary(data)
	}
}
