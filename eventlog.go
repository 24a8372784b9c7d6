package main

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Room event types
const (
	EvtEnter  = "enter"
	EvtLeave  = "leave"
	EvtDefeat = "defeat"
	EvtClear  = "clear"
)

const (
	eventBufSize    = 1024
	eventBatchSize  = 50
	eventFlushEvery = 5 * time.Second
)

// RoomEvent is one entry of the room event log
type RoomEvent struct {
	Type      string
	Room      string
	Identity  string
	Data      string
	Timestamp time.Time
}

// EventSink receives room events. Implementations must not block.
type EventSink interface {
	Track(evtType, room, identity, data string)
}

// EventLog batches room events into the store from a background writer
type EventLog struct {
	store  Store
	events chan RoomEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	log    *logrus.Entry

	mu          sync.RWMutex
	livePeers   int
	activeRooms int
	dropped     int
}

// NewEventLog creates and starts the background writer. A nil store keeps
// only the live counters.
func NewEventLog(store Store) *EventLog {
	l := &EventLog{
		store:  store,
		events: make(chan RoomEvent, eventBufSize),
		stop:   make(chan struct{}),
		log:    componentLog("eventlog"),
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

// Track enqueues an event for async persistence (non-blocking)
func (l *EventLog) Track(evtType, room, identity, data string) {
	select {
	case l.events <- RoomEvent{
		Type:      evtType,
		Room:      room,
		Identity:  identity,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// Channel full, drop the event rather than block a room
		l.mu.Lock()
		l.dropped++
		l.mu.Unlock()
	}
}

// SetLive updates the live peer and room gauges
func (l *EventLog) SetLive(peers, rooms int) {
	l.mu.Lock()
	l.livePeers = peers
	l.activeRooms = rooms
	l.mu.Unlock()
}

// Live returns the live peer and room gauges
func (l *EventLog) Live() (peers, rooms int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.livePeers, l.activeRooms
}

// Dropped returns how many events were lost to a full buffer
func (l *EventLog) Dropped() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}

// Stop drains pending events and stops the writer
func (l *EventLog) Stop() {
	close(l.stop)
	l.wg.Wait()
}

func (l *EventLog) writer() {
	defer l.wg.Done()

	batch := make([]RoomEvent, 0, 64)
	ticker := time.NewTicker(eventFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-l.events:
			batch = append(batch, evt)
			if len(batch) >= eventBatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-l.stop:
		drain:
			for {
				select {
				case evt := <-l.events:
					batch = append(batch, evt)
				default:
					break drain
				}
			}
			if len(batch) > 0 {
				l.flush(batch)
			}
			return
		}
	}
}

func (l *EventLog) flush(events []RoomEvent) {
	if l.store == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.InsertEvents(ctx, events); err != nil {
		l.log.WithError(err).WithField("count", len(events)).Warn("flush failed")
	}
}

// Counts returns event counts for the last given number of days
func (l *EventLog) Counts(ctx context.Context, days int) (map[string]int, error) {
	if l.store == nil {
		return map[string]int{}, nil
	}
	return l.store.EventCounts(ctx, time.Now().AddDate(0, 0, -days))
}
