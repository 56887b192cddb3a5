package domain

import (
	"sort"
	"sync"
)

type RoomID uint32

// RoomRecord is the durable snapshot of a room: the last successful
// write is the durable truth. Restoring then persisting it again with
// no intervening mutation must yield an identical record.
type RoomRecord struct {
	ID       RoomID
	Name     string
	Messages []Message
}

// Room is one chat channel: an append-only message log plus the set of
// sessions currently subscribed to it. The name is the sole external
// key; the id is assigned once at first creation and survives restarts.
//
// All mutations to log and subscribers are serialized by the room's own
// lock. Delivery dispatch happens outside it, on a snapshot.
type Room struct {
	id   RoomID
	name string

	mu          sync.Mutex
	log         []Message
	subscribers map[*Session]struct{}
}

// NewRoom builds a live room from its durable record.
func NewRoom(record RoomRecord) *Room {
	return &Room{
		id:          record.ID,
		name:        record.Name,
		log:         append([]Message(nil), record.Messages...),
		subscribers: make(map[*Session]struct{}),
	}
}

func (r *Room) ID() RoomID {
	return r.id
}

func (r *Room) Name() string {
	return r.name
}

// Log returns a snapshot copy of the message log, in send order.
func (r *Room) Log() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.log...)
}

// Record snapshots the room into its durable form.
func (r *Room) Record() RoomRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordLocked()
}

func (r *Room) recordLocked() RoomRecord {
	return RoomRecord{
		ID:       r.id,
		Name:     r.name,
		Messages: append([]Message(nil), r.log...),
	}
}

// Subscribe adds the session to the subscriber set. Idempotent.
func (r *Room) Subscribe(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[s] = struct{}{}
}

// Unsubscribe removes the session from the subscriber set. Idempotent,
// and safe to race against an in-flight Post: the session may or may
// not receive that particular message.
func (r *Room) Unsubscribe(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subscribers, s)
}

// SubscriberNames returns the current subscribers' nicknames, sorted.
func (r *Room) SubscriberNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.subscribers))
	for s := range r.subscribers {
		names = append(names, s.Nickname())
	}
	sort.Strings(names)
	return names
}

// Subscribers returns a snapshot of the current subscriber set.
func (r *Room) Subscribers() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sessions := make([]*Session, 0, len(r.subscribers))
	for s := range r.subscribers {
		sessions = append(sessions, s)
	}
	return sessions
}

// Post appends the message and persists the resulting record while the
// room lock is held, so the log and the durable store never diverge: if
// persist fails the append is rolled back and the error is returned.
//
// On success it returns the delivery targets, snapshotted under the same
// lock: every current subscriber except the one whose *current* nickname
// equals the message author. Two sessions sharing a nickname would both
// be skipped, which the registry's uniqueness invariant rules out.
func (r *Room) Post(m Message, persist func(RoomRecord) error) ([]*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log = append(r.log, m)
	if err := persist(r.recordLocked()); err != nil {
		r.log = r.log[:len(r.log)-1]
		return nil, err
	}

	targets := make([]*Session, 0, len(r.subscribers))
	for s := range r.subscribers {
		if s.Nickname() == m.Author {
			continue
		}
		targets = append(targets, s)
	}
	return targets, nil
}

// MessagesAfter returns the log suffix that follows the first message
// structurally equal to cursor. The earliest match wins: resuming after
// a later duplicate would silently drop messages. An unknown cursor
// means the client is stale and gets the entire log back.
func (r *Room) MessagesAfter(cursor Message) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.log {
		if m.Equal(cursor) {
			return append([]Message(nil), r.log[i+1:]...)
		}
	}
	return append([]Message(nil), r.log...)
}
