package domain

import (
	"sync"

	"github.com/google/uuid"
)

type SessionID uint32

// Session is the server-side state of one logged-in client: a nickname,
// the set of rooms it has joined, and an id that never changes.
//
// A session keeps room names, not Room pointers, so every later operation
// resolves the room through the directory and never acts on a stale one.
type Session struct {
	id SessionID

	mu       sync.RWMutex
	nickname string
	joined   map[string]struct{}
}

func NewSession(nickname string) *Session {
	return &Session{
		id:       SessionID(uuid.New().ID()),
		nickname: nickname,
		joined:   make(map[string]struct{}),
	}
}

func (s *Session) ID() SessionID {
	return s.id
}

// Nickname returns the current nickname. Broadcast exclusion compares
// against this value, so a rename takes effect on the very next send.
func (s *Session) Nickname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nickname
}

// SetNickname mutates the nickname in place. Uniqueness is the registry's
// responsibility; the session itself accepts any value.
func (s *Session) SetNickname(nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nickname = nickname
}

// JoinRoom records room membership. Idempotent.
func (s *Session) JoinRoom(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joined[name] = struct{}{}
}

// JoinedRooms returns a snapshot of the joined room names.
func (s *Session) JoinedRooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.joined))
	for name := range s.joined {
		names = append(names, name)
	}
	return names
}
