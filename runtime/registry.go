package runtime

import (
	"chatroomd/contract"
	"chatroomd/domain"
	apperrors "chatroomd/errors"
	"log/slog"
	"sync"
)

// SessionRegistry is the exclusive owner of live sessions. It enforces
// nickname uniqueness (case-sensitive, exact match) across every
// currently live session, for both login and rename, and it owns
// disconnect handling.
//
// The single registry lock is what makes two concurrent logins for the
// same nickname impossible: check and insert happen under it.
type SessionRegistry struct {
	mu        sync.RWMutex
	sessions  map[domain.SessionID]*domain.Session
	nicknames map[string]domain.SessionID
	sinks     map[domain.SessionID]contract.DeliverySink
	handles   map[domain.SessionID]*SessionHandle

	directory *RoomDirectory
	log       *slog.Logger
}

func NewSessionRegistry(directory *RoomDirectory, log *slog.Logger) *SessionRegistry {
	return &SessionRegistry{
		sessions:  make(map[domain.SessionID]*domain.Session),
		nicknames: make(map[string]domain.SessionID),
		sinks:     make(map[domain.SessionID]contract.DeliverySink),
		handles:   make(map[domain.SessionID]*SessionHandle),
		directory: directory,
		log:       log,
	}
}

// Login allocates a session bound to sink and returns its handle.
// Rejected when the nickname is empty or already in use; nothing is
// registered in that case.
func (r *SessionRegistry) Login(nickname string, sink contract.DeliverySink) (*domain.Session, *SessionHandle, error) {
	if nickname == "" {
		return nil, nil, apperrors.ErrEmptyNickname
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.nicknames[nickname]; taken {
		return nil, nil, apperrors.ErrNicknameTaken
	}

	session := domain.NewSession(nickname)
	handle := newSessionHandle(session, r)
	r.sessions[session.ID()] = session
	r.nicknames[nickname] = session.ID()
	r.sinks[session.ID()] = sink
	r.handles[session.ID()] = handle

	r.log.Info("Got new client", "nickname", nickname, "session_id", session.ID())
	return session, handle, nil
}

// Rename mutates the session's nickname in place under the same
// emptiness and uniqueness rules as Login. Room subscriber sets are
// untouched: they hold the session by identity, so send exclusion
// picks up the new nickname automatically.
func (r *SessionRegistry) Rename(session *domain.Session, nickname string) error {
	if nickname == "" {
		return apperrors.ErrEmptyNickname
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if holder, taken := r.nicknames[nickname]; taken {
		if holder == session.ID() {
			return nil
		}
		return apperrors.ErrNicknameTaken
	}
	if _, live := r.sessions[session.ID()]; !live {
		return apperrors.ErrSessionNotFound
	}

	delete(r.nicknames, session.Nickname())
	r.nicknames[nickname] = session.ID()
	session.SetNickname(nickname)
	return nil
}

// Join subscribes a live session to the room, registering membership
// both ways. The liveness check and the subscribe happen under the
// registry lock, so a concurrent disconnect either runs first and the
// join is rejected, or runs after and finds the room in the session's
// joined set to clean up. A torn-down session can never re-enter a room.
func (r *SessionRegistry) Join(session *domain.Session, room *domain.Room) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, live := r.sessions[session.ID()]; !live {
		return apperrors.ErrSessionNotFound
	}
	session.JoinRoom(room.Name())
	room.Subscribe(session)
	return nil
}

// IsLive reports whether the session is still registered.
func (r *SessionRegistry) IsLive(id domain.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, live := r.sessions[id]
	return live
}

// Sink resolves the outbound delivery capability of a live session.
// A session that disconnected mid-fanout simply resolves to nothing.
func (r *SessionRegistry) Sink(id domain.SessionID) (contract.DeliverySink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sinks[id]
	return sink, ok
}

// Handle returns the session's handle, for pruning a dead subscriber.
func (r *SessionRegistry) Handle(id domain.SessionID) (*SessionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.handles[id]
	return handle, ok
}

// CountSessions reports how many sessions are currently live.
func (r *SessionRegistry) CountSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// disconnect removes the session from the registry and from every room
// it joined. Idempotent: only the first call for a given session does
// anything. Invoked solely through the session handle.
func (r *SessionRegistry) disconnect(session *domain.Session) {
	r.mu.Lock()
	if _, live := r.sessions[session.ID()]; !live {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, session.ID())
	delete(r.sinks, session.ID())
	delete(r.handles, session.ID())
	if holder, ok := r.nicknames[session.Nickname()]; ok && holder == session.ID() {
		delete(r.nicknames, session.Nickname())
	}
	r.mu.Unlock()

	// Room locks are taken after the registry lock is released; an
	// in-flight fan-out may still deliver this message to the session,
	// which is acceptable. Lookup only: a disconnect must not load rooms.
	for _, name := range session.JoinedRooms() {
		if room, ok := r.directory.Lookup(name); ok {
			room.Unsubscribe(session)
		}
	}
	r.log.Info("Client disconnected", "nickname", session.Nickname(), "session_id", session.ID())
}
