package runtime

import (
	"chatroomd/domain"
	"sync/atomic"
)

// SessionHandle is the resource whose release is the sole disconnect
// signal for a session. Holders take references explicitly; when the
// count drops to zero, or Close is called, the session is torn down
// exactly once. Teardown never relies on finalizers or GC timing.
type SessionHandle struct {
	session  *domain.Session
	registry *SessionRegistry
	refs     atomic.Int32
	released atomic.Bool
}

func newSessionHandle(session *domain.Session, registry *SessionRegistry) *SessionHandle {
	h := &SessionHandle{session: session, registry: registry}
	h.refs.Store(1)
	return h
}

func (h *SessionHandle) Session() *domain.Session {
	return h.session
}

// Acquire takes an additional reference. The transport does this when
// it hands the handle to another holder.
func (h *SessionHandle) Acquire() *SessionHandle {
	h.refs.Add(1)
	return h
}

// Release drops one reference; the last one disconnects the session.
// Releasing more times than acquired is a no-op after teardown.
func (h *SessionHandle) Release() {
	if h.refs.Add(-1) <= 0 {
		h.teardown()
	}
}

// Close disconnects immediately regardless of outstanding references:
// the transport calls it when it detects the underlying connection is
// gone, and the prune worker calls it for dead subscribers.
func (h *SessionHandle) Close() {
	h.teardown()
}

func (h *SessionHandle) teardown() {
	if h.released.CompareAndSwap(false, true) {
		h.registry.disconnect(h.session)
	}
}
