package commands

import (
	"sync"
	"time"

	"github.com/nervctl/rspstub"
	"github.com/nervctl/rspstub/internal/adminapi"
)

// sessionRegistry tracks live connections for the admin API's /sessions
// endpoint. A *rsp.Session only knows its own state machine, not its
// remote address or start time, so the daemon keeps that bookkeeping here
// rather than growing the protocol core to care about it.
type sessionRegistry struct {
	mu    sync.Mutex
	byID  map[string]*trackedSession
	nextN int
}

type trackedSession struct {
	id         string
	remoteAddr string
	startedAt  time.Time
	session    *rsp.Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{byID: make(map[string]*trackedSession)}
}

func (r *sessionRegistry) add(remoteAddr string, sess *rsp.Session) *trackedSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextN++
	id := remoteAddr

	ts := &trackedSession{
		id:         id,
		remoteAddr: remoteAddr,
		startedAt:  time.Now(),
		session:    sess,
	}
	r.byID[id] = ts

	return ts
}

func (r *sessionRegistry) remove(ts *trackedSession) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, ts.id)
}

// ListSessions implements adminapi.SessionLister.
func (r *sessionRegistry) ListSessions() []adminapi.SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]adminapi.SessionInfo, 0, len(r.byID))
	for _, ts := range r.byID {
		out = append(out, adminapi.SessionInfo{
			ID:         ts.id,
			RemoteAddr: ts.remoteAddr,
			State:      ts.session.State().String(),
			StartedAt:  ts.startedAt,
		})
	}

	return out
}
