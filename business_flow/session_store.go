package businessflow

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gridops/loadshed-review/masterlist"
	"github.com/gridops/loadshed-review/refdata"
	"github.com/gridops/loadshed-review/simulation"
	"github.com/gridops/loadshed-review/utils"
)

// Session is the working state of one reviewer: the loaded reference tables, the master
// list built from them and the running simulation. Fields below mu are guarded by it.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	tables   map[refdata.Kind]*loadedTable
	master   *masterlist.MasterList
	warnings []string
	sim      *simulation.Simulator
	version  int64
}

type loadedTable struct {
	table    *refdata.Table
	loadedAt time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		lastSeen:  now,
		tables:    make(map[refdata.Kind]*loadedTable),
	}
}

// lock serialises work on the session and returns the unlock func
func (s *Session) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// SessionStore keeps review sessions in memory
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*Session
	maxSessions int
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates a store. maxSessions <= 0 means unbounded; idleTimeout <= 0 uses the default.
func NewSessionStore(maxSessions int, idleTimeout time.Duration) *SessionStore {
	if idleTimeout <= 0 {
		idleTimeout = utils.SessionIdleTimeout
	}
	return &SessionStore{
		sessions:    make(map[uuid.UUID]*Session),
		maxSessions: maxSessions,
		idleTimeout: idleTimeout,
		now:         utils.UTCNow,
	}
}

// Create opens a new session
func (st *SessionStore) Create() (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.maxSessions > 0 && len(st.sessions) >= st.maxSessions {
		st.evictLocked()
		if len(st.sessions) >= st.maxSessions {
			return nil, ErrTooManySessions
		}
	}

	s := newSession(st.now())
	st.sessions[s.ID] = s
	activeSessions.Set(float64(len(st.sessions)))
	return s, nil
}

// Get returns a live session and marks it as used. An idle session is removed and reported expired.
func (st *SessionStore) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := st.now()
	if now.Sub(s.idleSince()) > st.idleTimeout {
		st.Delete(id)
		return nil, ErrSessionExpired
	}

	s.touch(now)
	return s, nil
}

// Delete removes a session
func (st *SessionStore) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	activeSessions.Set(float64(len(st.sessions)))
	return true
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Evict removes idle sessions and returns how many were removed
func (st *SessionStore) Evict() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.evictLocked()
}

func (st *SessionStore) evictLocked() int {
	now := st.now()
	evicted := 0
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.idleTimeout {
			delete(st.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		sessionsEvicted.Add(float64(evicted))
		activeSessions.Set(float64(len(st.sessions)))
	}
	return evicted
}

// StartJanitor evicts idle sessions every interval until the returned stop func is called
func (st *SessionStore) StartJanitor(parent context.Context, interval time.Duration) func() {
	janitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				if n := st.Evict(); n > 0 {
					log.Printf("Session janitor evicted %d idle sessions", n)
				}
			}
		}
	}()
	return cancel
}
