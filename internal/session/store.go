// Package session provides the in-memory store of active assessment
// sessions, keyed by user ID.
package session

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/mindcarelabs/mindcare/internal/domain"
)

// ErrSessionExpired is returned by Update when no session exists for the
// user, either because none was created or because the sweeper removed it.
var ErrSessionExpired = errors.New("session: no active session")

// ErrRemoveSession, returned by an Update mutator, removes the session
// atomically with the mutation. Update itself reports success.
var ErrRemoveSession = errors.New("session: remove")

// shardCount spreads sessions across independently locked shards so that
// traffic for unrelated users never serializes on a single lock.
const shardCount = 32

type entry struct {
	mu      sync.Mutex
	sess    *domain.Session
	removed bool
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// Store maps user IDs to their live sessions. Operations on the same user
// are serialized through a per-entry mutex; operations on different users
// only ever share a shard's map lock, which is held for map access alone.
type Store struct {
	shards [shardCount]*shard
}

// NewStore creates an empty session store.
func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[string]*entry)}
	}
	return s
}

func (s *Store) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// snapshot copies the session so callers can read it without holding locks.
func snapshot(sess *domain.Session) domain.Session {
	out := *sess
	out.Answers = append([]int(nil), sess.Answers...)
	if sess.Result != nil {
		res := *sess.Result
		out.Result = &res
	}
	return out
}

// GetOrCreate returns a snapshot of the user's session, creating a fresh
// menu-state session if none exists. The second return value reports
// whether a new session was created.
func (s *Store) GetOrCreate(userID string) (domain.Session, bool) {
	sh := s.shardFor(userID)

	sh.mu.RLock()
	e, ok := sh.entries[userID]
	sh.mu.RUnlock()

	if !ok {
		sh.mu.Lock()
		e, ok = sh.entries[userID]
		if !ok {
			now := time.Now()
			e = &entry{sess: &domain.Session{
				UserID:         userID,
				State:          domain.StateMenu,
				CreatedAt:      now,
				LastActivityAt: now,
			}}
			sh.entries[userID] = e
			// Snapshot before releasing the shard lock: once the entry is
			// visible, a concurrent Update may mutate the session.
			snap := snapshot(e.sess)
			sh.mu.Unlock()
			return snap, true
		}
		sh.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		// Lost a race with Remove/sweep; restart through the create path.
		return s.GetOrCreate(userID)
	}
	return snapshot(e.sess), false
}

// Update applies fn to the user's session atomically with respect to all
// other operations on the same user, and returns a snapshot of the result.
// Returns ErrSessionExpired if the session does not exist. If fn returns an
// error the mutation is still whatever fn left behind; fn is expected to
// keep the session consistent on its own error paths. A mutator returning
// ErrRemoveSession removes the session under the same critical section, so
// no other event for the user can observe the terminated session.
func (s *Store) Update(userID string, fn func(*domain.Session) error) (domain.Session, error) {
	sh := s.shardFor(userID)

	sh.mu.RLock()
	e, ok := sh.entries[userID]
	sh.mu.RUnlock()
	if !ok {
		return domain.Session{}, ErrSessionExpired
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.Session{}, ErrSessionExpired
	}

	err := fn(e.sess)
	if errors.Is(err, ErrRemoveSession) {
		e.removed = true
		// Shard map access while holding e.mu is safe: the only path that
		// takes the entry lock under the shard lock is the sweeper, and it
		// uses TryLock, so it cannot block on us.
		sh.mu.Lock()
		if cur, ok := sh.entries[userID]; ok && cur == e {
			delete(sh.entries, userID)
		}
		sh.mu.Unlock()
		return snapshot(e.sess), nil
	}
	if err != nil {
		return snapshot(e.sess), err
	}
	return snapshot(e.sess), nil
}

// Remove deletes the user's session. Removing a non-existent session is a
// no-op.
func (s *Store) Remove(userID string) {
	sh := s.shardFor(userID)

	sh.mu.Lock()
	e, ok := sh.entries[userID]
	if ok {
		delete(sh.entries, userID)
	}
	sh.mu.Unlock()

	if ok {
		e.mu.Lock()
		e.removed = true
		e.mu.Unlock()
	}
}

// SweepExpired removes all sessions whose last activity is older than the
// threshold and returns how many were removed. Entries whose lock is held
// are skipped: a session in active use cannot be expired.
func (s *Store) SweepExpired(olderThan time.Duration) int {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		for userID, e := range sh.entries {
			if !e.mu.TryLock() {
				continue
			}
			if e.sess.LastActivityAt.Before(cutoff) {
				delete(sh.entries, userID)
				e.removed = true
				removed++
			}
			e.mu.Unlock()
		}
		sh.mu.Unlock()
	}

	return removed
}

// Len returns the number of active sessions across all shards.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
