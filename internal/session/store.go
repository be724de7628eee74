package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long an abandoned registration lingers. The original
// product never evicted sessions; the TTL is the agreed deviation.
const DefaultTTL = 30 * time.Minute

// Store persists registration sessions between handler invocations.
type Store interface {
	// Get returns the user's session, or nil when none exists.
	Get(ctx context.Context, userID int64) (*Session, error)
	// Put saves the session.
	Put(ctx context.Context, s *Session) error
	// Delete removes the user's session.
	Delete(ctx context.Context, userID int64) error
}

// MemoryStore keeps sessions in a process-wide map with TTL eviction.
type MemoryStore struct {
	sessions map[int64]*Session
	mu       sync.RWMutex
	ttl      time.Duration
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
	}
}

func (ms *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.sessions[userID]
	if !ok || s.IsExpired(ms.ttl) {
		return nil, nil
	}
	return s, nil
}

func (ms *MemoryStore) Put(_ context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[s.UserID] = s
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, userID int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, userID)
	return nil
}

// Cleanup removes expired sessions and returns how many were evicted.
func (ms *MemoryStore) Cleanup() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	removed := 0
	for userID, s := range ms.sessions {
		if s.IsExpired(ms.ttl) {
			delete(ms.sessions, userID)
			removed++
		}
	}
	return removed
}

// StartCleanup sweeps expired sessions periodically until ctx is done.
func (ms *MemoryStore) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms.Cleanup()
		}
	}
}
