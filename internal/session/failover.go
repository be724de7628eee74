package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// recoveryInterval is how often a downed primary is probed again.
const recoveryInterval = time.Minute

// FailoverStore serves sessions from a primary store (Redis) and falls back
// to a secondary (memory) when the primary is unreachable. A dialog started
// on the fallback is degraded but not lost.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	lastCheck time.Time
	mu        sync.Mutex
}

// NewFailoverStore wraps primary with a fallback.
func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the primary should be tried for this call.
func (fs *FailoverStore) usePrimary() bool {
	if !fs.isDown.Load() {
		return true
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if time.Since(fs.lastCheck) < recoveryInterval {
		return false
	}
	fs.lastCheck = time.Now()
	return true
}

func (fs *FailoverStore) markDown(err error) {
	if fs.isDown.CompareAndSwap(false, true) {
		fs.logger.Warn().Err(err).Msg("Session primary store down, switching to fallback")
	}
	fs.mu.Lock()
	fs.lastCheck = time.Now()
	fs.mu.Unlock()
}

func (fs *FailoverStore) markUp() {
	if fs.isDown.CompareAndSwap(true, false) {
		fs.logger.Info().Msg("Session primary store recovered")
	}
}

func (fs *FailoverStore) Get(ctx context.Context, userID int64) (*Session, error) {
	if fs.usePrimary() {
		s, err := fs.primary.Get(ctx, userID)
		if err == nil {
			fs.markUp()
			return s, nil
		}
		fs.markDown(err)
	}
	return fs.fallback.Get(ctx, userID)
}

func (fs *FailoverStore) Put(ctx context.Context, s *Session) error {
	if fs.usePrimary() {
		err := fs.primary.Put(ctx, s)
		if err == nil {
			fs.markUp()
			return nil
		}
		fs.markDown(err)
	}
	return fs.fallback.Put(ctx, s)
}

func (fs *FailoverStore) Delete(ctx context.Context, userID int64) error {
	var primaryErr error
	if fs.usePrimary() {
		if primaryErr = fs.primary.Delete(ctx, userID); primaryErr == nil {
			fs.markUp()
		} else {
			fs.markDown(primaryErr)
		}
	}
	// Always clear the fallback: the session may have landed there during an
	// outage and must not resurrect after recovery.
	return fs.fallback.Delete(ctx, userID)
}
