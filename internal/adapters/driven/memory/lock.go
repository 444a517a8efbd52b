package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

type lockEntry struct {
	token  string
	expiry time.Time
}

// Lock implements DistributedLock for a single process. Entries expire
// after their TTL like the Redis lock does.
type Lock struct {
	mu    sync.Mutex
	locks map[string]lockEntry
	now   func() time.Time
}

// NewLock creates an in-process lock.
func NewLock() *Lock {
	return &Lock{
		locks: make(map[string]lockEntry),
		now:   time.Now,
	}
}

// held returns the live entry for name under l.mu.
func (l *Lock) held(name string) (lockEntry, bool) {
	entry, ok := l.locks[name]
	if !ok || !l.now().Before(entry.expiry) {
		return lockEntry{}, false
	}
	return entry, true
}

// Acquire takes the lock unless it is held and unexpired.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.held(name); held {
		return "", false, nil
	}
	token := uuid.NewString()
	l.locks[name] = lockEntry{token: token, expiry: l.now().Add(ttl)}
	return token, true, nil
}

// Release drops the lock if token still owns it.
func (l *Lock) Release(ctx context.Context, name, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[name]; ok && entry.token == token {
		delete(l.locks, name)
	}
	return nil
}

// Extend pushes back the expiry of a lock held under token.
func (l *Lock) Extend(ctx context.Context, name, token string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.held(name)
	if !held || entry.token != token {
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockNotHeld)
	}
	entry.expiry = l.now().Add(ttl)
	l.locks[name] = entry
	return nil
}

// Ping always succeeds.
func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
