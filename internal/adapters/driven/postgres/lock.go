package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
	"github.com/custodia-labs/policy-pundit/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// heldLock is a lock this process holds, or is still acquiring while conn
// is nil.
type heldLock struct {
	token string
	conn  *sql.Conn
}

// AdvisoryLock implements DistributedLock using PostgreSQL session-level
// advisory locks. Each held lock pins its own connection so the unlock runs
// in the session that took it.
//
// Advisory locks have no TTL: the ttl argument is ignored and a lock lives
// until Release or until its connection drops.
type AdvisoryLock struct {
	db *DB

	// mu guards locks only; it is never held across a database call.
	mu    sync.Mutex
	locks map[string]*heldLock
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{
		db:    db,
		locks: make(map[string]*heldLock),
	}
}

// hashLockName converts a lock name to the 64-bit key advisory locks take.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("pundit:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts to take the named lock without waiting on other holders.
// The name is reserved locally first, so concurrent acquires in this process
// fail fast while the first one waits for a pooled connection.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	l.mu.Lock()
	if _, held := l.locks[name]; held {
		l.mu.Unlock()
		return "", false, nil
	}
	entry := &heldLock{token: token}
	l.locks[name] = entry
	l.mu.Unlock()

	conn, err := l.db.Conn(ctx)
	if err != nil {
		l.forget(name, token)
		return "", false, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		_ = conn.Close()
		l.forget(name, token)
		return "", false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		_ = conn.Close()
		l.forget(name, token)
		return "", false, nil
	}

	l.mu.Lock()
	entry.conn = conn
	l.mu.Unlock()
	return token, true, nil
}

// forget drops a reservation that never became a held lock.
func (l *AdvisoryLock) forget(name, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[name]; ok && entry.token == token {
		delete(l.locks, name)
	}
}

// Release unlocks the named lock and returns its connection to the pool.
// Releasing a lock token does not hold is a no-op.
func (l *AdvisoryLock) Release(ctx context.Context, name, token string) error {
	l.mu.Lock()
	entry, held := l.locks[name]
	if !held || entry.token != token || entry.conn == nil {
		l.mu.Unlock()
		return nil
	}
	delete(l.locks, name)
	l.mu.Unlock()

	conn := entry.conn
	defer conn.Close()

	var released bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend only confirms the lock is still held; advisory locks do not expire.
func (l *AdvisoryLock) Extend(ctx context.Context, name, token string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, held := l.locks[name]
	if !held || entry.token != token || entry.conn == nil {
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockNotHeld)
	}
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
