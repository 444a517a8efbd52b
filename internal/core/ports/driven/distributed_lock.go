package driven

import (
	"context"
	"time"
)

// DistributedLock serialises corpus uploads across instances.
// Two uploads to the same corpus handle never build concurrently.
//
// Every successful Acquire returns an owner token unique to that
// acquisition. Release and Extend act only when the token matches, so a
// holder whose lock expired cannot free or renew its successor's lock.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns the owner token and true if the lock was acquired, false if
	// already held. The lock expires after TTL so a crashed holder cannot
	// block forever.
	Acquire(ctx context.Context, name string, ttl time.Duration) (token string, acquired bool, err error)

	// Release releases a named lock held under token.
	// Safe to call even if the lock is not held, has expired or has
	// passed to another owner.
	Release(ctx context.Context, name, token string) error

	// Extend resets the TTL of a lock held under token.
	// Returns domain.ErrLockNotHeld otherwise.
	Extend(ctx context.Context, name, token string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
