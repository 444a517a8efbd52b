package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/policy-pundit/internal/core/domain"
)

// MockDistributedLock records lock traffic and lets tests inject failures.
// Without hooks it behaves like a simple non-expiring lock.
type MockDistributedLock struct {
	mu       sync.Mutex
	held     map[string]string // name -> token
	next     int
	Acquired []string
	Released []string
	Extended []string

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	ExtendFn  func(name string, ttl time.Duration) error
}

// NewMockDistributedLock creates a new mock distributed lock.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{held: make(map[string]string)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if m.AcquireFn != nil {
		ok, err := m.AcquireFn(name, ttl)
		if !ok || err != nil {
			return "", ok, err
		}
		return "token-" + name, true, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.held[name]; held {
		return "", false, nil
	}
	m.next++
	token := fmt.Sprintf("token-%d", m.next)
	m.held[name] = token
	m.Acquired = append(m.Acquired, name)
	return token, true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name, token string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] == token {
		delete(m.held, name)
	}
	m.Released = append(m.Released, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name, token string, ttl time.Duration) error {
	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] != token {
		return fmt.Errorf("extend lock %s: %w", name, domain.ErrLockNotHeld)
	}
	m.Extended = append(m.Extended, name)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	return nil
}

// SetLockHeld forces a lock to be held (for test setup).
func (m *MockDistributedLock) SetLockHeld(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = "external"
}

// IsHeld checks if a lock is currently held (for test assertions).
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.held[name]
	return held
}
