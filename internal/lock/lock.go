// Package lock guards each bot session so only one processor instance works
// it at a time. With Redis configured the lock is shared across processes;
// otherwise an in-process mutex map covers the single-binary deployment.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker acquires and releases named session locks.
type Locker interface {
	// TryLock attempts to take the lock without blocking. It returns false
	// when another holder owns it.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Unlock releases a lock taken by this instance.
	Unlock(ctx context.Context, key string) error
}

// MemoryLocker is the in-process fallback. TTL expiry still applies so a
// crashed goroutine cannot wedge a session forever.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]time.Time)}
}

func (m *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expiry, held := m.locks[key]; held && time.Now().Before(expiry) {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MemoryLocker) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.locks, key)
	m.mu.Unlock()
	return nil
}
