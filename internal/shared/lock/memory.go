package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a process-local Locker with the same TTL semantics as Redis.
type Memory struct {
	mu   sync.Mutex
	held map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	token   string
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{held: map[string]memEntry{}, now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return Lease{}, false, nil
	}
	token := uuid.NewString()
	m.held[key] = memEntry{token: token, expires: now.Add(ttl)}
	return Lease{Key: key, Token: token}, true, nil
}

func (m *Memory) Release(_ context.Context, lease Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.held[lease.Key]; ok && e.token == lease.Token {
		delete(m.held, lease.Key)
	}
	return nil
}

// Held reports whether key is currently locked.
func (m *Memory) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.held[key]
	return ok && m.now().Before(e.expires)
}
