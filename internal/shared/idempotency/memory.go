package idempotency

import (
	"context"
	"sync"
)

type Memory struct {
	mu   sync.RWMutex
	recs map[[2]string]Record
}

func NewMemory() *Memory { return &Memory{recs: map[[2]string]Record{}} }

func (m *Memory) Get(_ context.Context, operatorID, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[[2]string{operatorID, key}]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Response = append([]byte(nil), rec.Response...)
	return rec, nil
}

func (m *Memory) Put(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := [2]string{rec.OperatorID, rec.Key}
	if _, ok := m.recs[k]; ok {
		return nil
	}
	rec.Response = append([]byte(nil), rec.Response...)
	m.recs[k] = rec
	return nil
}

// Len is the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.recs)
}
