package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type Memory struct {
	mu       sync.Mutex
	rounds   map[string]Round
	sessions map[SessionKey][]byte
}

func NewMemory() *Memory {
	return &Memory{rounds: map[string]Round{}, sessions: map[SessionKey][]byte{}}
}

func (m *Memory) CreateRound(_ context.Context, r *Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	m.rounds[r.ID] = clone(*r)
	return nil
}

func (m *Memory) RoundByID(_ context.Context, operatorID, id string) (Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[id]
	if !ok || r.OperatorID != operatorID {
		return Round{}, ErrNotFound
	}
	return clone(r), nil
}

func (m *Memory) SaveRound(_ context.Context, r Round, key SessionKey, session []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rounds[r.ID]
	if !ok || cur.OperatorID != r.OperatorID || cur.Status != RoundCreated {
		return ErrNotCreated
	}
	r.CreatedAt = cur.CreatedAt
	m.rounds[r.ID] = clone(r)
	if session != nil {
		m.sessions[key] = append([]byte(nil), session...)
	}
	return nil
}

func (m *Memory) Session(_ context.Context, key SessionKey) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), s...), nil
}

func clone(r Round) Round {
	r.Result = append([]byte(nil), r.Result...)
	if r.SettledAt != nil {
		t := *r.SettledAt
		r.SettledAt = &t
	}
	return r
}
