// Package repo persists game rounds and engine sessions.
package repo

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("round not found")
	// ErrNotCreated means a conditional save lost the race: the round was
	// already settled.
	ErrNotCreated = errors.New("round is not in CREATED state")
)

type Store interface {
	CreateRound(ctx context.Context, r *Round) error
	// RoundByID is scoped by operator; another operator's round is not found.
	RoundByID(ctx context.Context, operatorID, id string) (Round, error)
	// SaveRound writes r and the engine session atomically, only while the
	// stored round is still CREATED.
	SaveRound(ctx context.Context, r Round, key SessionKey, session []byte) error
	// Session returns nil when the player has no session for the game.
	Session(ctx context.Context, key SessionKey) ([]byte, error)
}
