// Package idempotency stores the serialized response of each keyed request so
// a retry with the same key and body replays it byte for byte.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/game-provider-platform/internal/shared/apperr"
)

var ErrNotFound = errors.New("idempotency record not found")

type Record struct {
	OperatorID  string    `db:"operator_id"`
	Key         string    `db:"key"`
	Endpoint    string    `db:"endpoint"`
	RequestHash string    `db:"request_hash"`
	Response    []byte    `db:"response"`
	CreatedAt   time.Time `db:"created_at"`
}

type Store interface {
	Get(ctx context.Context, operatorID, key string) (Record, error)
	// Put keeps the first record written for (operator, key).
	Put(ctx context.Context, rec Record) error
}

// HashRequest fingerprints v. Struct fields marshal in declaration order and
// map keys sorted, but raw JSON passes through as is: normalize it first.
func HashRequest(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

type Guard struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewGuard(store Store, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{store: store, log: log, now: time.Now}
}

// Check returns the stored response when (operator, key) was already
// answered for the same endpoint and request hash. A reused key with any
// other endpoint or body is a CONFLICT. An empty key never replays.
func (g *Guard) Check(ctx context.Context, operatorID, key, endpoint, hash string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	rec, err := g.store.Get(ctx, operatorID, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Internal("idempotency lookup", err)
	}
	if rec.Endpoint != endpoint {
		return nil, false, apperr.Conflict("idempotency key %q was used on %s", key, rec.Endpoint)
	}
	if rec.RequestHash != hash {
		return nil, false, apperr.Conflict("idempotency key %q was used with a different request", key)
	}
	return rec.Response, true, nil
}

// Commit records a successful response. Callers run it after the effect is
// durable; a failure here only widens the retry window, so it is logged.
func (g *Guard) Commit(ctx context.Context, operatorID, key, endpoint, hash string, response []byte) {
	if key == "" {
		return
	}
	err := g.store.Put(ctx, Record{
		OperatorID:  operatorID,
		Key:         key,
		Endpoint:    endpoint,
		RequestHash: hash,
		Response:    response,
		CreatedAt:   g.now(),
	})
	if err != nil {
		g.log.Error("idempotency commit failed",
			zap.String("operator", operatorID), zap.String("key", key), zap.String("endpoint", endpoint), zap.Error(err))
	}
}
