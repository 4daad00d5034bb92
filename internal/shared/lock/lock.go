// Package lock provides short-TTL mutual exclusion. Acquire never waits: a
// held key is reported as not acquired and the caller decides what to do.
package lock

import (
	"context"
	"time"
)

// Lease proves ownership of a key until it is released or expires.
type Lease struct {
	Key   string
	Token string
}

type Locker interface {
	// Acquire returns ok=false without error when the key is held by someone else.
	Acquire(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
	// Release deletes the key only if it still carries the lease token.
	Release(ctx context.Context, lease Lease) error
}
