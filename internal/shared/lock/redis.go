package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// compare-and-delete: only the holder of the token may release
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Redis locks with SET NX PX and a random token per lease.
type Redis struct {
	rdb redis.UniversalClient
}

func NewRedis(rdb redis.UniversalClient) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return Lease{}, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return Lease{}, false, nil
	}
	return Lease{Key: key, Token: token}, true, nil
}

func (r *Redis) Release(ctx context.Context, lease Lease) error {
	if lease.Key == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, r.rdb, []string{lease.Key}, lease.Token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", lease.Key, err)
	}
	return nil
}
