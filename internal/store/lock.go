package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "movieguess:lock:"

// ErrLocked is returned when a lock could not be taken before the context ended.
var ErrLocked = errors.New("game is locked")

const (
	// DefaultLockTTL bounds how long a crashed holder can keep a key locked.
	DefaultLockTTL   = 10 * time.Second
	defaultLockRetry = 10 * time.Millisecond
)

// only the holder's token may release the key
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a per-key mutex held in Redis (SET NX PX), shared by every
// server instance that talks to the same Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker wraps client. A non-positive ttl means DefaultLockTTL.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, retry: defaultLockRetry}
}

// Lock polls until key is free or ctx ends. The returned func releases the
// lock if it is still ours.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := lockPrefix + key
	token := uuid.NewString()

	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLocked, key, ctx.Err())
		case <-t.C:
		}

		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrLocked, key, ctx.Err())
			}
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = unlockScript.Run(ctx, l.client, []string{k}, token).Err()
			}, nil
		}
		t.Reset(l.retry)
	}
}
