package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robalobadob/movieguess/apps/go-server/internal/game"
)

const keyPrefix = "movieguess:game:"

// DefaultTTL is how long an untouched game survives in Redis.
const DefaultTTL = 24 * time.Hour

// RedisStore keeps games as JSON strings with a sliding TTL, so several server
// instances can share sessions. Pair it with RedisLocker so that those instances
// also serialize work on the same game.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. A non-positive ttl means DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Save(ctx context.Context, key string, st game.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling game: %w", err)
	}
	return r.client.Set(ctx, keyPrefix+key, data, r.ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) (game.State, error) {
	data, err := r.client.GetEx(ctx, keyPrefix+key, r.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.State{}, ErrNotFound
	}
	if err != nil {
		return game.State{}, fmt.Errorf("reading game: %w", err)
	}

	var st game.State
	if err := json.Unmarshal(data, &st); err != nil {
		return game.State{}, fmt.Errorf("unmarshaling game: %w", err)
	}
	return st, nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}
