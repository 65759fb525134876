package redis

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/access-management/internal/auth"
	"github.com/redis/go-redis/v9"
)

// casScript swaps the slot only when it still holds the expected jti. Running
// it server-side makes the read-compare-write atomic across instances.
var casScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// TokenStore keeps the active jti per (user, token type) in Redis with a TTL
// matching the token's own expiry, so abandoned slots clean themselves up.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) auth.TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Set(ctx context.Context, key, jti string, ttl time.Duration) error {
	return s.client.Set(ctx, key, jti, ttl).Err()
}

func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", auth.ErrJTINotFound
		}
		return "", err
	}
	return val, nil
}

func (s *TokenStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *TokenStore) CompareAndSwap(ctx context.Context, key, old, new string, ttl time.Duration) (bool, error) {
	res, err := casScript.Run(ctx, s.client, []string{key}, old, new, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
