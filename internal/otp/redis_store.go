package otp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "otp:v1:"

// RedisStore keeps challenges in Redis with the key TTL mirroring the
// challenge expiry, so stale challenges age out on their own.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore builds a Redis-backed challenge store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Put(ctx context.Context, ch Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	ttl := ch.ExpiresAt.Sub(s.now().UTC())
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.client.Set(ctx, redisKeyPrefix+ch.AccountID, payload, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, accountID string) (Challenge, bool, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+accountID).Result()
	if err == redis.Nil {
		return Challenge{}, false, nil
	}
	if err != nil {
		return Challenge{}, false, err
	}
	var ch Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return Challenge{}, false, err
	}
	return ch, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, accountID string) error {
	return s.client.Del(ctx, redisKeyPrefix+accountID).Err()
}
