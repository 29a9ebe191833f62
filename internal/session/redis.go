package session

import (
	"context"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "creepminer:session:"

// RedisStore keeps sessions in Redis with a per-key TTL. Expiry sliding uses
// EXPIRE, so eviction of stale entries is Redis's own key expiry.
type RedisStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the given Redis URL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+token, "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisStore) Valid(ctx context.Context, token string) bool {
	// EXPIRE both checks existence and slides the deadline in one round trip.
	ok, err := s.client.Expire(ctx, redisKeyPrefix+token, s.ttl).Result()
	if err != nil {
		slog.ErrorContext(ctx, "Session lookup failed", "error", err)
		return false
	}
	return ok
}

func (s *RedisStore) Destroy(ctx context.Context, token string) {
	if err := s.client.Del(ctx, redisKeyPrefix+token).Err(); err != nil {
		slog.ErrorContext(ctx, "Session destroy failed", "error", err)
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
