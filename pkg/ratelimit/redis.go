package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore counts requests in fixed windows shared by every process that
// points at the same Redis.
type RedisStore struct {
	client    redis.UniversalClient
	limit     Limit
	keyPrefix string
}

// NewRedisStore constructs a store using the provided Redis client
func NewRedisStore(client redis.UniversalClient, limit Limit, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RedisStore{client: client, limit: limit.normalize(), keyPrefix: keyPrefix}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (Decision, error) {
	k := s.keyPrefix + ":" + key

	var (
		incr *redis.IntCmd
		pttl *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("redis incr: %w", err)
	}

	count := incr.Val()
	ttl := pttl.Val()
	// A fresh key, or one left without expiry by an interrupted call, starts a new window.
	if ttl < 0 {
		if err := s.client.PExpire(ctx, k, s.limit.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("redis pexpire: %w", err)
		}
		ttl = s.limit.Window
	}

	if count > int64(s.limit.Requests) {
		return Decision{RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: s.limit.Requests - int(count)}, nil
}

// NewRedisClient connects and pings Redis
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
