package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBreaker shares breaker state between processes. Keys:
//
//	<prefix>:<provider>:failures  consecutive failure counter
//	<prefix>:<provider>:open      present while the circuit is open (TTL = reset timeout)
//	<prefix>:<provider>:tripped   present from the first trip until a success
//	<prefix>:<provider>:probe     half-open probe slot (TTL = probe timeout)
type RedisBreaker struct {
	client redis.UniversalClient
	prefix string
	policy BreakerPolicy
}

func NewRedisBreaker(redisURL string, prefix string, policy BreakerPolicy) (*RedisBreaker, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is empty")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisBreakerWithClient(client, prefix, policy), nil
}

func NewRedisBreakerWithClient(client redis.UniversalClient, prefix string, policy BreakerPolicy) *RedisBreaker {
	if prefix == "" {
		prefix = "llm-orchestrator:breaker"
	}
	return &RedisBreaker{client: client, prefix: prefix, policy: policy}
}

func (b *RedisBreaker) key(provider, suffix string) string {
	return b.prefix + ":" + provider + ":" + suffix
}

func (b *RedisBreaker) Allow(ctx context.Context, provider string, _ time.Time) (bool, bool, error) {
	if b.policy.FailureThreshold <= 0 {
		return true, false, nil
	}

	n, err := b.client.Exists(ctx, b.key(provider, "open")).Result()
	if err != nil {
		return true, false, fmt.Errorf("redis exists failed: %w", err)
	}
	if n > 0 {
		return false, false, nil
	}

	n, err = b.client.Exists(ctx, b.key(provider, "tripped")).Result()
	if err != nil {
		return true, false, fmt.Errorf("redis exists failed: %w", err)
	}
	if n == 0 {
		return true, false, nil
	}

	ok, err := b.client.SetNX(ctx, b.key(provider, "probe"), "1", b.policy.probeTimeout()).Result()
	if err != nil {
		return true, false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, ok, nil
}

func (b *RedisBreaker) RecordSuccess(ctx context.Context, provider string) error {
	err := b.client.Del(ctx,
		b.key(provider, "failures"),
		b.key(provider, "open"),
		b.key(provider, "tripped"),
		b.key(provider, "probe"),
	).Err()
	if err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (b *RedisBreaker) RecordFailure(ctx context.Context, provider string, _ time.Time) error {
	if b.policy.FailureThreshold <= 0 {
		return nil
	}

	tripped, err := b.client.Exists(ctx, b.key(provider, "tripped")).Result()
	if err != nil {
		return fmt.Errorf("redis exists failed: %w", err)
	}
	count, err := b.client.Incr(ctx, b.key(provider, "failures")).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	if tripped == 0 && count < int64(b.policy.FailureThreshold) {
		return nil
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.key(provider, "open"), "1", b.policy.resetTimeout())
		pipe.Set(ctx, b.key(provider, "tripped"), "1", 0)
		pipe.Del(ctx, b.key(provider, "failures"), b.key(provider, "probe"))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis trip failed: %w", err)
	}
	return nil
}

func (b *RedisBreaker) Close() error {
	return b.client.Close()
}
