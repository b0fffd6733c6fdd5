package pacing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient — команды go-redis, которые нужны pacer'у.
// *redis.Client и *redis.ClusterClient ему удовлетворяют.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis — общий для нескольких экземпляров сервера pacer.
// Вызов разрешён, если удалось выполнить SET key NX PX interval.
type Redis struct {
	rdb      RedisClient
	interval time.Duration
	prefix   string
}

func NewRedis(rdb RedisClient, interval time.Duration) *Redis {
	return &Redis{rdb: rdb, interval: interval, prefix: "gophassist:pace:"}
}

func (r *Redis) Allow(ctx context.Context, key string) error {
	k := r.prefix + key

	ok, err := r.rdb.SetNX(ctx, k, 1, r.interval).Result()
	if err != nil {
		return fmt.Errorf("pacing: redis setnx: %w", err)
	}
	if ok {
		return nil
	}

	ttl, err := r.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("pacing: redis pttl: %w", err)
	}
	// ключ мог истечь между SETNX и PTTL (-2) или остаться без срока (-1)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	return &TooSoonError{RetryAfter: ttl}
}

// Forget снимает ограничение для ключа.
func (r *Redis) Forget(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("pacing: redis del: %w", err)
	}
	return nil
}

var (
	_ Pacer = Noop{}
	_ Pacer = (*Memory)(nil)
	_ Pacer = (*Redis)(nil)
)
