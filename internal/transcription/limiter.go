package transcription

import (
	"context"
	"time"

	"call-insights/pkg/logger"
	"call-insights/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter bounds provider calls beyond the per-job fan-out limit.
type Limiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

type noopLimiter struct{}

func (noopLimiter) Acquire(context.Context) (func(), error) { return func() {}, nil }

// RedisLimiter caps in-flight provider calls across processes with a shared counter.
type RedisLimiter struct {
	rdb   redis.Scripter
	key   string
	limit int
	ttl   time.Duration
	poll  time.Duration
}

func NewRedisLimiter(rdb redis.Scripter, key string, limit int) *RedisLimiter {
	return &RedisLimiter{
		rdb:   rdb,
		key:   key,
		limit: limit,
		ttl:   5 * time.Minute,
		poll:  250 * time.Millisecond,
	}
}

func (l *RedisLimiter) Acquire(ctx context.Context) (func(), error) {
	t := time.NewTicker(l.poll)
	defer t.Stop()
	for {
		ok, err := utils.AcquireConcurrencyCap(ctx, l.rdb, l.key, l.limit, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release must run even when the job context is already done.
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				if err := utils.ReleaseConcurrencyCap(rctx, l.rdb, l.key); err != nil {
					logger.From(ctx).Warn("release transcription slot failed", "err", err)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
