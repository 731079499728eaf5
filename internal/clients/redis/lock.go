package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

// ReleaseFunc gives a held lock back. Calling it after the TTL expired is
// harmless: only the holder's token is deleted.
type ReleaseFunc func(ctx context.Context) error

type Locker interface {
	// TryLock returns ok=false without waiting when someone else holds key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (release ReleaseFunc, ok bool, err error)
}

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	log *logger.Logger
	rdb goredis.UniversalClient
}

func NewLocker(log *logger.Logger, rdb goredis.UniversalClient) (Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisLocker{log: log.With("service", "RedisLocker"), rdb: rdb}, nil
}

func (l *redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, bool, error) {
	if key == "" {
		return nil, false, fmt.Errorf("lock key required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.New().String()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := unlockScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil && err != goredis.Nil {
			l.log.Warn("lock release failed", "key", key, "error", err)
			return err
		}
		return nil
	}
	return release, true, nil
}

// EnrichLockKey names the cross-replica lock for one idea.
func EnrichLockKey(ideaID string) string { return "enrich-lock:" + ideaID }
