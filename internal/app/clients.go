package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/koreafit-backend/internal/clients/redis"
	"github.com/yungbote/koreafit-backend/internal/platform/logger"
)

type Clients struct {
	Redis  *goredis.Client
	Events redis.IdeaEventBus
	Locker redis.Locker
}

// wireClients leaves redis off when no address is configured.
func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	if cfg.RedisAddr == "" {
		log.Info("Redis disabled; events are dropped and enrichment locks are process-local")
		return Clients{Events: redis.NopEventBus()}, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := redis.NewClient(pingCtx, redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	bus, err := redis.NewEventBus(log, rdb, cfg.RedisChannel)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis event bus: %w", err)
	}
	locker, err := redis.NewLocker(log, rdb)
	if err != nil {
		_ = rdb.Close()
		return Clients{}, fmt.Errorf("init redis locker: %w", err)
	}
	return Clients{Redis: rdb, Events: bus, Locker: locker}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Events != nil {
		_ = c.Events.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
