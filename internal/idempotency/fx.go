package idempotency

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/billingrelay/internal/clock"
	"github.com/smallbiznis/billingrelay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("idempotency",
	fx.Provide(NewFromConfig),
)

// NewFromConfig picks the Redis registry when REDIS_ADDR is set and the
// in-memory registry otherwise.
func NewFromConfig(lc fx.Lifecycle, cfg config.Config, holder *config.WebhookConfigHolder, clk clock.Clock, log *zap.Logger) Registry {
	ttl := func() time.Duration { return holder.Get().ReplayTTL }
	log = log.Named("idempotency")

	if cfg.Redis.Addr == "" {
		log.Info("using in-memory idempotency registry")
		return NewMemoryRegistry(clk, ttl)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("using redis idempotency registry", zap.String("addr", cfg.Redis.Addr))
	return NewRedisRegistry(client, ttl)
}
