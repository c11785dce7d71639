package storage

import (
	"context"
	"fmt"

	"github.com/aman-churiwal/quota-gateway/internal/config"
	"github.com/aman-churiwal/quota-gateway/internal/logging"
	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client *redis.Client
}

// NewRedis connects to the counter store. cfg.Password, when set, overrides the URL password.
func NewRedis(ctx context.Context, cfg config.RedisConfig, log logging.FieldLogger) (*RedisClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.OpTimeout > 0 {
		opts.ReadTimeout = cfg.OpTimeout
		opts.WriteTimeout = cfg.OpTimeout
	}

	r := &RedisClient{Client: redis.NewClient(opts)}

	if err := retryConnect(ctx, cfg.ConnectTimeout, "redis", r.Ping, log); err != nil {
		_ = r.Client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return r, nil
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *RedisClient) Close() error {
	return r.Client.Close()
}
