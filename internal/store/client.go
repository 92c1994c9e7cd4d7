package store

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/osprey-dcs/quartz-config-loader/internal/config"
)

// NewRedisClient 创建Redis客户端
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Ping 测试Redis连接
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
