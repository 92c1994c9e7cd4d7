package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
	"github.com/osprey-dcs/quartz-config-loader/internal/store"
)

// Redis 把记录写成 Redis 字符串键（键=信号名，值=字段 JSON），
// 并把加载事件追加到 Redis Stream 供下游消费
type Redis struct {
	client *redis.Client
	stream string
	logger *zap.Logger
}

var (
	_ Publisher          = (*Redis)(nil)
	_ LoadEventPublisher = (*Redis)(nil)
)

func NewRedis(client *redis.Client, stream string, logger *zap.Logger) *Redis {
	return &Redis{client: client, stream: stream, logger: logger}
}

func (r *Redis) PublishRecords(ctx context.Context, records []*domain.ChannelRecord) error {
	for _, rec := range records {
		jsonData, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.Name, err)
		}
		// 记录无 TTL：新配置加载时整体覆盖
		if err := r.client.Set(ctx, rec.Name, string(jsonData), 0).Err(); err != nil {
			return fmt.Errorf("failed to set record %s: %w", rec.Name, err)
		}
	}
	r.logger.Info("records published to redis", zap.Int("record_count", len(records)))
	return nil
}

func (r *Redis) PublishScalar(ctx context.Context, name string, value string) error {
	if err := r.client.Set(ctx, name, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", name, err)
	}
	return nil
}

func (r *Redis) Name() string { return "redis" }

// PublishLoadEvent 把加载结果追加到事件流
func (r *Redis) PublishLoadEvent(ctx context.Context, rec *domain.LoadRecord) error {
	if r.stream == "" {
		return nil
	}
	if _, err := store.PublishJSONToStream(ctx, r.client, r.stream, rec); err != nil {
		return fmt.Errorf("failed to publish load event: %w", err)
	}
	return nil
}
