// Package publisher 定义编译产物的对外公开协作方。编译器本身不持久化，
// 记录一经编译即交给 Publisher 发布；发布后端（Redis / MQTT / 网关）可任意组合。
package publisher

import (
	"context"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// Publisher 命名变量发布方
type Publisher interface {
	// PublishRecords 整批公开编译出的通道记录
	PublishRecords(ctx context.Context, records []*domain.ChannelRecord) error
	// PublishScalar 公开一个标量命名变量（控制/状态变量用）
	PublishScalar(ctx context.Context, name string, value string) error
	// Name 后端名，用于日志与错误定位
	Name() string
}

// LoadEventPublisher 加载事件流（可选能力，目前由 Redis 后端提供）
type LoadEventPublisher interface {
	PublishLoadEvent(ctx context.Context, rec *domain.LoadRecord) error
}
