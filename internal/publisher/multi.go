package publisher

import (
	"context"
	"fmt"
	"strings"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// Multi 按顺序扇出到多个后端，任一后端失败即整体失败
type Multi struct {
	backends []Publisher
}

var _ Publisher = (*Multi)(nil)

func NewMulti(backends ...Publisher) *Multi {
	return &Multi{backends: backends}
}

func (m *Multi) PublishRecords(ctx context.Context, records []*domain.ChannelRecord) error {
	for _, b := range m.backends {
		if err := b.PublishRecords(ctx, records); err != nil {
			return fmt.Errorf("publisher %s: %w", b.Name(), err)
		}
	}
	return nil
}

func (m *Multi) PublishScalar(ctx context.Context, name string, value string) error {
	for _, b := range m.backends {
		if err := b.PublishScalar(ctx, name, value); err != nil {
			return fmt.Errorf("publisher %s: %w", b.Name(), err)
		}
	}
	return nil
}

func (m *Multi) Name() string {
	names := make([]string, 0, len(m.backends))
	for _, b := range m.backends {
		names = append(names, b.Name())
	}
	return strings.Join(names, "+")
}

// PublishLoadEvent 转发给第一个支持加载事件的后端
func (m *Multi) PublishLoadEvent(ctx context.Context, rec *domain.LoadRecord) error {
	for _, b := range m.backends {
		if ep, ok := b.(LoadEventPublisher); ok {
			return ep.PublishLoadEvent(ctx, rec)
		}
	}
	return nil
}
