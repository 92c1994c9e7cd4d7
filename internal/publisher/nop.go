package publisher

import (
	"context"

	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// Nop 仿真模式发布器：只记日志，不对外发布
type Nop struct {
	logger *zap.Logger
}

var _ Publisher = (*Nop)(nil)

func NewNop(logger *zap.Logger) *Nop {
	return &Nop{logger: logger}
}

func (n *Nop) PublishRecords(ctx context.Context, records []*domain.ChannelRecord) error {
	n.logger.Info("simulation mode, records not published",
		zap.Int("record_count", len(records)))
	return nil
}

func (n *Nop) PublishScalar(ctx context.Context, name string, value string) error {
	n.logger.Debug("simulation mode, scalar not published",
		zap.String("name", name),
		zap.String("value", value))
	return nil
}

func (n *Nop) Name() string { return "nop" }
