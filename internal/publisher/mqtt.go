package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// MQTTConn 发布所需的最小 MQTT 客户端能力
type MQTTConn interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTT 把记录以保留消息发布到 broker，信号名中的 ':' 映射为主题分隔符 '/'
type MQTT struct {
	conn   MQTTConn
	qos    byte
	logger *zap.Logger
}

var _ Publisher = (*MQTT)(nil)

func NewMQTT(conn MQTTConn, qos byte, logger *zap.Logger) *MQTT {
	return &MQTT{conn: conn, qos: qos, logger: logger}
}

// TopicForName 信号名到 MQTT 主题的映射
func TopicForName(name string) string {
	return strings.ReplaceAll(name, ":", "/")
}

func (m *MQTT) PublishRecords(ctx context.Context, records []*domain.ChannelRecord) error {
	for _, rec := range records {
		payload, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal record %s: %w", rec.Name, err)
		}
		if err := m.conn.Publish(TopicForName(rec.Name), m.qos, true, payload); err != nil {
			return fmt.Errorf("failed to publish record %s: %w", rec.Name, err)
		}
	}
	m.logger.Info("records published to mqtt", zap.Int("record_count", len(records)))
	return nil
}

func (m *MQTT) PublishScalar(ctx context.Context, name string, value string) error {
	if err := m.conn.Publish(TopicForName(name), m.qos, true, []byte(value)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	return nil
}

func (m *MQTT) Name() string { return "mqtt" }
