package publisher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// Gateway 经 HTTP 网关发布：PUT /pvs/<name>，请求体 {"value": ...}。
// 网关负责把变量桥接到现场总线
type Gateway struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

var _ Publisher = (*Gateway)(nil)

func NewGateway(baseURL string, timeout time.Duration, logger *zap.Logger) *Gateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Gateway{httpClient: client, logger: logger}
}

func (g *Gateway) PublishRecords(ctx context.Context, records []*domain.ChannelRecord) error {
	for _, rec := range records {
		if err := g.put(ctx, rec.Name, map[string]any{"value": rec.Fields}); err != nil {
			return err
		}
	}
	g.logger.Info("records published to gateway", zap.Int("record_count", len(records)))
	return nil
}

func (g *Gateway) PublishScalar(ctx context.Context, name string, value string) error {
	return g.put(ctx, name, map[string]any{"value": value})
}

func (g *Gateway) Name() string { return "gateway" }

func (g *Gateway) put(ctx context.Context, name string, body map[string]any) error {
	resp, err := g.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Put("/pvs/" + url.PathEscape(name))
	if err != nil {
		return fmt.Errorf("failed to call gateway for %s: %w", name, err)
	}
	if resp.IsError() {
		g.logger.Error("gateway rejected variable",
			zap.String("name", name),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("gateway returned %s for %s", resp.Status(), name)
	}
	return nil
}
