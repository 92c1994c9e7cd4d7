package repository

import (
	"context"
	"time"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// LoadFilters 加载历史查询过滤条件
type LoadFilters struct {
	Status     string
	UploadedBy string
	SHA256     string
	StartTime  *time.Time
	EndTime    *time.Time
}

// LoadsRepository 配置加载历史
type LoadsRepository interface {
	InsertLoad(ctx context.Context, rec *domain.LoadRecord) error
	GetLoad(ctx context.Context, loadID string) (*domain.LoadRecord, error)
	ListLoads(ctx context.Context, filters *LoadFilters, page, size int) ([]*domain.LoadRecord, int, error)
	LatestLoad(ctx context.Context) (*domain.LoadRecord, error)
}
