package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
)

// PostgresLoadsRepository 加载历史Repository实现
type PostgresLoadsRepository struct {
	db *sql.DB
}

// NewPostgresLoadsRepository 创建加载历史Repository
func NewPostgresLoadsRepository(db *sql.DB) *PostgresLoadsRepository {
	return &PostgresLoadsRepository{db: db}
}

// 确保实现了接口
var _ LoadsRepository = (*PostgresLoadsRepository)(nil)

const loadColumns = `
	load_id::text,
	filename,
	sha256,
	uploaded_by,
	row_count,
	record_count,
	status,
	message,
	started_at,
	finished_at
`

// InsertLoad 记录一次加载（成功或失败都记）
func (r *PostgresLoadsRepository) InsertLoad(ctx context.Context, rec *domain.LoadRecord) error {
	if rec.LoadID == "" {
		return fmt.Errorf("load_id is required")
	}
	if rec.Filename == "" {
		return fmt.Errorf("filename is required")
	}

	query := `
		INSERT INTO channel_loads (
			load_id,
			filename,
			sha256,
			uploaded_by,
			row_count,
			record_count,
			status,
			message,
			started_at,
			finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var finishedAt interface{}
	if rec.FinishedAt != nil {
		finishedAt = *rec.FinishedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.LoadID, rec.Filename, rec.SHA256, rec.UploadedBy,
		rec.RowCount, rec.RecordCount, rec.Status, rec.Message,
		rec.StartedAt, finishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert load: %w", err)
	}

	return nil
}

// GetLoad 按 load_id 查询一次加载
func (r *PostgresLoadsRepository) GetLoad(ctx context.Context, loadID string) (*domain.LoadRecord, error) {
	if loadID == "" {
		return nil, sql.ErrNoRows
	}

	query := `
		SELECT ` + loadColumns + `
		FROM channel_loads
		WHERE load_id = $1
	`

	rec, err := scanLoad(r.db.QueryRowContext(ctx, query, loadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("load not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get load: %w", err)
	}
	return rec, nil
}

// ListLoads 查询加载历史（支持分页、状态与时间范围过滤）
func (r *PostgresLoadsRepository) ListLoads(ctx context.Context, filters *LoadFilters, page, size int) ([]*domain.LoadRecord, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if filters != nil {
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, filters.Status)
			argN++
		}
		if filters.UploadedBy != "" {
			where = append(where, fmt.Sprintf("uploaded_by = $%d", argN))
			args = append(args, filters.UploadedBy)
			argN++
		}
		if filters.SHA256 != "" {
			where = append(where, fmt.Sprintf("sha256 = $%d", argN))
			args = append(args, filters.SHA256)
			argN++
		}
		if filters.StartTime != nil {
			where = append(where, fmt.Sprintf("started_at >= $%d", argN))
			args = append(args, *filters.StartTime)
			argN++
		}
		if filters.EndTime != nil {
			where = append(where, fmt.Sprintf("started_at <= $%d", argN))
			args = append(args, *filters.EndTime)
			argN++
		}
	}

	// 查询总数
	queryCount := `
		SELECT COUNT(*)
		FROM channel_loads
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count loads: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	// 查询列表
	argsList := append(args, size, offset)
	query := `
		SELECT ` + loadColumns + `
		FROM channel_loads
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY started_at DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, query, argsList...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list loads: %w", err)
	}
	defer rows.Close()

	var loads []*domain.LoadRecord
	for rows.Next() {
		rec, err := scanLoad(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan load: %w", err)
		}
		loads = append(loads, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate loads: %w", err)
	}

	return loads, total, nil
}

// LatestLoad 最近一次加载（服务重启后恢复状态变量用）
func (r *PostgresLoadsRepository) LatestLoad(ctx context.Context) (*domain.LoadRecord, error) {
	query := `
		SELECT ` + loadColumns + `
		FROM channel_loads
		ORDER BY started_at DESC
		LIMIT 1
	`

	rec, err := scanLoad(r.db.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no loads recorded: %w", err)
		}
		return nil, fmt.Errorf("failed to get latest load: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoad(row rowScanner) (*domain.LoadRecord, error) {
	var rec domain.LoadRecord
	var sha, uploadedBy, message sql.NullString
	var finishedAt sql.NullTime

	if err := row.Scan(
		&rec.LoadID,
		&rec.Filename,
		&sha,
		&uploadedBy,
		&rec.RowCount,
		&rec.RecordCount,
		&rec.Status,
		&message,
		&rec.StartedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	if sha.Valid {
		rec.SHA256 = sha.String
	}
	if uploadedBy.Valid {
		rec.UploadedBy = uploadedBy.String
	}
	if message.Valid {
		rec.Message = message.String
	}
	if finishedAt.Valid {
		rec.FinishedAt = &finishedAt.Time
	}

	return &rec, nil
}
