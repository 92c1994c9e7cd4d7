package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/archive"
	"github.com/osprey-dcs/quartz-config-loader/internal/compiler"
	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
	"github.com/osprey-dcs/quartz-config-loader/internal/logger"
	"github.com/osprey-dcs/quartz-config-loader/internal/output"
	"github.com/osprey-dcs/quartz-config-loader/internal/publisher"
	"github.com/osprey-dcs/quartz-config-loader/internal/repository"
	"github.com/osprey-dcs/quartz-config-loader/internal/schema"
	"github.com/osprey-dcs/quartz-config-loader/internal/sheet"
)

// 控制/状态变量名后缀（完整名 = 前缀 + "CCCR:" + 后缀）
const (
	ControlName = "NAME" // 待加载文件名
	ControlBody = "BODY" // 最近一次提交的文件体原文
	ControlSts  = "STS"  // Success / Error
	ControlMsg  = "MSG"  // 人读结果消息
	ControlLog  = "LOG"  // 最近一次加载的日志尾部
	ControlHash = "HASH" // 已接受文件的 sha256
	ControlBusy = "BUSY" // Idle / Busy
)

// BUSY 变量取值
const (
	BusyIdle = "Idle"
	BusyBusy = "Busy"
)

// LoadRequest 一次加载请求
type LoadRequest struct {
	Filename   string
	Content    []byte
	UploadedBy string
	OutputDir  string // 非空时写规范化回显 output.csv
	DryRun     bool   // 只编译校验，不发布不归档
}

// Status 加载服务当前状态快照
type Status struct {
	Busy     bool               `json:"busy"`
	Filename string             `json:"filename"`
	SHA256   string             `json:"sha256"`
	Status   string             `json:"status"`
	Message  string             `json:"message"`
	Log      string             `json:"log"`
	LastLoad *domain.LoadRecord `json:"last_load,omitempty"`
}

// LoaderService 通道配置加载服务：校验、编译、归档、发布、记历史。
// repo / arch / events / tail 均可为 nil（按部署裁剪），publisher 必须有
type LoaderService struct {
	compiler *compiler.Compiler
	pub      publisher.Publisher
	events   publisher.LoadEventPublisher
	arch     *archive.Store
	repo     repository.LoadsRepository
	tail     *logger.TailBuffer
	logger   *zap.Logger

	mu         sync.Mutex
	busy       bool
	stagedName string
	stagedBy   string
	last       Status
}

// NewLoaderService 创建加载服务
func NewLoaderService(
	comp *compiler.Compiler,
	pub publisher.Publisher,
	events publisher.LoadEventPublisher,
	arch *archive.Store,
	repo repository.LoadsRepository,
	tail *logger.TailBuffer,
	log *zap.Logger,
) *LoaderService {
	return &LoaderService{
		compiler: comp,
		pub:      pub,
		events:   events,
		arch:     arch,
		repo:     repo,
		tail:     tail,
		logger:   log,
	}
}

// Run 执行一次完整加载：解析 → 编译 → 回显 → 归档 → 发布。
// 任何一步失败都整文件拒绝，已有记录保持不变；失败同样记入历史。
// CLI 与服务端共用此路径
func (s *LoaderService) Run(ctx context.Context, req LoadRequest) (*domain.LoadRecord, error) {
	rec := &domain.LoadRecord{
		LoadID:     uuid.NewString(),
		Filename:   req.Filename,
		UploadedBy: req.UploadedBy,
		StartedAt:  time.Now(),
	}

	err := s.run(ctx, req, rec)

	now := time.Now()
	rec.FinishedAt = &now
	if err != nil {
		rec.Status = domain.LoadStatusError
		rec.Message = err.Error()
		s.logger.Error("load failed",
			zap.String("load_id", rec.LoadID),
			zap.String("filename", req.Filename),
			zap.Error(err))
	} else {
		rec.Status = domain.LoadStatusSuccess
		rec.Message = fmt.Sprintf("loaded %d records from %d rows", rec.RecordCount, rec.RowCount)
		s.logger.Info("load complete",
			zap.String("load_id", rec.LoadID),
			zap.String("filename", req.Filename),
			zap.String("sha256", rec.SHA256),
			zap.Int("record_count", rec.RecordCount))
	}

	// 成败都记入历史与事件流，便于审计
	if s.repo != nil {
		if dbErr := s.repo.InsertLoad(ctx, rec); dbErr != nil {
			s.logger.Warn("failed to record load history", zap.Error(dbErr))
		}
	}
	if s.events != nil {
		if evErr := s.events.PublishLoadEvent(ctx, rec); evErr != nil {
			s.logger.Warn("failed to publish load event", zap.Error(evErr))
		}
	}

	return rec, err
}

func (s *LoaderService) run(ctx context.Context, req LoadRequest, rec *domain.LoadRecord) error {
	table, err := s.parse(req.Filename, req.Content)
	if err != nil {
		return err
	}
	rec.RowCount = len(table.Rows)

	records, err := s.compiler.Compile(table)
	if err != nil {
		return err
	}
	rec.RecordCount = len(records)

	if req.OutputDir != "" {
		path, err := output.WriteFile(req.OutputDir, table)
		if err != nil {
			return err
		}
		outHash, err := archive.HashFile(path)
		if err != nil {
			return err
		}
		s.logger.Info("normalized table written",
			zap.String("path", path),
			zap.String("sha256", outHash))
	}

	if req.DryRun {
		rec.SHA256 = archive.HashBytes(req.Content)
		s.logger.Info("dry run, skipping archive and publish")
		return nil
	}

	if s.arch != nil {
		entry, err := s.arch.Put(req.Content)
		if err != nil {
			return err
		}
		rec.SHA256 = entry.Hash
		if !entry.Created {
			s.logger.Info("file content already archived", zap.String("sha256", entry.Hash))
		}
	} else {
		rec.SHA256 = archive.HashBytes(req.Content)
	}

	if err := s.pub.PublishRecords(ctx, records); err != nil {
		return err
	}

	return nil
}

func (s *LoaderService) parse(filename string, content []byte) (*schema.Table, error) {
	if sheet.IsWorkbook(filename) {
		rows, err := sheet.Read(content)
		if err != nil {
			return nil, &schema.SchemaError{File: filename, Reason: err.Error()}
		}
		return schema.ParseRows(filename, rows)
	}
	return schema.Parse(filename, bytes.NewReader(content))
}

// StageFilename 暂存待加载文件名（服务端两步提交的第一步），
// 同时公开到 NAME 变量。文件名至少 5 个字符
func (s *LoaderService) StageFilename(ctx context.Context, name, uploader string) error {
	if len(strings.TrimSpace(name)) < 5 {
		return fmt.Errorf("invalid file name %q", name)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return fmt.Errorf("loader busy, concurrent load not permitted")
	}
	s.stagedName = strings.TrimSpace(name)
	s.stagedBy = uploader
	s.mu.Unlock()

	s.postControl(ctx, ControlName, name)
	s.logger.Info("file name staged",
		zap.String("filename", name),
		zap.String("uploaded_by", uploader))
	return nil
}

// LoadStaged 两步提交的第二步：收到文件体后执行加载。
// 文件名必须已暂存，且暂存者与提交者一致，否则按冲突事务拒绝
func (s *LoaderService) LoadStaged(ctx context.Context, body []byte, uploader string) (*domain.LoadRecord, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, fmt.Errorf("loader busy, concurrent load not permitted")
	}
	if s.stagedName == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("no file name staged")
	}
	if s.stagedBy != uploader {
		s.mu.Unlock()
		return nil, fmt.Errorf("collided transaction: staged by another uploader")
	}
	if len(body) < 5 {
		s.mu.Unlock()
		return nil, fmt.Errorf("file body too short")
	}
	filename := s.stagedName
	s.busy = true
	s.mu.Unlock()

	if s.tail != nil {
		s.tail.Reset()
	}
	s.postControl(ctx, ControlBusy, BusyBusy)
	s.postControl(ctx, ControlBody, string(body))

	rec, err := s.Run(ctx, LoadRequest{
		Filename:   filename,
		Content:    body,
		UploadedBy: uploader,
	})

	s.postResult(ctx, rec)
	s.postControl(ctx, ControlBusy, BusyIdle)

	s.mu.Lock()
	s.busy = false
	s.stagedName = ""
	s.stagedBy = ""
	s.last = Status{
		Filename: rec.Filename,
		SHA256:   rec.SHA256,
		Status:   rec.Status,
		Message:  rec.Message,
		Log:      s.tailText(),
		LastLoad: rec,
	}
	s.mu.Unlock()

	return rec, err
}

// Status 当前状态快照
func (s *LoaderService) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.last
	st.Busy = s.busy
	if s.busy {
		st.Filename = s.stagedName
	}
	return st
}

// RestoreFromHistory 服务重启后用最近一次加载恢复状态变量
func (s *LoaderService) RestoreFromHistory(ctx context.Context) {
	if s.repo == nil {
		return
	}
	rec, err := s.repo.LatestLoad(ctx)
	if err != nil {
		s.logger.Info("no load history to restore", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.last = Status{
		Filename: rec.Filename,
		SHA256:   rec.SHA256,
		Status:   rec.Status,
		Message:  rec.Message,
		LastLoad: rec,
	}
	s.mu.Unlock()

	s.postResult(ctx, rec)
	s.postControl(ctx, ControlBusy, BusyIdle)
	s.logger.Info("status restored from load history",
		zap.String("load_id", rec.LoadID),
		zap.String("filename", rec.Filename))
}

// postResult 把一次加载的结果公开到状态变量
func (s *LoaderService) postResult(ctx context.Context, rec *domain.LoadRecord) {
	s.postControl(ctx, ControlName, rec.Filename)
	s.postControl(ctx, ControlSts, rec.Status)
	s.postControl(ctx, ControlMsg, rec.Message)
	if rec.SHA256 != "" {
		s.postControl(ctx, ControlHash, rec.SHA256)
	}
	if s.tail != nil {
		s.postControl(ctx, ControlLog, s.tail.Text())
	}
}

func (s *LoaderService) postControl(ctx context.Context, suffix, value string) {
	name := s.compiler.Prefix() + "CCCR:" + suffix
	if err := s.pub.PublishScalar(ctx, name, value); err != nil {
		s.logger.Warn("failed to post control variable",
			zap.String("name", name),
			zap.Error(err))
	}
}

func (s *LoaderService) tailText() string {
	if s.tail == nil {
		return ""
	}
	return s.tail.Text()
}
