package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/archive"
	"github.com/osprey-dcs/quartz-config-loader/internal/repository"
	"github.com/osprey-dcs/quartz-config-loader/internal/service"
	"github.com/osprey-dcs/quartz-config-loader/internal/sheet"
)

// maxUploadBytes 配置表上传大小上限
const maxUploadBytes = 32 << 20 // 32MB

// LoaderHandler 加载控制 API：两步提交（文件名 → 文件体）、状态查询、
// 导入模板下载与加载历史
type LoaderHandler struct {
	svc    *service.LoaderService
	repo   repository.LoadsRepository // 可为 nil（历史查询关闭）
	arch   *archive.Store             // 可为 nil（归档文件下载关闭）
	logger *zap.Logger
}

func NewLoaderHandler(svc *service.LoaderService, repo repository.LoadsRepository, arch *archive.Store, logger *zap.Logger) *LoaderHandler {
	return &LoaderHandler{svc: svc, repo: repo, arch: arch, logger: logger}
}

// uploaderFrom 上传者标识取自 X-Uploader 头；匿名上传统一归为 anonymous
func uploaderFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Uploader")); v != "" {
		return v
	}
	return "anonymous"
}

// StageName PUT /api/v1/cccr/name  暂存待加载文件名
func (h *LoaderHandler) StageName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	uploader := uploaderFrom(r)
	if err := h.svc.StageFilename(r.Context(), req.Filename, uploader); err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"filename":    strings.TrimSpace(req.Filename),
		"uploaded_by": uploader,
	}))
}

// SubmitBody POST /api/v1/cccr/body  提交文件体并执行加载。
// 支持 multipart 的 file 字段或原始请求体
func (h *LoaderHandler) SubmitBody(w http.ResponseWriter, r *http.Request) {
	content, err := h.readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	rec, err := h.svc.LoadStaged(r.Context(), content, uploaderFrom(r))
	if err != nil {
		if rec != nil {
			// 加载执行了但失败：带上失败记录便于排查
			writeJSON(w, http.StatusOK, Result[any]{
				Code: ResultError, Type: "error", Message: err.Error(), Result: rec,
			})
			return
		}
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, Ok(rec))
}

func (h *LoaderHandler) readUpload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, fmt.Errorf("failed to parse form")
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file not found in request")
		}
		defer file.Close()
		content, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read file")
		}
		return content, nil
	}

	content, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body")
	}
	return content, nil
}

// GetStatus GET /api/v1/cccr/status  当前加载状态
func (h *LoaderHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.svc.Status()))
}

// GetTemplate GET /api/v1/cccr/template?domains=FOO,BAR  下载导入模板
func (h *LoaderHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	var domains []string
	if raw := r.URL.Query().Get("domains"); raw != "" {
		for _, d := range strings.Split(raw, ",") {
			if d = strings.TrimSpace(d); d != "" {
				domains = append(domains, d)
			}
		}
	}

	excelData, err := sheet.Template(domains)
	if err != nil {
		h.logger.Error("failed to generate template", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to generate template: %v", err)))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=channel-config-template.xlsx")
	w.WriteHeader(http.StatusOK)
	w.Write(excelData)
}

// ListLoads GET /api/v1/cccr/loads  加载历史（分页 + 过滤，start/end 为
// RFC3339 时间窗）
func (h *LoaderHandler) ListLoads(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, Fail("load history not enabled"))
		return
	}

	q := r.URL.Query()
	filters := &repository.LoadFilters{
		Status:     q.Get("status"),
		UploadedBy: q.Get("uploaded_by"),
		SHA256:     q.Get("sha256"),
	}
	if raw := q.Get("start"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.StartTime = &t
		}
	}
	if raw := q.Get("end"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.EndTime = &t
		}
	}
	page := parseInt(q.Get("page"), 1)
	size := parseInt(q.Get("size"), 20)

	loads, total, err := h.repo.ListLoads(r.Context(), filters, page, size)
	if err != nil {
		h.logger.Error("ListLoads failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to list loads: %v", err)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": loads,
		"total": total,
		"page":  page,
		"size":  size,
	}))
}

// GetLoad GET /api/v1/cccr/loads/{id}  单次加载详情
func (h *LoaderHandler) GetLoad(w http.ResponseWriter, r *http.Request, loadID string) {
	if h.repo == nil {
		writeJSON(w, http.StatusOK, Fail("load history not enabled"))
		return
	}

	rec, err := h.repo.GetLoad(r.Context(), loadID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to get load: %v", err)))
		return
	}

	writeJSON(w, http.StatusOK, Ok(rec))
}

// GetLoadFile GET /api/v1/cccr/loads/{id}/file  取回该次加载归档的原始文件
func (h *LoaderHandler) GetLoadFile(w http.ResponseWriter, r *http.Request, loadID string) {
	if h.repo == nil || h.arch == nil {
		writeJSON(w, http.StatusOK, Fail("load archive not enabled"))
		return
	}

	rec, err := h.repo.GetLoad(r.Context(), loadID)
	if err != nil {
		writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("failed to get load: %v", err)))
		return
	}
	if rec.SHA256 == "" {
		writeJSON(w, http.StatusOK, Fail("load has no archived file"))
		return
	}

	content, err := h.arch.Read(rec.SHA256)
	if err != nil {
		h.logger.Error("failed to read archived file",
			zap.String("load_id", loadID),
			zap.String("sha256", rec.SHA256),
			zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("archived file not found"))
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filepath.Base(rec.Filename)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
