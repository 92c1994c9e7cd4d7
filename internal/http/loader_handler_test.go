package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/archive"
	"github.com/osprey-dcs/quartz-config-loader/internal/compiler"
	"github.com/osprey-dcs/quartz-config-loader/internal/domain"
	"github.com/osprey-dcs/quartz-config-loader/internal/repository"
	"github.com/osprey-dcs/quartz-config-loader/internal/service"
	"github.com/osprey-dcs/quartz-config-loader/internal/sheet"
)

const validCSV = `CHASSIS,CONNECTOR,CHANNEL,SIGNAL,USE,CUSTNAM,DESC,IDLINE5,RESPNODE,EGU,ESLO,EOFF,LOLOlim,LOlim,HIlim,HIHIlim,FOO
1,1,1,1,yes,pump,inlet,id,node,V,1.0,0.0,-2,-1,1,2,x
`

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type nullPublisher struct{}

func (nullPublisher) PublishRecords(ctx context.Context, records []*domain.ChannelRecord) error {
	return nil
}
func (nullPublisher) PublishScalar(ctx context.Context, name string, value string) error {
	return nil
}
func (nullPublisher) Name() string { return "null" }

func newTestRouter(t *testing.T, repo repository.LoadsRepository) (*Router, *archive.Store) {
	t.Helper()
	arch, err := archive.New(filepath.Join(t.TempDir(), "archive"))
	require.NoError(t, err)

	logger := zap.NewNop()
	comp := compiler.New("FDAS:", logger)
	svc := service.NewLoaderService(comp, nullPublisher{}, nil, arch, repo, nil, logger)

	router := NewRouter(logger)
	router.RegisterLoaderRoutes(NewLoaderHandler(svc, repo, arch, logger))
	return router, arch
}

func doJSON(t *testing.T, router *Router, method, path string, body []byte, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func stage(t *testing.T, router *Router, filename, uploader string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"filename": filename})
	w, env := doJSON(t, router, http.MethodPut, "/api/v1/cccr/name", body,
		map[string]string{"X-Uploader": uploader})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, ResultSuccess, env.Code)
}

func TestStageNameAndSubmitBody(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	stage(t, router, "channels.csv", "operator")

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/cccr/body", []byte(validCSV),
		map[string]string{"X-Uploader": "operator"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, ResultSuccess, env.Code)

	var rec domain.LoadRecord
	require.NoError(t, json.Unmarshal(env.Result, &rec))
	assert.Equal(t, domain.LoadStatusSuccess, rec.Status)
	assert.Equal(t, "channels.csv", rec.Filename)
	assert.Equal(t, 1, rec.RecordCount)
}

func TestStageNameRejectsShortName(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body, _ := json.Marshal(map[string]string{"filename": "a.c"})
	_, env := doJSON(t, router, http.MethodPut, "/api/v1/cccr/name", body, nil)
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "invalid file name")
}

func TestSubmitBodyWithoutStaging(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	_, env := doJSON(t, router, http.MethodPost, "/api/v1/cccr/body", []byte(validCSV), nil)
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "no file name staged")
}

func TestSubmitBodyCollidedUploader(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	stage(t, router, "channels.csv", "alice")
	_, env := doJSON(t, router, http.MethodPost, "/api/v1/cccr/body", []byte(validCSV),
		map[string]string{"X-Uploader": "bob"})
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "collided transaction")
}

func TestSubmitBodyMultipart(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	stage(t, router, "channels.csv", "operator")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "channels.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(validCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cccr/body", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Uploader", "operator")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, ResultSuccess, env.Code)
}

func TestSubmitBodyBadTableReturnsRecord(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	stage(t, router, "channels.csv", "operator")

	bad := "CHASSIS,CONNECTOR\n1,2\n"
	_, env := doJSON(t, router, http.MethodPost, "/api/v1/cccr/body", []byte(bad),
		map[string]string{"X-Uploader": "operator"})
	require.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "missing columns")

	// 失败也返回加载记录
	var rec domain.LoadRecord
	require.NoError(t, json.Unmarshal(env.Result, &rec))
	assert.Equal(t, domain.LoadStatusError, rec.Status)
}

func TestGetStatus(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w, env := doJSON(t, router, http.MethodGet, "/api/v1/cccr/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, ResultSuccess, env.Code)

	var st service.Status
	require.NoError(t, json.Unmarshal(env.Result, &st))
	assert.False(t, st.Busy)
}

func TestGetTemplate(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cccr/template?domains=FOO,BAR", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))

	rows, err := sheet.Read(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(domain.FixedColumns)+2)
}

func TestListLoadsWithoutRepo(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	_, env := doJSON(t, router, http.MethodGet, "/api/v1/cccr/loads", nil, nil)
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "not enabled")
}

func TestListLoadsTimeWindow(t *testing.T) {
	repo := &fixedLoadsRepo{rec: &domain.LoadRecord{
		LoadID: "11111111-1111-1111-1111-111111111111",
		Status: domain.LoadStatusSuccess,
	}}
	router, _ := newTestRouter(t, repo)

	_, env := doJSON(t, router, http.MethodGet,
		"/api/v1/cccr/loads?status=Success&start=2026-08-01T00:00:00Z&end=2026-08-21T00:00:00Z", nil, nil)
	require.Equal(t, ResultSuccess, env.Code)

	require.NotNil(t, repo.filters)
	assert.Equal(t, "Success", repo.filters.Status)
	require.NotNil(t, repo.filters.StartTime)
	require.NotNil(t, repo.filters.EndTime)
	assert.Equal(t, "2026-08-01T00:00:00Z", repo.filters.StartTime.Format(time.RFC3339))
	assert.Equal(t, "2026-08-21T00:00:00Z", repo.filters.EndTime.Format(time.RFC3339))

	// 非法时间串忽略，不拦截请求
	_, env = doJSON(t, router, http.MethodGet, "/api/v1/cccr/loads?start=yesterday", nil, nil)
	require.Equal(t, ResultSuccess, env.Code)
	assert.Nil(t, repo.filters.StartTime)
	assert.Nil(t, repo.filters.EndTime)
}

func TestMethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	for path, method := range map[string]string{
		"/api/v1/cccr/name":   http.MethodGet,
		"/api/v1/cccr/body":   http.MethodPut,
		"/api/v1/cccr/status": http.MethodPost,
	} {
		req := httptest.NewRequest(method, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, "%s %s", method, path)
	}
}

func TestGetLoadRouting(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	// 带子路径的 id 直接 404
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cccr/loads/abc/extra", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type fixedLoadsRepo struct {
	rec     *domain.LoadRecord
	filters *repository.LoadFilters // 最近一次 ListLoads 收到的过滤条件
}

func (r *fixedLoadsRepo) InsertLoad(ctx context.Context, rec *domain.LoadRecord) error { return nil }

func (r *fixedLoadsRepo) GetLoad(ctx context.Context, loadID string) (*domain.LoadRecord, error) {
	if r.rec != nil && loadID == r.rec.LoadID {
		return r.rec, nil
	}
	return nil, fmt.Errorf("load not found")
}

func (r *fixedLoadsRepo) ListLoads(ctx context.Context, filters *repository.LoadFilters, page, size int) ([]*domain.LoadRecord, int, error) {
	r.filters = filters
	if r.rec == nil {
		return nil, 0, nil
	}
	return []*domain.LoadRecord{r.rec}, 1, nil
}

func (r *fixedLoadsRepo) LatestLoad(ctx context.Context) (*domain.LoadRecord, error) {
	if r.rec == nil {
		return nil, fmt.Errorf("no loads recorded")
	}
	return r.rec, nil
}

func TestGetLoad(t *testing.T) {
	repo := &fixedLoadsRepo{rec: &domain.LoadRecord{
		LoadID:   "11111111-1111-1111-1111-111111111111",
		Filename: "channels.csv",
		Status:   domain.LoadStatusSuccess,
	}}
	router, _ := newTestRouter(t, repo)

	_, env := doJSON(t, router, http.MethodGet, "/api/v1/cccr/loads/"+repo.rec.LoadID, nil, nil)
	require.Equal(t, ResultSuccess, env.Code)

	var rec domain.LoadRecord
	require.NoError(t, json.Unmarshal(env.Result, &rec))
	assert.Equal(t, "channels.csv", rec.Filename)
}

func TestGetLoadFile(t *testing.T) {
	repo := &fixedLoadsRepo{}
	router, arch := newTestRouter(t, repo)

	entry, err := arch.Put([]byte(validCSV))
	require.NoError(t, err)
	repo.rec = &domain.LoadRecord{
		LoadID:   "11111111-1111-1111-1111-111111111111",
		Filename: "channels.csv",
		SHA256:   entry.Hash,
		Status:   domain.LoadStatusSuccess,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cccr/loads/"+repo.rec.LoadID+"/file", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, validCSV, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "channels.csv")
}

func TestGetLoadFileUnknownID(t *testing.T) {
	router, _ := newTestRouter(t, &fixedLoadsRepo{})

	_, env := doJSON(t, router, http.MethodGet, "/api/v1/cccr/loads/nope/file", nil, nil)
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "failed to get load")
}
