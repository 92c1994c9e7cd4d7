package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterLoaderRoutes 注册加载控制路由（两步提交 + 状态/模板/历史）
func (r *Router) RegisterLoaderRoutes(h *LoaderHandler) {
	r.Handle("/api/v1/cccr/name", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.StageName(w, req)
	})

	r.Handle("/api/v1/cccr/body", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SubmitBody(w, req)
	})

	r.Handle("/api/v1/cccr/status", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetStatus(w, req)
	})

	r.Handle("/api/v1/cccr/template", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.GetTemplate(w, req)
	})

	r.Handle("/api/v1/cccr/loads", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListLoads(w, req)
	})

	// loads/{id} 与 loads/{id}/file
	r.Handle("/api/v1/cccr/loads/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimPrefix(req.URL.Path, "/api/v1/cccr/loads/")
		if strings.HasSuffix(id, "/file") {
			h.GetLoadFile(w, req, strings.TrimSuffix(id, "/file"))
			return
		}
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetLoad(w, req, id)
	})
}

// RegisterVariableRoutes 注册已发布变量的只读查询路由
func (r *Router) RegisterVariableRoutes(h *VariablesHandler) {
	r.Handle("/api/v1/pvs", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Query(w, req)
	})
}
