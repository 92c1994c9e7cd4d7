package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/store"
)

// VariablesHandler 已发布命名变量的只读查询（仅 Redis 后端可用）
type VariablesHandler struct {
	kv     store.KV // 可为 nil（未启用 Redis 发布）
	logger *zap.Logger
}

func NewVariablesHandler(kv store.KV, logger *zap.Logger) *VariablesHandler {
	return &VariablesHandler{kv: kv, logger: logger}
}

// Query GET /api/v1/pvs?name=<完整变量名> 或 ?pattern=<glob>
func (h *VariablesHandler) Query(w http.ResponseWriter, r *http.Request) {
	if h.kv == nil {
		writeJSON(w, http.StatusOK, Fail("variable store not enabled"))
		return
	}

	q := r.URL.Query()
	if name := q.Get("name"); name != "" {
		value, err := h.kv.Get(r.Context(), name)
		if err != nil {
			if errors.Is(err, store.ErrMiss) {
				writeJSON(w, http.StatusOK, Fail(fmt.Sprintf("variable %s not found", name)))
				return
			}
			h.logger.Error("variable get failed", zap.String("name", name), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("failed to read variable"))
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{
			"name":  name,
			"value": value,
		}))
		return
	}

	pattern := q.Get("pattern")
	if pattern == "" {
		writeJSON(w, http.StatusOK, Fail("name or pattern required"))
		return
	}

	keys, err := h.kv.ScanKeys(r.Context(), pattern)
	if err != nil {
		h.logger.Error("variable scan failed", zap.String("pattern", pattern), zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to scan variables"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"pattern": pattern,
		"names":   keys,
		"count":   len(keys),
	}))
}
