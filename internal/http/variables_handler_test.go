package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osprey-dcs/quartz-config-loader/internal/store"
)

type fakeKV struct {
	data map[string]string
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", store.ErrMiss
}

func (f *fakeKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newVariablesRouter(kv store.KV) *Router {
	logger := zap.NewNop()
	router := NewRouter(logger)
	router.RegisterVariableRoutes(NewVariablesHandler(kv, logger))
	return router
}

func getEnvelope(t *testing.T, router *Router, path string) envelope {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestVariablesGetByName(t *testing.T) {
	kv := &fakeKV{data: map[string]string{
		"FDAS:CCCR:STS": "Success",
	}}
	router := newVariablesRouter(kv)

	env := getEnvelope(t, router, "/api/v1/pvs?name=FDAS:CCCR:STS")
	require.Equal(t, ResultSuccess, env.Code)

	var result struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.Equal(t, "Success", result.Value)
}

func TestVariablesGetMiss(t *testing.T) {
	router := newVariablesRouter(&fakeKV{})

	env := getEnvelope(t, router, "/api/v1/pvs?name=FDAS:missing")
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "not found")
}

func TestVariablesScanByPattern(t *testing.T) {
	kv := &fakeKV{data: map[string]string{
		"FDAS:01:SA:DB1:Ch01:Sig01:FOO": "{}",
		"FDAS:01:SA:DB1:Ch02:Sig01:FOO": "{}",
		"OTHER:x":                       "{}",
	}}
	router := newVariablesRouter(kv)

	env := getEnvelope(t, router, "/api/v1/pvs?pattern=FDAS:*")
	require.Equal(t, ResultSuccess, env.Code)

	var result struct {
		Names []string `json:"names"`
		Count int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.Equal(t, 2, result.Count)
}

func TestVariablesRequiresQuery(t *testing.T) {
	router := newVariablesRouter(&fakeKV{})

	env := getEnvelope(t, router, "/api/v1/pvs")
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "name or pattern required")
}

func TestVariablesStoreDisabled(t *testing.T) {
	router := newVariablesRouter(nil)

	env := getEnvelope(t, router, "/api/v1/pvs?name=FDAS:CCCR:STS")
	assert.Equal(t, ResultError, env.Code)
	assert.Contains(t, env.Message, "not enabled")
}
