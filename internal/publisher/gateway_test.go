package publisher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGatewayPublishRecords(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Contains(t, body, "value")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub := NewGateway(srv.URL, 5*time.Second, zap.NewNop())
	require.NoError(t, pub.PublishRecords(context.Background(), testRecords()))

	assert.Equal(t, []string{
		"/pvs/FDAS:01:SA:DB2:Ch05:Sig03:FOO",
		"/pvs/FDAS:01:SA:DB2:Ch05:Sig03:BAR",
	}, paths)
}

func TestGatewayPublishScalar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Busy", body["value"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	pub := NewGateway(srv.URL, 5*time.Second, zap.NewNop())
	require.NoError(t, pub.PublishScalar(context.Background(), "FDAS:CCCR:BUSY", "Busy"))
}

func TestGatewayRejectedVariable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad variable", http.StatusBadRequest)
	}))
	defer srv.Close()

	pub := NewGateway(srv.URL, 5*time.Second, zap.NewNop())
	err := pub.PublishScalar(context.Background(), "FDAS:CCCR:STS", "Error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway returned")
}
