package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getHealth(t *testing.T, h *HealthHandler) HealthResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func getReady(t *testing.T, h *HealthHandler) (int, ReadyResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var resp ReadyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler()

	resp := getHealth(t, h)
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Timestamp)
	assert.NotEmpty(t, resp.Uptime)
	assert.Nil(t, resp.WorkerID, "worker id is omitted until set")

	h.SetWorkerID(0)
	resp = getHealth(t, h)
	require.NotNil(t, resp.WorkerID)
	assert.Equal(t, int64(0), *resp.WorkerID)

	h.SetWorkerID(1023)
	resp = getHealth(t, h)
	require.NotNil(t, resp.WorkerID)
	assert.Equal(t, int64(1023), *resp.WorkerID)
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		draining   bool
		checks     map[string]CheckFunc
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checks",
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name:       "draining",
			draining:   true,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not ready",
		},
		{
			name: "all checks pass",
			checks: map[string]CheckFunc{
				"database":     func(context.Context) error { return nil },
				"worker_lease": func(context.Context) error { return nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			wantChecks: map[string]string{"database": "ok", "worker_lease": "ok"},
		},
		{
			name: "one check fails",
			checks: map[string]CheckFunc{
				"database": func(context.Context) error { return errors.New("connection refused") },
				"redis":    func(context.Context) error { return nil },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not ready",
			wantChecks: map[string]string{"database": "fail: connection refused", "redis": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler()
			h.SetReady(!tt.draining)
			for name, fn := range tt.checks {
				h.AddCheck(name, fn)
			}

			code, resp := getReady(t, h)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}

func TestReady_ChecksHaveDeadline(t *testing.T) {
	h := NewHealthHandler()
	h.AddCheck("slow", func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		if !ok || time.Until(deadline) > checkTimeout {
			return errors.New("no deadline")
		}
		return nil
	})

	code, resp := getReady(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Checks["slow"])
}

func TestReady_ChecksRunInParallel(t *testing.T) {
	h := NewHealthHandler()
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	blocking := func(ctx context.Context) error {
		started <- struct{}{}
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	h.AddCheck("a", blocking)
	h.AddCheck("b", blocking)

	go func() {
		<-started
		<-started
		close(release)
	}()

	code, _ := getReady(t, h)
	assert.Equal(t, http.StatusOK, code)
}

func TestHealthHandler_SetReady(t *testing.T) {
	h := NewHealthHandler()
	assert.True(t, h.IsReady())

	h.SetReady(false)
	assert.False(t, h.IsReady())

	h.SetReady(true)
	assert.True(t, h.IsReady())
}

func TestHealthHandler_AddCheckReplaces(t *testing.T) {
	h := NewHealthHandler()
	h.AddCheck("redis", func(context.Context) error { return errors.New("down") })
	h.AddCheck("redis", func(context.Context) error { return nil })
	h.AddCheck("database", func(context.Context) error { return nil })

	assert.Equal(t, []string{"database", "redis"}, h.CheckNames())

	code, _ := getReady(t, h)
	assert.Equal(t, http.StatusOK, code)
}
