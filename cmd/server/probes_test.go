package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func probe(t *testing.T, checks []dependencyCheck, path string) (int, map[string]any) {
	t.Helper()
	engine := newProbeEngine("stockcore-test", zap.NewNop(), checks)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	engine.ServeHTTP(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth_IgnoresDependencies(t *testing.T) {
	called := false
	checks := []dependencyCheck{{name: "database", check: func(context.Context) error {
		called = true
		return errors.New("down")
	}}}

	code, body := probe(t, checks, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.False(t, called)
}

func TestReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	t.Run("all dependencies up", func(t *testing.T) {
		code, body := probe(t, []dependencyCheck{
			{name: "database", check: ok},
			{name: "redis", check: ok},
		}, "/ready")

		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", body["status"])
		deps := body["dependencies"].(map[string]any)
		assert.Equal(t, "ok", deps["database"])
		assert.Equal(t, "ok", deps["redis"])
	})

	t.Run("one dependency down", func(t *testing.T) {
		code, body := probe(t, []dependencyCheck{
			{name: "database", check: ok},
			{name: "redis", check: down},
		}, "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not_ready", body["status"])
		deps := body["dependencies"].(map[string]any)
		assert.Equal(t, "ok", deps["database"])
		assert.Equal(t, "error", deps["redis"])
	})

	t.Run("no dependencies", func(t *testing.T) {
		code, body := probe(t, nil, "/ready")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("checks receive a deadline", func(t *testing.T) {
		var hasDeadline bool
		code, _ := probe(t, []dependencyCheck{{name: "database", check: func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}}}, "/ready")

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, hasDeadline)
	})
}

func TestProbeEngine_ServesOnlyProbes(t *testing.T) {
	engine := newProbeEngine("stockcore-test", zap.NewNop(), nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stock", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
