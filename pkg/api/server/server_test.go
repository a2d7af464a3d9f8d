package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/keel/pkg/log"
	"github.com/rzbill/keel/pkg/manager"
	"github.com/rzbill/keel/pkg/metrics"
	"github.com/rzbill/keel/pkg/secrets"
	"github.com/rzbill/keel/pkg/store"
	"github.com/rzbill/keel/pkg/types"
)

func newTestServer(t *testing.T, opts ...Option) (*APIServer, *manager.Manager) {
	t.Helper()
	logger := log.NewTestLogger()
	st := store.New(t.TempDir(), store.WithLogger(logger))
	m := manager.New(st, secrets.NewRegistry(secrets.NewEnvEngine()), manager.WithLogger(logger))
	_, err := m.Add(context.Background(), "", types.NewDeploymentConfiguration("default"), manager.Options{})
	require.NoError(t, err)

	opts = append([]Option{WithLogger(logger), WithMetrics(metrics.New())}, opts...)
	return New(m, opts...), m
}

func do(t *testing.T, s *APIServer, method, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeploymentsAndConfig(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/deployments")
	require.Equal(t, http.StatusOK, rec.Code)
	var deps deploymentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deps))
	assert.Equal(t, []string{"default"}, deps.Deployments)

	rec = do(t, s, http.MethodGet, "/v1/config/default/canary")
	require.Equal(t, http.StatusOK, rec.Code)
	var canary map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &canary))
	assert.Equal(t, false, canary["enabled"])

	rec = do(t, s, http.MethodGet, "/v1/config/default/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, types.CodeNotFound, e.Code)
}

func TestValidateAndGenerate(t *testing.T) {
	s, m := newTestServer(t)
	ctx := context.Background()

	rec := do(t, s, http.MethodGet, "/v1/validate/default")
	require.Equal(t, http.StatusOK, rec.Code)
	var v validateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.False(t, v.Blocking)

	rec = do(t, s, http.MethodGet, "/v1/validate/default?severity=loud")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/generate/default")
	require.Equal(t, http.StatusOK, rec.Code)
	var g generateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	assert.NotEmpty(t, g.RunID)
	assert.Contains(t, g.Files, "gate.yml")

	_, err := m.AddYAML(ctx, "default/ci/jenkins/masters", []byte("name: broken\n"), manager.Options{NoValidate: true})
	require.NoError(t, err)

	rec = do(t, s, http.MethodGet, "/v1/validate/default")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.True(t, v.Blocking)

	rec = do(t, s, http.MethodPost, "/v1/generate/default")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ERROR"))

	rec = do(t, s, http.MethodPost, "/v1/generate/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIKey(t *testing.T) {
	s, _ := newTestServer(t, WithAuth([]string{"secret"}))

	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/v1/deployments").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, s, http.MethodGet, "/v1/deployments", "Authorization", "Bearer nope").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/deployments", "Authorization", "Bearer secret").Code)

	// Health stays open.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz").Code)
}
