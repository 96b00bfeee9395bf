package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-maintenance-api/internal/service"
	"github.com/noah-isme/hostel-maintenance-api/pkg/config"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := service.HashPassword("s3cret")
	require.NoError(t, err)
	dir := t.TempDir()
	return &config.Config{
		Env:       config.EnvProduction,
		APIPrefix: "/api/v1",
		Storage:   config.StorageConfig{File: filepath.Join(dir, "data", "requests.csv")},
		Admin:     config.AdminConfig{Username: "warden", PasswordHash: hash},
		JWT:       config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "test"},
		Exports: config.ExportsConfig{
			Enabled:         true,
			StorageDir:      filepath.Join(dir, "exports"),
			SignedURLSecret: "export-secret",
			SignedURLTTL:    time.Minute,
			CleanupTTL:      time.Hour,
		},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func call(t *testing.T, r http.Handler, method, path, token string, body interface{}) (int, envelope, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w.Code, env, w
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := buildApp(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	r := a.router

	code, _, _ := call(t, r, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, code)

	code, _, _ = call(t, r, http.MethodPost, "/api/v1/requests", "", map[string]string{
		"studentName": "Ali", "matric": "A123", "hostel": "H1", "room": "101", "category": "Plumbing", "description": "Leak",
	})
	require.Equal(t, http.StatusCreated, code)

	code, env, _ := call(t, r, http.MethodGet, "/api/v1/requests?matric=A123", "", nil)
	require.Equal(t, http.StatusOK, code)
	var mine []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Submitted", mine[0]["status"])

	code, _, _ = call(t, r, http.MethodGet, "/api/v1/admin/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _, _ = call(t, r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "warden", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env, _ = call(t, r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "warden", "password": "s3cret"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	token := login.AccessToken
	require.NotEmpty(t, token)

	code, _, _ = call(t, r, http.MethodPatch, "/api/v1/admin/requests/1/status", token, map[string]string{"status": "InProgress"})
	require.Equal(t, http.StatusOK, code)

	code, env, _ = call(t, r, http.MethodPatch, "/api/v1/admin/requests/1/status", token, map[string]string{"status": "Closed"})
	require.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	code, env, _ = call(t, r, http.MethodPatch, "/api/v1/admin/requests/999/status", token, map[string]string{"status": "InProgress"})
	require.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	code, env, _ = call(t, r, http.MethodGet, "/api/v1/admin/requests/1", token, nil)
	require.Equal(t, http.StatusOK, code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "InProgress", got["status"])

	code, env, _ = call(t, r, http.MethodPost, "/api/v1/admin/exports", token, map[string]string{"format": "csv"})
	require.Equal(t, http.StatusCreated, code)
	var result struct {
		DownloadURL string `json:"downloadUrl"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	u, err := url.Parse(result.DownloadURL)
	require.NoError(t, err)

	code, _, w := call(t, r, http.MethodGet, u.RequestURI(), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, w.Body.String(), "A123")
	assert.Contains(t, w.Body.String(), "InProgress")
}

func TestBuildAppRejectsExportDirHoldingStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.Exports.StorageDir = filepath.Dir(filepath.Dir(cfg.Storage.File))

	_, err := buildApp(cfg, zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCheckExportDir(t *testing.T) {
	root := t.TempDir()
	storageFile := filepath.Join(root, "data", "requests.csv")

	cases := map[string]bool{
		filepath.Join(root, "data"):            false,
		root:                                   false,
		filepath.Join(root, "exports"):         true,
		filepath.Join(root, "data", "exports"): true,
		filepath.Join(root, "data-exports"):    true,
	}
	for dir, ok := range cases {
		err := checkExportDir(dir, storageFile)
		if ok {
			assert.NoError(t, err, dir)
		} else {
			assert.Error(t, err, dir)
		}
	}
}
