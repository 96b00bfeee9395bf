package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
)

type authServiceMock struct {
	req  models.LoginRequest
	resp *models.LoginResponse
	err  error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.req = req
	return m.resp, m.err
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceMock{resp: &models.LoginResponse{AccessToken: "tok", ExpiresIn: 3600, User: models.Principal{Username: "admin", Role: models.RoleAdmin}}}
	h := NewAuthHandler(svc)

	payload, _ := json.Marshal(models.LoginRequest{Username: "admin", Password: "secret"})
	c, w := newTestContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", svc.req.Username)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "tok", data["access_token"])
}

func TestAuthHandlerLoginRejected(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{err: appErrors.ErrInvalidCredentials})

	payload, _ := json.Marshal(models.LoginRequest{Username: "admin", Password: "wrong"})
	c, w := newTestContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newTestContext(http.MethodPost, "/auth/login", []byte("not json"))
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
