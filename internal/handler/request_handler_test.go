package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-maintenance-api/internal/dto"
	"github.com/noah-isme/hostel-maintenance-api/internal/middleware"
	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
)

type requestServiceMock struct {
	submitted dto.CreateRequestPayload
	query     dto.RequestQuery
	matric    string
	updateID  int
	updateReq dto.UpdateStatusPayload
	actor     string
	item      *models.MaintenanceRequest
	items     []models.MaintenanceRequest
	err       error
}

func (m *requestServiceMock) Submit(ctx context.Context, req dto.CreateRequestPayload) (*models.MaintenanceRequest, error) {
	m.submitted = req
	return m.item, m.err
}

func (m *requestServiceMock) ListMine(ctx context.Context, matric string) ([]models.MaintenanceRequest, error) {
	m.matric = matric
	return m.items, m.err
}

func (m *requestServiceMock) ListAll(ctx context.Context, query dto.RequestQuery) ([]models.MaintenanceRequest, error) {
	m.query = query
	return m.items, m.err
}

func (m *requestServiceMock) Get(ctx context.Context, id int) (*models.MaintenanceRequest, error) {
	m.updateID = id
	return m.item, m.err
}

func (m *requestServiceMock) UpdateStatus(ctx context.Context, id int, req dto.UpdateStatusPayload, actor string) (*models.MaintenanceRequest, error) {
	m.updateID = id
	m.updateReq = req
	m.actor = actor
	return m.item, m.err
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func sampleRequest() *models.MaintenanceRequest {
	r := models.NewMaintenanceRequest(1, models.RequestDraft{
		StudentName: "Ali", Matric: "A1", Hostel: "H1", Room: "101", Category: "Plumbing", Description: "Leak",
	}, "2024-01-01 10:00:00")
	return &r
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestHandlerCreate(t *testing.T) {
	svc := &requestServiceMock{item: sampleRequest()}
	h := NewRequestHandler(svc)

	payload, _ := json.Marshal(dto.CreateRequestPayload{StudentName: "Ali", Matric: "A1", Hostel: "H1", Room: "101", Category: "Plumbing", Description: "Leak"})
	c, w := newTestContext(http.MethodPost, "/requests", payload)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "A1", svc.submitted.Matric)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Submitted", data["status"])
	assert.EqualValues(t, 1, data["id"])
}

func TestRequestHandlerCreateInvalidJSON(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})
	c, w := newTestContext(http.MethodPost, "/requests", []byte("{"))
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerListMine(t *testing.T) {
	svc := &requestServiceMock{items: []models.MaintenanceRequest{*sampleRequest()}}
	h := NewRequestHandler(svc)

	c, w := newTestContext(http.MethodGet, "/requests?matric=A1", nil)
	h.ListMine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A1", svc.matric)
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["total"])

	c, w = newTestContext(http.MethodGet, "/requests", nil)
	h.ListMine(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerListAllPassesFilters(t *testing.T) {
	svc := &requestServiceMock{}
	h := NewRequestHandler(svc)

	c, w := newTestContext(http.MethodGet, "/admin/requests?status=Resolved&matric=B2", nil)
	h.ListAll(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.RequestQuery{Matric: "B2", Status: "Resolved"}, svc.query)
}

func TestRequestHandlerGet(t *testing.T) {
	svc := &requestServiceMock{err: appErrors.ErrNotFound}
	h := NewRequestHandler(svc)

	c, w := newTestContext(http.MethodGet, "/admin/requests/9", nil)
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 9, svc.updateID)

	c, w = newTestContext(http.MethodGet, "/admin/requests/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerUpdateStatus(t *testing.T) {
	updated := sampleRequest()
	require.NoError(t, updated.ApplyTransition(models.StatusInProgress))
	svc := &requestServiceMock{item: updated}
	h := NewRequestHandler(svc)

	payload, _ := json.Marshal(dto.UpdateStatusPayload{Status: "InProgress"})
	c, w := newTestContext(http.MethodPatch, "/admin/requests/1/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "warden", Role: models.RoleAdmin})
	h.UpdateStatus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, svc.updateID)
	assert.Equal(t, "InProgress", svc.updateReq.Status)
	assert.Equal(t, "warden", svc.actor)
}

func TestRequestHandlerUpdateStatusConflict(t *testing.T) {
	svc := &requestServiceMock{err: appErrors.Clone(appErrors.ErrInvalidTransition, "invalid transition Submitted -> Closed")}
	h := NewRequestHandler(svc)

	payload, _ := json.Marshal(dto.UpdateStatusPayload{Status: "Closed"})
	c, w := newTestContext(http.MethodPatch, "/admin/requests/1/status", payload)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	h.UpdateStatus(c)

	require.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INVALID_TRANSITION", errBody["code"])
}
