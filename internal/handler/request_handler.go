package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-maintenance-api/internal/dto"
	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
	"github.com/noah-isme/hostel-maintenance-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, req dto.CreateRequestPayload) (*models.MaintenanceRequest, error)
	ListMine(ctx context.Context, matric string) ([]models.MaintenanceRequest, error)
	ListAll(ctx context.Context, query dto.RequestQuery) ([]models.MaintenanceRequest, error)
	Get(ctx context.Context, id int) (*models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, id int, req dto.UpdateStatusPayload, actor string) (*models.MaintenanceRequest, error)
}

// RequestHandler exposes maintenance request endpoints.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs handler.
func NewRequestHandler(svc requestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// Create godoc
// @Summary Submit a maintenance request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}
	created, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListMine godoc
// @Summary List requests raised by a resident
// @Tags Requests
// @Produce json
// @Param matric query string true "Matric number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) ListMine(c *gin.Context) {
	matric := c.Query("matric")
	if matric == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "matric required"))
		return
	}
	items, err := h.service.ListMine(c.Request.Context(), matric)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// ListAll godoc
// @Summary List every request
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param matric query string false "Matric filter"
// @Success 200 {object} response.Envelope
// @Router /admin/requests [get]
func (h *RequestHandler) ListAll(c *gin.Context) {
	query := dto.RequestQuery{Matric: c.Query("matric"), Status: c.Query("status")}
	items, err := h.service.ListAll(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get request detail
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// UpdateStatus godoc
// @Summary Advance request status
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Param payload body dto.UpdateStatusPayload true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/requests/{id}/status [patch]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateStatusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	updated, err := h.service.UpdateStatus(c.Request.Context(), id, req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated)
}
