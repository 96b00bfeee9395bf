package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-maintenance-api/internal/dto"
	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
)

type requestRepository interface {
	Create(ctx context.Context, draft models.RequestDraft) (*models.MaintenanceRequest, error)
	ListByOwner(ctx context.Context, matric string) ([]models.MaintenanceRequest, error)
	ListAll(ctx context.Context) ([]models.MaintenanceRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error)
	Get(ctx context.Context, id int) (*models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, id int, target models.RequestStatus) (*models.MaintenanceRequest, error)
}

type operationRecorder interface {
	RecordRequestOperation(operation string, err error)
}

// RequestService exposes maintenance request use cases to the HTTP and CLI layers.
type RequestService struct {
	repo      requestRepository
	validator *validator.Validate
	logger    *zap.Logger
	metrics   operationRecorder
}

// NewRequestService constructs the request service.
func NewRequestService(repo requestRepository, validate *validator.Validate, logger *zap.Logger, metrics operationRecorder) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{repo: repo, validator: validate, logger: logger, metrics: metrics}
}

// Submit validates and stores a new request in the Submitted state.
func (s *RequestService) Submit(ctx context.Context, req dto.CreateRequestPayload) (result *models.MaintenanceRequest, err error) {
	defer func() { s.record("create", err) }()

	req = req.Normalize()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid maintenance request payload")
	}
	created, err := s.repo.Create(ctx, req.Draft())
	if err != nil {
		s.logger.Error("failed to create maintenance request", zap.String("matric", req.Matric), zap.Error(err))
		return nil, err
	}
	s.logger.Info("maintenance request submitted",
		zap.Int("id", created.ID),
		zap.String("matric", created.Matric),
		zap.String("category", created.Category),
	)
	return created, nil
}

// ListMine returns requests submitted under matric.
func (s *RequestService) ListMine(ctx context.Context, matric string) (result []models.MaintenanceRequest, err error) {
	defer func() { s.record("list_by_owner", err) }()

	matric = strings.TrimSpace(matric)
	if matric == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "matric is required")
	}
	return s.repo.ListByOwner(ctx, matric)
}

// ListAll returns every request, optionally filtered by matric and status.
func (s *RequestService) ListAll(ctx context.Context, query dto.RequestQuery) (result []models.MaintenanceRequest, err error) {
	defer func() { s.record("list_all", err) }()

	filter := models.RequestFilter{Matric: strings.TrimSpace(query.Matric)}
	if raw := strings.TrimSpace(query.Status); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		filter.Status = status
	}
	if filter == (models.RequestFilter{}) {
		return s.repo.ListAll(ctx)
	}
	return s.repo.List(ctx, filter)
}

// Get returns a single request.
func (s *RequestService) Get(ctx context.Context, id int) (result *models.MaintenanceRequest, err error) {
	defer func() { s.record("get", err) }()

	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id must be positive")
	}
	return s.repo.Get(ctx, id)
}

// UpdateStatus moves request id along the lifecycle.
func (s *RequestService) UpdateStatus(ctx context.Context, id int, req dto.UpdateStatusPayload, actor string) (result *models.MaintenanceRequest, err error) {
	defer func() { s.record("update_status", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	target, err := models.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if id <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request id must be positive")
	}

	updated, err := s.repo.UpdateStatus(ctx, id, target)
	if err != nil {
		s.logger.Warn("status update rejected",
			zap.Int("id", id),
			zap.String("target", string(target)),
			zap.String("actor", actor),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("maintenance request status updated",
		zap.Int("id", updated.ID),
		zap.String("status", string(updated.Status())),
		zap.String("actor", actor),
	)
	return updated, nil
}

func (s *RequestService) record(operation string, err error) {
	if s.metrics != nil {
		s.metrics.RecordRequestOperation(operation, err)
	}
}
