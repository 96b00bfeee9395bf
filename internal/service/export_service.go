package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-maintenance-api/internal/dto"
	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	"github.com/noah-isme/hostel-maintenance-api/internal/repository"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
	"github.com/noah-isme/hostel-maintenance-api/pkg/export"
	"github.com/noah-isme/hostel-maintenance-api/pkg/storage"
)

type requestLister interface {
	ListAll(ctx context.Context, query dto.RequestQuery) ([]models.MaintenanceRequest, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupDirsOlderThan(ttl time.Duration, match func(dir string) bool) ([]string, error)
}

type exportRecorder interface {
	RecordExport(format string)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportFile is a resolved download.
type ExportFile struct {
	File        *os.File
	FileName    string
	ContentType string
}

// ExportService renders request reports and persists them for signed download.
type ExportService struct {
	requests  requestLister
	storage   fileStorage
	signer    *storage.SignedURLSigner
	exporters map[models.ExportFormat]export.Exporter
	validator *validator.Validate
	logger    *zap.Logger
	metrics   exportRecorder
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService with csv, pdf and xlsx renderers.
func NewExportService(requests requestLister, files fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, metrics exportRecorder) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		requests: requests,
		storage:  files,
		signer:   signer,
		exporters: map[models.ExportFormat]export.Exporter{
			models.ExportFormatCSV:  export.NewCSVExporter(),
			models.ExportFormatPDF:  export.NewPDFExporter(),
			models.ExportFormatXLSX: export.NewXLSXExporter(),
		},
		validator: validator.New(),
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Export renders the current request set and returns a signed download link.
func (s *ExportService) Export(ctx context.Context, req dto.ExportRequest) (*models.ExportResult, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	format := models.ExportFormat(req.Format)
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", req.Format))
	}

	records, err := s.requests.ListAll(ctx, dto.RequestQuery{Status: req.Status})
	if err != nil {
		return nil, err
	}
	content, err := exporter.Render(buildDataset(records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	fileName := fmt.Sprintf("requests-%s.%s", s.now().UTC().Format("20060102-150405"), exporter.Extension())
	relPath := path.Join(id, fileName)
	if _, err := s.storage.Save(relPath, content); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	if s.metrics != nil {
		s.metrics.RecordExport(string(format))
	}
	s.logger.Info("requests exported", zap.String("export_id", id), zap.String("format", string(format)), zap.Int("rows", len(records)))

	return &models.ExportResult{
		ID:          id,
		Format:      format,
		FileName:    fileName,
		RowCount:    len(records),
		DownloadURL: fmt.Sprintf("%s/exports/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), url.QueryEscape(token)),
		ExpiresAt:   expiresAt,
	}, nil
}

// Open resolves a signed token into the stored export file.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	if strings.TrimSpace(token) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to open export")
	}
	name := path.Base(relPath)
	contentType := "application/octet-stream"
	for format, exp := range s.exporters {
		if strings.HasSuffix(name, "."+string(format)) {
			contentType = exp.ContentType()
		}
	}
	return &ExportFile{File: file, FileName: name, ContentType: contentType}, nil
}

// Cleanup removes exports older than the configured TTL. Only files inside
// per-export uuid directories are eligible.
func (s *ExportService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupDirsOlderThan(s.cfg.ResultTTL, isExportDir)
	if err != nil {
		s.logger.Warn("export cleanup failed", zap.Error(err))
		return nil, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return deleted, nil
}

func isExportDir(name string) bool {
	_, err := uuid.Parse(name)
	return err == nil && len(name) == 36
}

func buildDataset(records []models.MaintenanceRequest) export.Dataset {
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]string{
			"id":           strconv.Itoa(r.ID),
			"student_name": r.StudentName,
			"matric":       r.Matric,
			"hostel":       r.Hostel,
			"room":         r.Room,
			"category":     r.Category,
			"description":  r.Description,
			"status":       string(r.Status()),
			"created_at":   r.CreatedAt,
		})
	}
	return export.Dataset{
		Title:   "Hostel maintenance requests",
		Headers: append([]string(nil), repository.Columns...),
		Rows:    rows,
	}
}
