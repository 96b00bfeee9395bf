package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
	"github.com/noah-isme/hostel-maintenance-api/pkg/storage"
)

// Columns is the on-disk column order of the requests file.
var Columns = []string{
	"id",
	"student_name",
	"matric",
	"hostel",
	"room",
	"category",
	"description",
	"status",
	"created_at",
}

// StoreObserver receives timing and corruption signals from the store.
type StoreObserver interface {
	ObserveStoreOperation(op string, duration time.Duration, err error)
	RecordSkippedRows(count int)
}

// CSVStore reads and writes the full request set to a single CSV file.
type CSVStore struct {
	files    *storage.LocalStorage
	fileName string
	logger   *zap.Logger
	observer StoreObserver
}

// CSVStoreOption configures the store.
type CSVStoreOption func(*CSVStore)

// WithStoreObserver attaches an observer for store metrics.
func WithStoreObserver(observer StoreObserver) CSVStoreOption {
	return func(s *CSVStore) {
		s.observer = observer
	}
}

// NewCSVStore returns a store for the file at path. The file itself is created
// lazily by EnsureStorage.
func NewCSVStore(path string, logger *zap.Logger, opts ...CSVStoreOption) (*CSVStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "storage file path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := storage.NewLocalStorage(filepath.Dir(path))
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "")
	}
	s := &CSVStore{
		files:    files,
		fileName: filepath.Base(path),
		logger:   logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Path returns the resolved location of the requests file.
func (s *CSVStore) Path() string {
	return s.files.Path(s.fileName)
}

// EnsureStorage creates the directory and a header-only file when missing.
func (s *CSVStore) EnsureStorage(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.files.EnsureDir(); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "")
	}
	exists, err := s.files.Exists(s.fileName)
	if err != nil {
		return appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "")
	}
	if exists {
		return nil
	}
	if err := s.write(nil); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "")
	}
	s.logger.Info("initialised request storage", zap.String("path", s.Path()))
	return nil
}

// LoadAll returns every well-formed row in file order. Malformed rows are
// skipped and logged, never surfaced.
func (s *CSVStore) LoadAll(ctx context.Context) (records []models.MaintenanceRequest, err error) {
	start := time.Now()
	defer func() { s.observe("load", start, err) }()

	if err := s.EnsureStorage(ctx); err != nil {
		return nil, err
	}
	file, err := s.files.Open(s.fileName)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "")
	}
	defer file.Close() //nolint:errcheck

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.MaintenanceRequest{}, nil
	}
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "failed to read request storage header")
	}
	width := len(header)
	index := columnIndex(header)
	var pending []string
	if !isHeader(index) {
		// no header row: the first row is data in canonical order
		pending, width, index = header, len(Columns), columnIndex(Columns)
	}

	records = make([]models.MaintenanceRequest, 0)
	seen := make(map[int]struct{})
	skipped := 0
	for {
		var row []string
		if pending != nil {
			row, pending, err = pending, nil, nil
		} else {
			row, err = reader.Read()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			s.logger.Warn("skipping unreadable request row", zap.Int("line", parseErr.Line), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "failed to read request storage")
		}

		record, err := parseRow(row, width, index)
		if err == nil {
			if _, dup := seen[record.ID]; dup {
				err = fmt.Errorf("duplicate id %d", record.ID)
			}
		}
		if err != nil {
			skipped++
			line, _ := reader.FieldPos(0)
			s.logger.Warn("skipping corrupt request row", zap.Int("line", line), zap.Error(err))
			continue
		}
		seen[record.ID] = struct{}{}
		records = append(records, record)
	}

	if skipped > 0 && s.observer != nil {
		s.observer.RecordSkippedRows(skipped)
	}
	return records, nil
}

// SaveAll replaces the file with the header and one row per record in order.
func (s *CSVStore) SaveAll(ctx context.Context, records []models.MaintenanceRequest) (err error) {
	start := time.Now()
	defer func() { s.observe("save", start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.write(records); err != nil {
		return appErrors.WrapAs(err, appErrors.ErrStorageUnavailable, "failed to persist requests")
	}
	return nil
}

func (s *CSVStore) write(records []models.MaintenanceRequest) error {
	return s.files.WriteAtomic(s.fileName, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		if err := writer.Write(Columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, r := range records {
			if err := writer.Write(formatRow(r)); err != nil {
				return fmt.Errorf("write request %d: %w", r.ID, err)
			}
		}
		writer.Flush()
		return writer.Error()
	})
}

func (s *CSVStore) observe(op string, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveStoreOperation(op, time.Since(start), err)
}

func isHeader(index map[string]int) bool {
	_, hasID := index["id"]
	_, hasStatus := index["status"]
	return hasID && hasStatus
}

func columnIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	return index
}

func parseRow(row []string, width int, index map[string]int) (models.MaintenanceRequest, error) {
	if len(row) != width {
		return models.MaintenanceRequest{}, fmt.Errorf("expected %d columns, got %d", width, len(row))
	}
	field := func(name string) (string, error) {
		i, ok := index[name]
		if !ok {
			return "", fmt.Errorf("missing column %q", name)
		}
		return row[i], nil
	}

	values := make(map[string]string, len(Columns))
	for _, name := range Columns {
		v, err := field(name)
		if err != nil {
			return models.MaintenanceRequest{}, err
		}
		values[name] = v
	}

	id, err := strconv.Atoi(strings.TrimSpace(values["id"]))
	if err != nil {
		return models.MaintenanceRequest{}, fmt.Errorf("parse id: %w", err)
	}
	status, err := models.ParseStatus(values["status"])
	if err != nil {
		return models.MaintenanceRequest{}, err
	}
	return models.RestoreMaintenanceRequest(id, models.RequestDraft{
		StudentName: values["student_name"],
		Matric:      values["matric"],
		Hostel:      values["hostel"],
		Room:        values["room"],
		Category:    values["category"],
		Description: values["description"],
	}, status, values["created_at"])
}

func formatRow(r models.MaintenanceRequest) []string {
	return []string{
		strconv.Itoa(r.ID),
		r.StudentName,
		r.Matric,
		r.Hostel,
		r.Room,
		r.Category,
		r.Description,
		string(r.Status()),
		r.CreatedAt,
	}
}
