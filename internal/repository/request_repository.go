package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
)

type recordStore interface {
	LoadAll(ctx context.Context) ([]models.MaintenanceRequest, error)
	SaveAll(ctx context.Context, records []models.MaintenanceRequest) error
}

// RequestRepository is the working set of maintenance requests. Every
// operation reloads the store first; mutations hold mu across the whole
// reload, mutate, save span so writers in this process never interleave.
type RequestRepository struct {
	store recordStore
	now   func() time.Time

	mu      sync.Mutex
	records []models.MaintenanceRequest
}

// RequestRepositoryOption configures the repository.
type RequestRepositoryOption func(*RequestRepository)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) RequestRepositoryOption {
	return func(r *RequestRepository) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRequestRepository constructs the repository over store.
func NewRequestRepository(store recordStore, opts ...RequestRepositoryOption) *RequestRepository {
	r := &RequestRepository{store: store, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Reload replaces the working set with the store contents and returns a copy.
func (r *RequestRepository) Reload(ctx context.Context) ([]models.MaintenanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.reloadLocked(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(r.records), nil
}

func (r *RequestRepository) reloadLocked(ctx context.Context) error {
	records, err := r.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	r.records = records
	return nil
}

// Create submits a new request with the next free id.
func (r *RequestRepository) Create(ctx context.Context, draft models.RequestDraft) (*models.MaintenanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reloadLocked(ctx); err != nil {
		return nil, err
	}
	record := models.NewMaintenanceRequest(NextID(r.records), draft, r.now().Format(models.TimestampLayout))
	next := append(slices.Clone(r.records), record)
	if err := r.store.SaveAll(ctx, next); err != nil {
		return nil, err
	}
	r.records = next
	return &record, nil
}

// ListByOwner returns the requests whose matric equals matric exactly, in file order.
func (r *RequestRepository) ListByOwner(ctx context.Context, matric string) ([]models.MaintenanceRequest, error) {
	all, err := r.Reload(ctx)
	if err != nil {
		return nil, err
	}
	mine := make([]models.MaintenanceRequest, 0)
	for _, rec := range all {
		if rec.Matric == matric {
			mine = append(mine, rec)
		}
	}
	return mine, nil
}

// ListAll returns every stored request.
func (r *RequestRepository) ListAll(ctx context.Context) ([]models.MaintenanceRequest, error) {
	return r.Reload(ctx)
}

// List returns requests matching filter.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.MaintenanceRequest, error) {
	all, err := r.Reload(ctx)
	if err != nil {
		return nil, err
	}
	matched := make([]models.MaintenanceRequest, 0, len(all))
	for _, rec := range all {
		if filter.Matches(rec) {
			matched = append(matched, rec)
		}
	}
	return matched, nil
}

// Get returns the request with id.
func (r *RequestRepository) Get(ctx context.Context, id int) (*models.MaintenanceRequest, error) {
	all, err := r.Reload(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(all, id)
	if i < 0 {
		return nil, notFound(id)
	}
	rec := all[i]
	return &rec, nil
}

// UpdateStatus moves request id to target and persists the set. Unknown ids
// and rejected transitions leave the store untouched.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id int, target models.RequestStatus) (*models.MaintenanceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.reloadLocked(ctx); err != nil {
		return nil, err
	}
	i := indexOf(r.records, id)
	if i < 0 {
		return nil, notFound(id)
	}

	next := slices.Clone(r.records)
	if err := next[i].ApplyTransition(target); err != nil {
		var te *models.TransitionError
		if errors.As(err, &te) {
			return nil, appErrors.WrapAs(te, appErrors.ErrInvalidTransition, "")
		}
		return nil, err
	}
	if err := r.store.SaveAll(ctx, next); err != nil {
		return nil, err
	}
	r.records = next
	updated := next[i]
	return &updated, nil
}

func indexOf(records []models.MaintenanceRequest, id int) int {
	return slices.IndexFunc(records, func(rec models.MaintenanceRequest) bool { return rec.ID == id })
}

func notFound(id int) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("request %d not found", id))
}
