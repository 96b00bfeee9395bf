package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 1, 9, 30, 15, 0, time.Local)

func newTestRepository(t *testing.T) (*RequestRepository, *CSVStore) {
	t.Helper()
	store, _ := newTestStore(t)
	return NewRequestRepository(store, WithClock(func() time.Time { return fixedNow })), store
}

func draftFor(matric string) models.RequestDraft {
	return models.RequestDraft{
		StudentName: "Ada Lovelace",
		Matric:      matric,
		Hostel:      "Block A",
		Room:        "101",
		Category:    "Electricity",
		Description: "Light flickers",
	}
}

func TestRequestRepositoryCreateAndListByOwner(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, draftFor("A123"))
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, models.StatusSubmitted, created.Status())
	assert.Equal(t, "2024-03-01 09:30:15", created.CreatedAt)

	stored, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.StatusSubmitted, stored[0].Status())

	mine, err := repo.ListByOwner(ctx, "A123")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, *created, mine[0])

	others, err := repo.ListByOwner(ctx, "B999")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestRequestRepositoryUpdateStatusFlow(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, draftFor("A123"))
	require.NoError(t, err)

	updated, err := repo.UpdateStatus(ctx, 1, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status())

	stored, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored[0].Status())

	_, err = repo.UpdateStatus(ctx, 1, models.StatusClosed)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	var te *models.TransitionError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "invalid status transition: invalid transition InProgress -> Closed", err.Error())

	stored, err = store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored[0].Status())
}

func TestRequestRepositoryUpdateStatusNotFound(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.UpdateStatus(ctx, 999, models.StatusInProgress)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	stored, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestRequestRepositorySeesExternalEdits(t *testing.T) {
	repo, store := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, draftFor("A123"))
	require.NoError(t, err)

	// Another invocation of the program appends id 10 directly.
	records, err := store.LoadAll(ctx)
	require.NoError(t, err)
	external, err := models.RestoreMaintenanceRequest(10, draftFor("Z1"), models.StatusResolved, "2024-02-01 00:00:00")
	require.NoError(t, err)
	require.NoError(t, store.SaveAll(ctx, append(records, external)))

	next, err := repo.Create(ctx, draftFor("A123"))
	require.NoError(t, err)
	assert.Equal(t, 11, next.ID)

	_, err = repo.UpdateStatus(ctx, 10, models.StatusClosed)
	require.NoError(t, err)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int{1, 10, 11}, []int{all[0].ID, all[1].ID, all[2].ID})
}

func TestRequestRepositoryGetAndList(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	for _, m := range []string{"A1", "B2", "A1"} {
		_, err := repo.Create(ctx, draftFor(m))
		require.NoError(t, err)
	}
	_, err := repo.UpdateStatus(ctx, 2, models.StatusInProgress)
	require.NoError(t, err)

	got, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "B2", got.Matric)

	_, err = repo.Get(ctx, 42)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	inProgress, err := repo.List(ctx, models.RequestFilter{Status: models.StatusInProgress})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, 2, inProgress[0].ID)
}

func TestRequestRepositoryConcurrentCreatesGetUniqueIDs(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := repo.Create(ctx, draftFor("A123"))
			if assert.NoError(t, err) {
				ids <- r.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
}

type failingStore struct {
	records []models.MaintenanceRequest
	saveErr error
}

func (f *failingStore) LoadAll(context.Context) ([]models.MaintenanceRequest, error) {
	return append([]models.MaintenanceRequest(nil), f.records...), nil
}

func (f *failingStore) SaveAll(context.Context, []models.MaintenanceRequest) error {
	return f.saveErr
}

func TestRequestRepositorySaveFailureLeavesWorkingSet(t *testing.T) {
	store := &failingStore{
		records: []models.MaintenanceRequest{models.NewMaintenanceRequest(1, draftFor("A1"), "")},
		saveErr: appErrors.ErrStorageUnavailable,
	}
	repo := NewRequestRepository(store)
	ctx := context.Background()

	_, err := repo.UpdateStatus(ctx, 1, models.StatusInProgress)
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
	assert.Equal(t, models.StatusSubmitted, repo.records[0].Status())

	_, err = repo.Create(ctx, draftFor("A1"))
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
	assert.Len(t, repo.records, 1)
}
