package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hostel-maintenance-api/internal/models"
)

func TestNextID(t *testing.T) {
	assert.Equal(t, 1, NextID(nil))
	assert.Equal(t, 1, NextID([]models.MaintenanceRequest{}))

	records := []models.MaintenanceRequest{
		models.NewMaintenanceRequest(3, models.RequestDraft{}, ""),
		models.NewMaintenanceRequest(1, models.RequestDraft{}, ""),
		models.NewMaintenanceRequest(7, models.RequestDraft{}, ""),
	}
	assert.Equal(t, 8, NextID(records))
}
