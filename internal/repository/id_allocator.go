package repository

import "github.com/noah-isme/hostel-maintenance-api/internal/models"

// NextID returns one past the highest id in records, or 1 for an empty set.
// Callers must pass the freshly reloaded set; nothing is cached here.
func NextID(records []models.MaintenanceRequest) int {
	maxID := 0
	for _, r := range records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID + 1
}
