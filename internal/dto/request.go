package dto

import (
	"strings"

	"github.com/noah-isme/hostel-maintenance-api/internal/models"
)

// CreateRequestPayload is submitted by a resident raising a maintenance request.
type CreateRequestPayload struct {
	StudentName string `json:"studentName" validate:"required,max=120"`
	Matric      string `json:"matric" validate:"required,max=32"`
	Hostel      string `json:"hostel" validate:"required,max=80"`
	Room        string `json:"room" validate:"required,max=20"`
	Category    string `json:"category" validate:"required,max=40"`
	Description string `json:"description" validate:"required,max=1000"`
}

// Normalize trims surrounding whitespace from every field.
func (p CreateRequestPayload) Normalize() CreateRequestPayload {
	return CreateRequestPayload{
		StudentName: strings.TrimSpace(p.StudentName),
		Matric:      strings.TrimSpace(p.Matric),
		Hostel:      strings.TrimSpace(p.Hostel),
		Room:        strings.TrimSpace(p.Room),
		Category:    strings.TrimSpace(p.Category),
		Description: strings.TrimSpace(p.Description),
	}
}

// Draft converts the payload into the model draft.
func (p CreateRequestPayload) Draft() models.RequestDraft {
	return models.RequestDraft{
		StudentName: p.StudentName,
		Matric:      p.Matric,
		Hostel:      p.Hostel,
		Room:        p.Room,
		Category:    p.Category,
		Description: p.Description,
	}
}

// UpdateStatusPayload asks for a lifecycle transition.
type UpdateStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Matric string
	Status string
}

// ExportRequest selects the report format and optional status filter.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
	Status string `json:"status"`
}
