package models

import (
	"encoding/json"
	"fmt"
)

// TimestampLayout is the on-disk format of CreatedAt.
const TimestampLayout = "2006-01-02 15:04:05"

// RequestStatus captures the lifecycle stage of a maintenance request.
type RequestStatus string

const (
	StatusSubmitted  RequestStatus = "Submitted"
	StatusInProgress RequestStatus = "InProgress"
	StatusResolved   RequestStatus = "Resolved"
	StatusClosed     RequestStatus = "Closed"
)

// allowedTransitions is the complete lifecycle graph. Every status must have an
// entry, terminal states map to an empty set.
var allowedTransitions = map[RequestStatus][]RequestStatus{
	StatusSubmitted:  {StatusInProgress},
	StatusInProgress: {StatusResolved},
	StatusResolved:   {StatusClosed},
	StatusClosed:     {},
}

// AllStatuses lists statuses in lifecycle order.
func AllStatuses() []RequestStatus {
	return []RequestStatus{StatusSubmitted, StatusInProgress, StatusResolved, StatusClosed}
}

// ParseStatus maps the case-sensitive stored form to a RequestStatus.
func ParseStatus(raw string) (RequestStatus, error) {
	status := RequestStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown request status %q", raw)
	}
	return status, nil
}

// Valid reports whether s is a member of the enumeration.
func (s RequestStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Next returns the statuses reachable from s in one step.
func (s RequestStatus) Next() []RequestStatus {
	return append([]RequestStatus(nil), allowedTransitions[s]...)
}

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	return s.Valid() && len(allowedTransitions[s]) == 0
}

// CanTransition reports whether target is directly reachable from current.
func CanTransition(current, target RequestStatus) bool {
	for _, next := range allowedTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From RequestStatus
	To   RequestStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// RequestDraft carries the submitter supplied fields of a new request.
type RequestDraft struct {
	StudentName string
	Matric      string
	Hostel      string
	Room        string
	Category    string
	Description string
}

// MaintenanceRequest is one maintenance request raised by a resident. Status is
// only changed through ApplyTransition.
type MaintenanceRequest struct {
	ID          int
	StudentName string
	Matric      string
	Hostel      string
	Room        string
	Category    string
	Description string
	CreatedAt   string

	status RequestStatus
}

// NewMaintenanceRequest builds a freshly submitted request.
func NewMaintenanceRequest(id int, draft RequestDraft, createdAt string) MaintenanceRequest {
	return MaintenanceRequest{
		ID:          id,
		StudentName: draft.StudentName,
		Matric:      draft.Matric,
		Hostel:      draft.Hostel,
		Room:        draft.Room,
		Category:    draft.Category,
		Description: draft.Description,
		CreatedAt:   createdAt,
		status:      StatusSubmitted,
	}
}

// RestoreMaintenanceRequest rebuilds a persisted request in an arbitrary valid status.
func RestoreMaintenanceRequest(id int, draft RequestDraft, status RequestStatus, createdAt string) (MaintenanceRequest, error) {
	if id <= 0 {
		return MaintenanceRequest{}, fmt.Errorf("request id must be positive, got %d", id)
	}
	if !status.Valid() {
		return MaintenanceRequest{}, fmt.Errorf("unknown request status %q", status)
	}
	r := NewMaintenanceRequest(id, draft, createdAt)
	r.status = status
	return r, nil
}

// Status returns the current lifecycle stage.
func (r MaintenanceRequest) Status() RequestStatus {
	return r.status
}

// ApplyTransition moves the request to target or returns a *TransitionError
// leaving it untouched.
func (r *MaintenanceRequest) ApplyTransition(target RequestStatus) error {
	if !CanTransition(r.status, target) {
		return &TransitionError{From: r.status, To: target}
	}
	r.status = target
	return nil
}

type maintenanceRequestJSON struct {
	ID          int           `json:"id"`
	StudentName string        `json:"studentName"`
	Matric      string        `json:"matric"`
	Hostel      string        `json:"hostel"`
	Room        string        `json:"room"`
	Category    string        `json:"category"`
	Description string        `json:"description"`
	Status      RequestStatus `json:"status"`
	CreatedAt   string        `json:"createdAt"`
}

// MarshalJSON exposes the status alongside the public fields.
func (r MaintenanceRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(maintenanceRequestJSON{
		ID:          r.ID,
		StudentName: r.StudentName,
		Matric:      r.Matric,
		Hostel:      r.Hostel,
		Room:        r.Room,
		Category:    r.Category,
		Description: r.Description,
		Status:      r.status,
		CreatedAt:   r.CreatedAt,
	})
}

// RequestFilter narrows listing results.
type RequestFilter struct {
	Matric string
	Status RequestStatus
}

// Matches reports whether r satisfies every non-empty criterion.
func (f RequestFilter) Matches(r MaintenanceRequest) bool {
	if f.Matric != "" && r.Matric != f.Matric {
		return false
	}
	if f.Status != "" && r.status != f.Status {
		return false
	}
	return true
}
