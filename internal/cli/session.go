// Package cli implements the interactive terminal front end for residents and the hostel administrator.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-maintenance-api/internal/dto"
	"github.com/noah-isme/hostel-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/hostel-maintenance-api/pkg/errors"
)

type requestService interface {
	Submit(ctx context.Context, req dto.CreateRequestPayload) (*models.MaintenanceRequest, error)
	ListMine(ctx context.Context, matric string) ([]models.MaintenanceRequest, error)
	ListAll(ctx context.Context, query dto.RequestQuery) ([]models.MaintenanceRequest, error)
	Get(ctx context.Context, id int) (*models.MaintenanceRequest, error)
	UpdateStatus(ctx context.Context, id int, req dto.UpdateStatusPayload, actor string) (*models.MaintenanceRequest, error)
}

// Authenticator checks admin credentials before the admin menu opens.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*models.Principal, error)
}

// Session drives the menu loop over one input stream.
type Session struct {
	requests requestService
	auth     Authenticator
	prompt   *prompter
	out      io.Writer
	logger   *zap.Logger
}

// NewSession wires the menus to the request service and authenticator.
func NewSession(in io.Reader, out io.Writer, requests requestService, auth Authenticator, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		requests: requests,
		auth:     auth,
		prompt:   newPrompter(in, out),
		out:      out,
		logger:   logger,
	}
}

// Run shows the main menu until the user exits or input ends.
func (s *Session) Run(ctx context.Context) error {
	s.println("=== HOSTEL MAINTENANCE REQUEST SYSTEM ===")
	err := s.mainMenu(ctx)
	if errors.Is(err, io.EOF) {
		s.println("Goodbye!")
		return nil
	}
	return err
}

func (s *Session) mainMenu(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.println("\n--- MAIN MENU ---")
		s.println("1. Student")
		s.println("2. Admin")
		s.println("0. Exit")
		choice, err := s.prompt.integer("Choose: ")
		if err != nil {
			return err
		}
		switch choice {
		case 0:
			s.println("Goodbye!")
			return nil
		case 1:
			err = s.studentMenu(ctx)
		case 2:
			err = s.adminMenu(ctx)
		default:
			s.println("Invalid choice.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) studentMenu(ctx context.Context) error {
	s.println("\n--- STUDENT ---")
	name, err := s.prompt.nonEmpty("Enter your full name: ")
	if err != nil {
		return err
	}
	matric, err := s.prompt.nonEmpty("Enter your matric number: ")
	if err != nil {
		return err
	}

	for {
		s.println("\n--- STUDENT MENU ---")
		s.println("1. Create maintenance request")
		s.println("2. View my requests")
		s.println("0. Back")
		choice, err := s.prompt.integer("Choose: ")
		if err != nil {
			return err
		}
		switch choice {
		case 0:
			return nil
		case 1:
			err = s.createRequest(ctx, name, matric)
		case 2:
			err = s.listMine(ctx, matric)
		default:
			s.println("Invalid choice.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) createRequest(ctx context.Context, name, matric string) error {
	payload := dto.CreateRequestPayload{StudentName: name, Matric: matric}
	fields := []struct {
		label string
		dest  *string
	}{
		{"Hostel name: ", &payload.Hostel},
		{"Room number: ", &payload.Room},
		{"Category (Electricity/Plumbing/Carpentry/Other): ", &payload.Category},
		{"Describe the issue: ", &payload.Description},
	}
	for _, f := range fields {
		value, err := s.prompt.nonEmpty(f.label)
		if err != nil {
			return err
		}
		*f.dest = value
	}

	created, err := s.requests.Submit(ctx, payload)
	if err != nil {
		s.reportFailure("Could not submit request", err)
		return nil
	}
	s.printf("\nRequest submitted successfully! Your Request ID is %d\n", created.ID)
	return nil
}

func (s *Session) listMine(ctx context.Context, matric string) error {
	items, err := s.requests.ListMine(ctx, matric)
	if err != nil {
		s.reportFailure("Could not load requests", err)
		return nil
	}
	s.println("\n--- MY REQUESTS ---")
	if len(items) == 0 {
		s.println("No requests found for this matric number.")
		return nil
	}
	for _, item := range items {
		s.printRequest(item)
	}
	return nil
}

func (s *Session) adminMenu(ctx context.Context) error {
	s.println("\n--- ADMIN LOGIN ---")
	username, err := s.prompt.nonEmpty("Username: ")
	if err != nil {
		return err
	}
	password, err := s.prompt.nonEmpty("Password: ")
	if err != nil {
		return err
	}
	principal, authErr := s.auth.Authenticate(ctx, username, password)
	if authErr != nil || principal == nil || principal.Role != models.RoleAdmin {
		s.logger.Warn("cli admin login rejected", zap.String("username", username), zap.Error(authErr))
		s.println("Login failed.")
		return nil
	}

	for {
		s.println("\n--- ADMIN MENU ---")
		s.println("1. View all requests")
		s.println("2. Update request status")
		s.println("0. Back")
		choice, err := s.prompt.integer("Choose: ")
		if err != nil {
			return err
		}
		switch choice {
		case 0:
			return nil
		case 1:
			err = s.listAll(ctx)
		case 2:
			err = s.updateStatus(ctx, principal.Username)
		default:
			s.println("Invalid choice.")
		}
		if err != nil {
			return err
		}
	}
}

func (s *Session) listAll(ctx context.Context) error {
	items, err := s.requests.ListAll(ctx, dto.RequestQuery{})
	if err != nil {
		s.reportFailure("Could not load requests", err)
		return nil
	}
	s.println("\n--- ALL REQUESTS ---")
	if len(items) == 0 {
		s.println("No requests yet.")
		return nil
	}
	for _, item := range items {
		s.printRequest(item)
	}
	return nil
}

func (s *Session) updateStatus(ctx context.Context, actor string) error {
	id, err := s.prompt.integer("Enter Request ID to update: ")
	if err != nil {
		return err
	}
	current, getErr := s.requests.Get(ctx, id)
	if getErr != nil {
		if errors.Is(getErr, appErrors.ErrNotFound) || errors.Is(getErr, appErrors.ErrValidation) {
			s.println("Request not found.")
			return nil
		}
		s.reportFailure("Could not load request", getErr)
		return nil
	}

	status := current.Status()
	s.printf("Current status: %s\n", status)
	if status.Terminal() {
		s.printf("Request %d is %s; no further status changes are possible.\n", id, status)
		return nil
	}

	// only targets reachable in one step are offered
	options := status.Next()
	s.println("New Status Options:")
	for i, option := range options {
		s.printf("%d. %s\n", i+1, option)
	}
	sel, err := s.prompt.integer("Select: ")
	if err != nil {
		return err
	}
	if sel < 1 || sel > len(options) {
		s.println("Invalid selection.")
		return nil
	}
	target := options[sel-1]

	_, updErr := s.requests.UpdateStatus(ctx, id, dto.UpdateStatusPayload{Status: string(target)}, actor)
	switch {
	case updErr == nil:
		s.println("Status updated successfully.")
	case errors.Is(updErr, appErrors.ErrInvalidTransition):
		// the file changed between the lookup and the update
		s.printf("Invalid transition: %s -> %s\n", status, target)
	case errors.Is(updErr, appErrors.ErrNotFound):
		s.println("Request not found.")
	default:
		s.reportFailure("Could not update status", updErr)
	}
	return nil
}

func (s *Session) printRequest(r models.MaintenanceRequest) {
	s.printf("ID: %d | Matric: %s | Name: %s | Hostel: %s | Room: %s | Category: %s | Status: %s | Created: %s\n",
		r.ID, r.Matric, r.StudentName, r.Hostel, r.Room, r.Category, r.Status(), r.CreatedAt)
	s.printf("  Description: %s\n", r.Description)
	s.println(strings.Repeat("-", 80))
}

func (s *Session) reportFailure(prefix string, err error) {
	s.logger.Error(strings.ToLower(prefix), zap.Error(err))
	s.printf("%s: %s\n", prefix, appErrors.FromError(err).Message)
}

func (s *Session) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *Session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}
