package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
)

// Service handles the public contact form and its admin-side triage.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.ContactSubmission, error)
	List(ctx context.Context, actor auth.Actor, resolved *bool, params pagination.Params) (*Page, error)
	Resolve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.ContactSubmission, error)
}

// CreateInput is an unauthenticated contact-form submission.
type CreateInput struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type service struct {
	repo Repository
}

// NewService wires a contact service over the repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contact repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.ContactSubmission, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	subject := strings.TrimSpace(input.Subject)
	message := strings.TrimSpace(input.Message)
	if name == "" || email == "" || subject == "" || message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email, subject and message are required")
	}

	submission := &models.ContactSubmission{
		ID:      uuid.New(),
		Name:    name,
		Email:   email,
		Subject: subject,
		Message: message,
	}
	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating contact submission")
	}
	return submission, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, resolved *bool, params pagination.Params) (*Page, error) {
	if !auth.Can(actor.Role, auth.ActionManageContacts) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing contacts requires an admin role")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is malformed")
	}
	page, err := s.repo.List(ctx, resolved, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing contacts")
	}
	return page, nil
}

func (s *service) Resolve(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.ContactSubmission, error) {
	if !auth.Can(actor.Role, auth.ActionManageContacts) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "resolving contacts requires an admin role")
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact id is required")
	}

	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("contact submission %s not found", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading contact submission")
	}
	if submission.Resolved {
		return submission, nil
	}

	if err := s.repo.MarkResolved(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving contact submission")
	}
	submission.Resolved = true
	return submission, nil
}
