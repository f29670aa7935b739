package users

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/auth"
	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	pkgerrors "github.com/amosgichamba/teabroker-backend/pkg/errors"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
)

// Service exposes account reads plus the first-touch mirror of token
// identities into the users table.
type Service interface {
	Get(ctx context.Context, cognitoID string) (*models.User, error)
	List(ctx context.Context, actor auth.Actor, params pagination.Params) (*Page, error)
	EnsureUser(ctx context.Context, actor auth.Actor) (*models.User, error)
}

type service struct {
	repo Repository
}

// NewService wires a user service over the repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, cognitoID string) (*models.User, error) {
	if cognitoID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cognito id is required")
	}
	user, err := s.repo.FindByCognitoID(ctx, cognitoID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("user %s not found", cognitoID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading user")
	}
	return user, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params pagination.Params) (*Page, error) {
	if !auth.Can(actor.Role, auth.ActionListUsers) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "listing users requires an admin role")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cursor is malformed")
	}
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing users")
	}
	return page, nil
}

// EnsureUser mirrors the verified token identity into the users table. Called
// on every /me read so the local row tracks the provider.
func (s *service) EnsureUser(ctx context.Context, actor auth.Actor) (*models.User, error) {
	if actor.CognitoID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	user := &models.User{
		CognitoID: actor.CognitoID,
		Email:     actor.Email,
		Name:      actor.Name,
		Role:      actor.Role,
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upserting user")
	}
	return s.Get(ctx, actor.CognitoID)
}
