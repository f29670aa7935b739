package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
)

// Page is one slice of the account listing.
type Page struct {
	Users      []models.User
	NextCursor string
}

// Repository persists user accounts mirrored from the identity provider.
type Repository interface {
	FindByCognitoID(ctx context.Context, cognitoID string) (*models.User, error)
	List(ctx context.Context, params pagination.Params) (*Page, error)
	Upsert(ctx context.Context, user *models.User) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a user repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByCognitoID(ctx context.Context, cognitoID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "cognito_id = ?", cognitoID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.User{})
	if cursor != nil {
		query = query.Where("created_at < ?", cursor.CreatedAt)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, err
	}

	page := &Page{Users: users}
	if len(users) > normalized {
		page.Users = users[:normalized]
		last := page.Users[normalized-1]
		// Accounts key on cognito_id, so the cursor carries only the
		// timestamp half; the id slot stays nil.
		page.NextCursor = pagination.NextCursor(last.CreatedAt, uuid.Nil)
	}
	return page, nil
}

// Upsert refreshes the mirrored identity fields, keeping the row in sync with
// whatever the token last carried.
func (r *repository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cognito_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "role"}),
	}).Create(user).Error
}
