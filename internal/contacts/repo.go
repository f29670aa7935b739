package contacts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
)

// Page is one newest-first slice of contact submissions.
type Page struct {
	Submissions []models.ContactSubmission
	NextCursor  string
}

// Repository persists public contact-form submissions.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ContactSubmission, error)
	List(ctx context.Context, resolved *bool, params pagination.Params) (*Page, error)
	Create(ctx context.Context, submission *models.ContactSubmission) error
	MarkResolved(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a contact repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ContactSubmission, error) {
	var submission models.ContactSubmission
	if err := r.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *repository) List(ctx context.Context, resolved *bool, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.ContactSubmission{})
	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var submissions []models.ContactSubmission
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&submissions).Error; err != nil {
		return nil, err
	}

	page := &Page{Submissions: submissions}
	if len(submissions) > normalized {
		page.Submissions = submissions[:normalized]
		last := page.Submissions[normalized-1]
		page.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (r *repository) Create(ctx context.Context, submission *models.ContactSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *repository) MarkResolved(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.ContactSubmission{}).
		Where("id = ?", id).
		Update("resolved", true).Error
}
