package assignments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
)

// Repository manages persistence for stock assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindUser(ctx context.Context, cognitoID string) (*models.User, error)
	FindStock(ctx context.Context, stockID uuid.UUID) (*models.Stock, error)
	ListByStockID(ctx context.Context, stockID uuid.UUID) ([]models.StockAssignment, error)
	ListByUser(ctx context.Context, userCognitoID string) ([]models.StockAssignment, error)
	FindByStockAndUser(ctx context.Context, stockID uuid.UUID, userCognitoID string) (*models.StockAssignment, error)
	Create(ctx context.Context, assignment *models.StockAssignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	AppendHistory(ctx context.Context, entry *models.StockHistory) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an assignment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUser(ctx context.Context, cognitoID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "cognito_id = ?", cognitoID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindStock(ctx context.Context, stockID uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", stockID).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) ListByStockID(ctx context.Context, stockID uuid.UUID) ([]models.StockAssignment, error) {
	var assignments []models.StockAssignment
	if err := r.db.WithContext(ctx).
		Where("stock_id = ?", stockID).
		Order("assigned_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) ListByUser(ctx context.Context, userCognitoID string) ([]models.StockAssignment, error) {
	var assignments []models.StockAssignment
	if err := r.db.WithContext(ctx).
		Where("user_cognito_id = ?", userCognitoID).
		Order("assigned_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repository) FindByStockAndUser(ctx context.Context, stockID uuid.UUID, userCognitoID string) (*models.StockAssignment, error) {
	var assignment models.StockAssignment
	if err := r.db.WithContext(ctx).
		First(&assignment, "stock_id = ? AND user_cognito_id = ?", stockID, userCognitoID).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) Create(ctx context.Context, assignment *models.StockAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.StockAssignment{}, "id = ?", id).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.StockHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
