package shipments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
)

// ListFilter narrows shipment listings.
type ListFilter struct {
	UserCognitoID string
	Status        string
}

// Repository manages persistence for shipments and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	List(ctx context.Context, filter ListFilter) ([]models.Shipment, error)
	Create(ctx context.Context, shipment *models.Shipment) error
	CreateItems(ctx context.Context, items []models.ShipmentItem) error
	DeleteItems(ctx context.Context, shipmentID uuid.UUID) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindStock(ctx context.Context, stockID uuid.UUID) (*models.Stock, error)
	EnsureAdmin(ctx context.Context, admin *models.Admin) error
	AppendHistory(ctx context.Context, entry *models.ShipmentHistory) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shipment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Stock").
		First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Shipment, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.UserCognitoID != "" {
		query = query.Where("user_cognito_id = ?", filter.UserCognitoID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var shipments []models.Shipment
	if err := query.Order("created_at DESC").Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *repository) Create(ctx context.Context, shipment *models.Shipment) error {
	// Items are inserted separately once the ledger deductions succeed.
	return r.db.WithContext(ctx).Omit("Items").Create(shipment).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.ShipmentItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Stock").Create(&items).Error
}

func (r *repository) DeleteItems(ctx context.Context, shipmentID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ShipmentItem{}, "shipment_id = ?", shipmentID).Error
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Shipment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DeleteItems(ctx, id); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&models.Shipment{}, "id = ?", id).Error
}

func (r *repository) FindStock(ctx context.Context, stockID uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", stockID).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) EnsureAdmin(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "cognito_id"}}, DoNothing: true}).
		Create(admin).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.ShipmentHistory) error {
	return r.db.WithContext(ctx).Omit("Shipment").Create(entry).Error
}
