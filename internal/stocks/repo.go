package stocks

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
)

// ListFilter narrows the stock catalog listing.
type ListFilter struct {
	Mark     string
	Grade    string
	Broker   string
	SaleCode string
	LotNo    string
}

// Page is one newest-first slice of the catalog.
type Page struct {
	Stocks     []models.Stock
	NextCursor string
}

// Repository persists the stock catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error)
	FindByLotNo(ctx context.Context, lotNo string) (*models.Stock, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error)
	ListAll(ctx context.Context) ([]models.Stock, error)
	Create(ctx context.Context, stock *models.Stock) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAssignments(ctx context.Context, stockID uuid.UUID) error
	CountShipmentItems(ctx context.Context, stockID uuid.UUID) (int64, error)
	AppendHistory(ctx context.Context, entry *models.StockHistory) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).
		Preload("Assignments").
		First(&stock, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) FindByLotNo(ctx context.Context, lotNo string) (*models.Stock, error) {
	var stock models.Stock
	if err := r.db.WithContext(ctx).First(&stock, "lot_no = ?", lotNo).Error; err != nil {
		return nil, err
	}
	return &stock, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Stock{}).Preload("Assignments")
	if filter.Mark != "" {
		query = query.Where("mark = ?", filter.Mark)
	}
	if filter.Grade != "" {
		query = query.Where("grade = ?", filter.Grade)
	}
	if filter.Broker != "" {
		query = query.Where("broker = ?", filter.Broker)
	}
	if filter.SaleCode != "" {
		query = query.Where("sale_code = ?", filter.SaleCode)
	}
	if filter.LotNo != "" {
		query = query.Where("lot_no = ?", filter.LotNo)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var stocks []models.Stock
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&stocks).Error; err != nil {
		return nil, err
	}

	page := &Page{Stocks: stocks}
	if len(stocks) > normalized {
		page.Stocks = stocks[:normalized]
		last := page.Stocks[normalized-1]
		page.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	if err := r.db.WithContext(ctx).
		Order("lot_no ASC").
		Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

func (r *repository) Create(ctx context.Context, stock *models.Stock) error {
	return r.db.WithContext(ctx).Omit("Assignments").Create(stock).Error
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Stock{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Stock{}, "id = ?", id).Error
}

func (r *repository) DeleteAssignments(ctx context.Context, stockID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.StockAssignment{}, "stock_id = ?", stockID).Error
}

func (r *repository) CountShipmentItems(ctx context.Context, stockID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ShipmentItem{}).
		Where("stock_id = ?", stockID).
		Count(&count).Error
	return count, err
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.StockHistory) error {
	return r.db.WithContext(ctx).Omit("Stock").Create(entry).Error
}
