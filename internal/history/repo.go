package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/amosgichamba/teabroker-backend/pkg/db/models"
	"github.com/amosgichamba/teabroker-backend/pkg/pagination"
)

// StockHistoryFilter narrows the stock audit trail.
type StockHistoryFilter struct {
	StockID        *uuid.UUID
	ShipmentID     *uuid.UUID
	Action         string
	UserCognitoID  string
	AdminCognitoID string
	From           *time.Time
	To             *time.Time
	IncludeStock   bool
}

// ShipmentHistoryFilter narrows the shipment audit trail.
type ShipmentHistoryFilter struct {
	ShipmentID      *uuid.UUID
	Action          string
	UserCognitoID   string
	AdminCognitoID  string
	From            *time.Time
	To              *time.Time
	IncludeShipment bool
}

// StockHistoryPage is one newest-first slice of the stock trail.
type StockHistoryPage struct {
	Entries    []models.StockHistory
	NextCursor string
}

// ShipmentHistoryPage is one newest-first slice of the shipment trail.
type ShipmentHistoryPage struct {
	Entries    []models.ShipmentHistory
	NextCursor string
}

// Repository reads the append-only audit logs. There is deliberately no
// write surface here; entries are appended by the mutating transactions.
type Repository interface {
	ListStockHistory(ctx context.Context, filter StockHistoryFilter, params pagination.Params) (*StockHistoryPage, error)
	ListShipmentHistory(ctx context.Context, filter ShipmentHistoryFilter, params pagination.Params) (*ShipmentHistoryPage, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListStockHistory(ctx context.Context, filter StockHistoryFilter, params pagination.Params) (*StockHistoryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.StockHistory{})
	if filter.IncludeStock {
		query = query.Preload("Stock")
	}
	if filter.StockID != nil {
		query = query.Where("stock_id = ?", *filter.StockID)
	}
	if filter.ShipmentID != nil {
		query = query.Where("shipment_id = ?", *filter.ShipmentID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.UserCognitoID != "" {
		query = query.Where("user_cognito_id = ?", filter.UserCognitoID)
	}
	if filter.AdminCognitoID != "" {
		query = query.Where("admin_cognito_id = ?", filter.AdminCognitoID)
	}
	query = applyTimeRange(query, filter.From, filter.To)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.StockHistory
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}

	page := &StockHistoryPage{Entries: entries}
	if len(entries) > normalized {
		page.Entries = entries[:normalized]
		last := page.Entries[normalized-1]
		page.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func (r *repository) ListShipmentHistory(ctx context.Context, filter ShipmentHistoryFilter, params pagination.Params) (*ShipmentHistoryPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.ShipmentHistory{})
	if filter.IncludeShipment {
		query = query.Preload("Shipment")
	}
	if filter.ShipmentID != nil {
		query = query.Where("shipment_id = ?", *filter.ShipmentID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.UserCognitoID != "" {
		query = query.Where("user_cognito_id = ?", filter.UserCognitoID)
	}
	if filter.AdminCognitoID != "" {
		query = query.Where("admin_cognito_id = ?", filter.AdminCognitoID)
	}
	query = applyTimeRange(query, filter.From, filter.To)
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var entries []models.ShipmentHistory
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}

	page := &ShipmentHistoryPage{Entries: entries}
	if len(entries) > normalized {
		page.Entries = entries[:normalized]
		last := page.Entries[normalized-1]
		page.NextCursor = pagination.NextCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

func applyTimeRange(query *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}
	return query
}
