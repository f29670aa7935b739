package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentItem carves a weight out of one lot for a shipment. The weight has
// already been deducted from the lot when the row exists.
type ShipmentItem struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID     uuid.UUID       `gorm:"column:shipment_id;type:uuid;not null;index"`
	StockID        uuid.UUID       `gorm:"column:stock_id;type:uuid;not null;index"`
	AssignedWeight decimal.Decimal `gorm:"column:assigned_weight;type:numeric(12,2);not null"`
	Stock          *Stock          `gorm:"foreignKey:StockID"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
