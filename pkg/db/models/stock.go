package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock is a tea lot in the trading book. Weight and bags only ever move
// through the ledger adjustment primitive; everything else is plain catalog
// data owned by the admin who created the lot.
type Stock struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LotNo             string           `gorm:"column:lot_no;type:text;not null;uniqueIndex:stocks_lot_no_key"`
	Bags              int              `gorm:"column:bags;not null;default:0"`
	Weight            decimal.Decimal  `gorm:"column:weight;type:numeric(12,2);not null;default:0"`
	PurchaseValue     decimal.Decimal  `gorm:"column:purchase_value;type:numeric(14,2);not null;default:0"`
	SellingPrice      decimal.Decimal  `gorm:"column:selling_price;type:numeric(14,2);not null;default:0"`
	Mark              string           `gorm:"column:mark;type:text;not null"`
	Grade             string           `gorm:"column:grade;type:text;not null"`
	Broker            string           `gorm:"column:broker;type:text;not null"`
	SaleCode          string           `gorm:"column:sale_code;type:text;not null"`
	BatchNumber       *string          `gorm:"column:batch_number;type:text"`
	LowStockThreshold *decimal.Decimal `gorm:"column:low_stock_threshold;type:numeric(12,2)"`
	AdminCognitoID    string           `gorm:"column:admin_cognito_id;type:text;not null"`
	Assignments       []StockAssignment `gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
