package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockAssignment reserves a lot for a buyer. The service layer keeps at most
// one row per stock; the unique index only backstops the pair.
type StockAssignment struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockID        uuid.UUID       `gorm:"column:stock_id;type:uuid;not null;uniqueIndex:stock_assignments_stock_user_key"`
	UserCognitoID  string          `gorm:"column:user_cognito_id;type:text;not null;uniqueIndex:stock_assignments_stock_user_key"`
	AssignedWeight decimal.Decimal `gorm:"column:assigned_weight;type:numeric(12,2);not null"`
	AssignedAt     time.Time       `gorm:"column:assigned_at;autoCreateTime"`
}
