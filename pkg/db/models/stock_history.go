package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	"github.com/amosgichamba/teabroker-backend/pkg/types"
)

// StockHistory is the append-only audit trail for a lot. Rows are written in
// the same transaction as the mutation they describe and are never updated.
type StockHistory struct {
	ID             uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StockID        uuid.UUID                 `gorm:"column:stock_id;type:uuid;not null;index"`
	Action         enums.StockHistoryAction  `gorm:"column:action;type:text;not null"`
	UserCognitoID  *string                   `gorm:"column:user_cognito_id;type:text"`
	AdminCognitoID *string                   `gorm:"column:admin_cognito_id;type:text"`
	ShipmentID     *uuid.UUID                `gorm:"column:shipment_id;type:uuid"`
	Details        *types.StockHistoryDetails `gorm:"column:details;type:jsonb;serializer:json"`
	Stock          *Stock                    `gorm:"foreignKey:StockID"`
	CreatedAt      time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName keeps the log table singular.
func (StockHistory) TableName() string { return "stock_history" }
