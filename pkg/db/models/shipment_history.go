package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amosgichamba/teabroker-backend/pkg/enums"
	"github.com/amosgichamba/teabroker-backend/pkg/types"
)

// ShipmentHistory is the append-only audit trail for a shipment.
type ShipmentHistory struct {
	ID             uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID     uuid.UUID                     `gorm:"column:shipment_id;type:uuid;not null;index"`
	Action         enums.ShipmentHistoryAction   `gorm:"column:action;type:text;not null"`
	AdminCognitoID *string                       `gorm:"column:admin_cognito_id;type:text"`
	UserCognitoID  *string                       `gorm:"column:user_cognito_id;type:text"`
	Details        *types.ShipmentHistoryDetails `gorm:"column:details;type:jsonb;serializer:json"`
	Shipment       *Shipment                     `gorm:"foreignKey:ShipmentID"`
	CreatedAt      time.Time                     `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName keeps the log table singular.
func (ShipmentHistory) TableName() string { return "shipment_history" }
