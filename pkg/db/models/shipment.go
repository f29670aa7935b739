package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/amosgichamba/teabroker-backend/pkg/enums"
)

// Shipment is a buyer's export order over one or more lots. Status moves
// through the forward chain Pending, Approved, Shipped, Delivered, with
// Cancelled reachable from any non-terminal state.
type Shipment struct {
	ID                     uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserCognitoID          string               `gorm:"column:user_cognito_id;type:text;not null;index"`
	Status                 enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	Consignee              string               `gorm:"column:consignee;type:text;not null"`
	Vessel                 string               `gorm:"column:vessel;type:text;not null"`
	Shipmark               string               `gorm:"column:shipmark;type:text;not null"`
	PackagingInstructions  string               `gorm:"column:packaging_instructions;type:text;not null"`
	AdditionalInstructions *string              `gorm:"column:additional_instructions;type:text"`
	ShipmentDate           *time.Time           `gorm:"column:shipment_date"`
	Items                  []ShipmentItem       `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
