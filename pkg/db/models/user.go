package models

import (
	"time"

	"github.com/amosgichamba/teabroker-backend/pkg/enums"
)

// User mirrors the external identity pool. Rows are keyed by the identity
// provider's subject claim, not a local uuid.
type User struct {
	CognitoID string     `gorm:"column:cognito_id;type:text;primaryKey"`
	Email     string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      string     `gorm:"column:name;type:text;not null"`
	Role      enums.Role `gorm:"column:role;type:text;not null;default:'user'"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
