package models

import "time"

// Admin is materialized lazily the first time an elevated identity performs
// an admin action, so staff never need manual provisioning.
type Admin struct {
	CognitoID string    `gorm:"column:cognito_id;type:text;primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null"`
	Name      string    `gorm:"column:name;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
