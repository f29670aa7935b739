package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactSubmission is an inbound website enquiry.
type ContactSubmission struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null"`
	Email     string    `gorm:"column:email;type:text;not null"`
	Subject   string    `gorm:"column:subject;type:text;not null"`
	Message   string    `gorm:"column:message;type:text;not null"`
	Resolved  bool      `gorm:"column:resolved;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
