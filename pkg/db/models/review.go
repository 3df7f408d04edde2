package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is feedback left for a craftsman on a completed project.
type Review struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID   uuid.UUID `gorm:"column:project_id;type:uuid;not null"`
	CraftsmanID uuid.UUID `gorm:"column:craftsman_id;type:uuid;not null;index"`
	ReviewerID  uuid.UUID `gorm:"column:reviewer_id;type:uuid;not null"`
	Rating      int       `gorm:"column:rating;not null"`
	Comment     string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
