package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/pkg/enums"
)

// ProjectApplicant is one craftsman's application to one project.
// SubscriptionID records the ledger debited when the application was made;
// completion releases the quota unit back to that ledger.
type ProjectApplicant struct {
	ID              uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID       uuid.UUID             `gorm:"column:project_id;type:uuid;not null;index;uniqueIndex:ux_project_applicants_project_craftsman"`
	CraftsmanID     uuid.UUID             `gorm:"column:craftsman_id;type:uuid;not null;index;uniqueIndex:ux_project_applicants_project_craftsman"`
	Proposal        string                `gorm:"type:text;not null"`
	ApplicationDate time.Time             `gorm:"column:application_date;not null"`
	Status          enums.ApplicantStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	SubscriptionID  *uuid.UUID            `gorm:"column:subscription_id;type:uuid"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
