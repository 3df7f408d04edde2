package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftlink/craftlink-backend/pkg/enums"
)

// Subscription is one plan window for a craftsman. ContactsUsed is the
// quota ledger: it only moves through the conditional updates in the
// subscriptions repository, never through a plain save.
type Subscription struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	PlanName     enums.PlanName     `gorm:"column:plan_name;type:text;not null"`
	BillingCycle enums.BillingCycle `gorm:"column:billing_cycle;type:text;not null"`
	StartDate    time.Time          `gorm:"column:start_date;not null"`
	EndDate      time.Time          `gorm:"column:end_date;not null"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true"`
	AutoRenew    bool               `gorm:"column:auto_renew;not null;default:false"`
	ContactsUsed int                `gorm:"column:contacts_used;not null;default:0"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
