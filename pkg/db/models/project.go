package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/pkg/enums"
)

// Project is a job posting created by an individual. Status transitions are
// compare-and-swap updates in the projects repository.
type Project struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title          string              `gorm:"type:text;not null"`
	Description    string              `gorm:"type:text;not null"`
	Category       string              `gorm:"type:text;not null"`
	BudgetMin      decimal.Decimal     `gorm:"column:budget_min;type:numeric(12,2)"`
	BudgetMax      decimal.Decimal     `gorm:"column:budget_max;type:numeric(12,2)"`
	BudgetCurrency string              `gorm:"column:budget_currency;type:text;not null;default:'EUR'"`
	City           string              `gorm:"type:text"`
	State          string              `gorm:"type:text"`
	Country        string              `gorm:"type:text"`
	PostDate       time.Time           `gorm:"column:post_date;not null"`
	Deadline       *time.Time          `gorm:"column:deadline"`
	Status         enums.ProjectStatus `gorm:"column:status;type:text;not null;default:'open';index"`
	PostedBy       uuid.UUID           `gorm:"column:posted_by;type:uuid;not null;index"`
	AssignedTo     *uuid.UUID          `gorm:"column:assigned_to;type:uuid"`
	CompletionDate *time.Time          `gorm:"column:completion_date"`
	IsDeleted      bool                `gorm:"column:is_deleted;not null;default:false"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
