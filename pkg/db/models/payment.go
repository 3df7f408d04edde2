package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/pkg/enums"
)

// Payment tracks one provider checkout. SubscriptionID is set exactly once
// when the payment settles; a non-nil value marks the settlement as consumed.
type Payment struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Reference      string              `gorm:"column:reference;type:text;not null;uniqueIndex"`
	ProviderID     string              `gorm:"column:provider_id;type:text;not null;uniqueIndex"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID *uuid.UUID          `gorm:"column:subscription_id;type:uuid"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency       string              `gorm:"column:currency;type:text;not null;default:'EUR'"`
	Description    string              `gorm:"column:description;type:text"`
	Method         string              `gorm:"column:method;type:text"`
	CheckoutURL    string              `gorm:"column:checkout_url;type:text"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PlanName       enums.PlanName      `gorm:"column:plan_name;type:text;not null"`
	BillingCycle   enums.BillingCycle  `gorm:"column:billing_cycle;type:text;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
