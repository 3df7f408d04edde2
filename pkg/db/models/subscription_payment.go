package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/pkg/enums"
)

// SubscriptionPayment is a history entry linking a settled payment to the
// subscription window it funded.
type SubscriptionPayment struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID uuid.UUID           `gorm:"column:subscription_id;type:uuid;not null;index"`
	PaymentID      uuid.UUID           `gorm:"column:payment_id;type:uuid;not null"`
	Amount         decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status         enums.PaymentStatus `gorm:"column:status;type:text;not null"`
	PaidAt         time.Time           `gorm:"column:paid_at;not null"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}
