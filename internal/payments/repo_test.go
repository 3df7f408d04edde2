package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
)

func setupPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  reference TEXT NOT NULL UNIQUE,
  provider_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  subscription_id TEXT,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'EUR',
  description TEXT,
  method TEXT,
  checkout_url TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  plan_name TEXT NOT NULL,
  billing_cycle TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedPayment(t *testing.T, db *gorm.DB) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:           uuid.New(),
		Reference:    "pay_" + uuid.New().String()[:8],
		ProviderID:   "tr_" + uuid.New().String()[:8],
		UserID:       uuid.New(),
		Amount:       decimal.RequireFromString("19.99"),
		Currency:     "EUR",
		Status:       enums.PaymentStatusPending,
		PlanName:     enums.PlanPro,
		BillingCycle: enums.BillingCycleMonthly,
	}
	require.NoError(t, db.Create(payment).Error)
	return payment
}

func TestSettleOnceConsumesSettlement(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payment := seedPayment(t, db)
	subID := uuid.New()

	claimed, err := repo.SettleOnce(ctx, payment.ID, subID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// second delivery of the same settlement loses the claim
	claimed, err = repo.SettleOnce(ctx, payment.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, claimed)

	reloaded, err := repo.FindByReference(ctx, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, reloaded.Status)
	require.NotNil(t, reloaded.SubscriptionID)
	assert.Equal(t, subID, *reloaded.SubscriptionID)
}

func TestUpdateStatusIfUnsettledNeverDowngradesSettled(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payment := seedPayment(t, db)

	require.NoError(t, repo.UpdateStatusIfUnsettled(ctx, payment.ID, enums.PaymentStatusFailed))
	reloaded, err := repo.FindByReference(ctx, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, reloaded.Status)

	claimed, err := repo.SettleOnce(ctx, payment.ID, uuid.New())
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.UpdateStatusIfUnsettled(ctx, payment.ID, enums.PaymentStatusCanceled))
	reloaded, err = repo.FindByReference(ctx, payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, reloaded.Status)
}

func TestFindByProviderID(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	payment := seedPayment(t, db)

	found, err := repo.FindByProviderID(ctx, payment.ProviderID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)

	_, err = repo.FindByProviderID(ctx, "tr_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListByUserNewestFirst(t *testing.T) {
	db := setupPaymentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first := seedPayment(t, db)
	second := seedPayment(t, db)
	require.NoError(t, db.Model(&models.Payment{}).Where("id = ?", second.ID).Update("user_id", first.UserID).Error)

	payments, err := repo.ListByUser(ctx, first.UserID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}
