package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/internal/plans"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
)

func setupSubscriptionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS subscriptions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  plan_name TEXT NOT NULL,
  billing_cycle TEXT NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  auto_renew INTEGER NOT NULL DEFAULT 0,
  contacts_used INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	payments := `
CREATE TABLE IF NOT EXISTS subscription_payments (
  id TEXT PRIMARY KEY,
  subscription_id TEXT NOT NULL,
  payment_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  status TEXT NOT NULL,
  paid_at DATETIME NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	require.NoError(t, db.Exec(payments).Error)
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB, userID uuid.UUID, plan enums.PlanName, used int, start time.Time) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		ID:           uuid.New(),
		UserID:       userID,
		PlanName:     plan,
		BillingCycle: enums.BillingCycleMonthly,
		StartDate:    start,
		EndDate:      start.Add(30 * 24 * time.Hour),
		IsActive:     true,
		ContactsUsed: used,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func TestFindActiveByUserPicksLatestStart(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	older := seedSubscription(t, db, userID, enums.PlanBasic, 0, time.Now().Add(-48*time.Hour))
	newer := seedSubscription(t, db, userID, enums.PlanPro, 0, time.Now().Add(-1*time.Hour))

	found, err := repo.FindActiveByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, found.ID)
	assert.NotEqual(t, older.ID, found.ID)
}

func TestFindActiveByUserIgnoresInactive(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	sub := seedSubscription(t, db, userID, enums.PlanPro, 0, time.Now())
	require.NoError(t, db.Model(&models.Subscription{}).Where("id = ?", sub.ID).Update("is_active", false).Error)

	_, err := repo.FindActiveByUser(ctx, userID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestIncrementUsageStopsAtLimit(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := seedSubscription(t, db, uuid.New(), enums.PlanBasic, 0, time.Now())

	applied, err := repo.IncrementUsage(ctx, sub.ID, 1)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.IncrementUsage(ctx, sub.ID, 1)
	require.NoError(t, err)
	assert.False(t, applied, "second debit must be refused at the limit")

	reloaded, err := repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.ContactsUsed)
}

func TestIncrementUsageUnboundedNeverRefuses(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := seedSubscription(t, db, uuid.New(), enums.PlanPremium, 9999, time.Now())

	applied, err := repo.IncrementUsage(ctx, sub.ID, plans.Unbounded)
	require.NoError(t, err)
	assert.True(t, applied)

	reloaded, err := repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 10000, reloaded.ContactsUsed)
}

func TestReleaseOneUnitFloorsAtZero(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := seedSubscription(t, db, uuid.New(), enums.PlanPro, 1, time.Now())

	require.NoError(t, repo.ReleaseOneUnit(ctx, sub.ID))
	reloaded, err := repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.ContactsUsed)

	// releasing again must not go negative
	require.NoError(t, repo.ReleaseOneUnit(ctx, sub.ID))
	reloaded, err = repo.FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.ContactsUsed)
}

func TestDeactivateForUser(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	first := seedSubscription(t, db, userID, enums.PlanBasic, 0, time.Now().Add(-time.Hour))
	second := seedSubscription(t, db, userID, enums.PlanPro, 0, time.Now())
	other := seedSubscription(t, db, uuid.New(), enums.PlanPro, 0, time.Now())

	require.NoError(t, repo.DeactivateForUser(ctx, userID))

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		reloaded, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, reloaded.IsActive)
	}

	untouched, err := repo.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, untouched.IsActive)
}

func TestPaymentEntries(t *testing.T) {
	db := setupSubscriptionsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sub := seedSubscription(t, db, uuid.New(), enums.PlanPro, 0, time.Now())
	entry := &models.SubscriptionPayment{
		SubscriptionID: sub.ID,
		PaymentID:      uuid.New(),
		Status:         enums.PaymentStatusCompleted,
		PaidAt:         time.Now(),
	}
	require.NoError(t, repo.CreatePaymentEntry(ctx, entry))

	entries, err := repo.ListPaymentEntries(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry.PaymentID, entries[0].PaymentID)
}
