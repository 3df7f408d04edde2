package subscriptions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
)

type stubRepo struct {
	active       *models.Subscription
	activeErr    error
	created      []*models.Subscription
	deactivated  []uuid.UUID
	incremented  []uuid.UUID
	incrementOK  bool
	incrementErr error
	released     []uuid.UUID
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	sub.ID = uuid.New()
	s.created = append(s.created, sub)
	return sub, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if s.activeErr != nil {
		return nil, s.activeErr
	}
	if s.active == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.active, nil
}

func (s *stubRepo) DeactivateForUser(ctx context.Context, userID uuid.UUID) error {
	s.deactivated = append(s.deactivated, userID)
	return nil
}

func (s *stubRepo) IncrementUsage(ctx context.Context, id uuid.UUID, limit int) (bool, error) {
	s.incremented = append(s.incremented, id)
	return s.incrementOK, s.incrementErr
}

func (s *stubRepo) ReleaseOneUnit(ctx context.Context, id uuid.UUID) error {
	s.released = append(s.released, id)
	return nil
}

func (s *stubRepo) CreatePaymentEntry(ctx context.Context, entry *models.SubscriptionPayment) error {
	return nil
}

func (s *stubRepo) ListPaymentEntries(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionPayment, error) {
	return nil, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, testLogger())
	require.NoError(t, err)
	return svc
}

func TestGetActiveSubscriptionMapsNotFound(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	_, err := svc.GetActiveSubscription(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNoActiveSubscription))
}

func TestCreateSubscriptionDeactivatesPrior(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo)
	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sub, err := svc.CreateSubscription(context.Background(), CreateInput{
		UserID:       userID,
		PlanName:     enums.PlanPro,
		BillingCycle: enums.BillingCycleMonthly,
		Now:          now,
	})
	require.NoError(t, err)

	require.Len(t, repo.deactivated, 1, "prior active windows must be closed first")
	assert.Equal(t, userID, repo.deactivated[0])
	assert.Equal(t, 0, sub.ContactsUsed)
	assert.True(t, sub.IsActive)
	assert.Equal(t, now.Add(30*24*time.Hour), sub.EndDate)
}

func TestCreateSubscriptionYearlyWindow(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sub, err := svc.CreateSubscription(context.Background(), CreateInput{
		UserID:       uuid.New(),
		PlanName:     enums.PlanPremium,
		BillingCycle: enums.BillingCycleYearly,
		Now:          now,
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(365*24*time.Hour), sub.EndDate)
}

func TestCreateSubscriptionRejectsUnknownPlan(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	_, err := svc.CreateSubscription(context.Background(), CreateInput{
		UserID:       uuid.New(),
		PlanName:     enums.PlanName("GOLD"),
		BillingCycle: enums.BillingCycleMonthly,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPlan))
}

func TestDebitRefusedAtQuota(t *testing.T) {
	repo := &stubRepo{incrementOK: false}
	svc := newTestService(t, repo)

	sub := &models.Subscription{ID: uuid.New(), PlanName: enums.PlanBasic, ContactsUsed: 1}
	applied, err := svc.Debit(context.Background(), nil, sub)
	require.NoError(t, err)
	assert.False(t, applied)
	require.Len(t, repo.incremented, 1)
}

func TestDebitNilSubscription(t *testing.T) {
	svc := newTestService(t, &stubRepo{})
	_, err := svc.Debit(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNoActiveSubscription))
}

func TestReleaseSkipsNilLedger(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo)
	require.NoError(t, svc.Release(context.Background(), nil, uuid.Nil))
	assert.Empty(t, repo.released)

	id := uuid.New()
	require.NoError(t, svc.Release(context.Background(), nil, id))
	require.Len(t, repo.released, 1)
	assert.Equal(t, id, repo.released[0])
}

func TestBuildSummaryRemaining(t *testing.T) {
	sub := &models.Subscription{ID: uuid.New(), PlanName: enums.PlanPro, ContactsUsed: 4}
	summary, err := BuildSummary(sub)
	require.NoError(t, err)
	require.NotNil(t, summary.ContactsRemaining)
	assert.Equal(t, 11, *summary.ContactsRemaining)
	assert.False(t, summary.Unbounded)

	sub = &models.Subscription{ID: uuid.New(), PlanName: enums.PlanPremium, ContactsUsed: 100}
	summary, err = BuildSummary(sub)
	require.NoError(t, err)
	assert.Nil(t, summary.ContactsRemaining)
	assert.True(t, summary.Unbounded)
}
