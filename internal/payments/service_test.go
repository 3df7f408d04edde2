package payments

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/internal/subscriptions"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
	"github.com/craftlink/craftlink-backend/pkg/mollie"
)

type stubPaymentsRepo struct {
	payments map[uuid.UUID]*models.Payment
}

func newStubPaymentsRepo() *stubPaymentsRepo {
	return &stubPaymentsRepo{payments: map[uuid.UUID]*models.Payment{}}
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.payments[payment.ID] = payment
	return payment, nil
}

func (s *stubPaymentsRepo) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	for _, p := range s.payments {
		if p.Reference == reference {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) FindByProviderID(ctx context.Context, providerID string) (*models.Payment, error) {
	for _, p := range s.payments {
		if p.ProviderID == providerID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPaymentsRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range s.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *stubPaymentsRepo) SettleOnce(ctx context.Context, id, subscriptionID uuid.UUID) (bool, error) {
	p, ok := s.payments[id]
	if !ok || p.SubscriptionID != nil {
		return false, nil
	}
	p.SubscriptionID = &subscriptionID
	p.Status = enums.PaymentStatusCompleted
	return true, nil
}

func (s *stubPaymentsRepo) UpdateStatusIfUnsettled(ctx context.Context, id uuid.UUID, status enums.PaymentStatus) error {
	if p, ok := s.payments[id]; ok && p.SubscriptionID == nil {
		p.Status = status
	}
	return nil
}

type stubProvider struct {
	created      []mollie.CreatePaymentRequest
	remoteStatus enums.PaymentStatus
}

func (s *stubProvider) CreatePayment(ctx context.Context, req mollie.CreatePaymentRequest) (*mollie.Payment, error) {
	s.created = append(s.created, req)
	return &mollie.Payment{
		ProviderID:  "tr_" + uuid.New().String()[:8],
		Status:      enums.PaymentStatusPending,
		CheckoutURL: "https://checkout.test/" + req.Reference,
	}, nil
}

func (s *stubProvider) GetPayment(ctx context.Context, providerID string) (*mollie.Payment, error) {
	return &mollie.Payment{ProviderID: providerID, Status: s.remoteStatus}, nil
}

type stubVault struct {
	windows []*models.Subscription
	entries []*models.SubscriptionPayment
	active  *models.Subscription
}

func (s *stubVault) CreateInTx(ctx context.Context, tx *gorm.DB, input subscriptions.CreateInput) (*models.Subscription, error) {
	sub := &models.Subscription{
		ID:           uuid.New(),
		UserID:       input.UserID,
		PlanName:     input.PlanName,
		BillingCycle: input.BillingCycle,
		StartDate:    time.Now().UTC(),
		IsActive:     true,
	}
	s.windows = append(s.windows, sub)
	return sub, nil
}

func (s *stubVault) RecordPaymentInTx(ctx context.Context, tx *gorm.DB, entry *models.SubscriptionPayment) error {
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubVault) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if s.active == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNoActiveSubscription, "no active subscription")
	}
	return s.active, nil
}

type stubUserDir struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserDir) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type stubPaymentsNotifier struct {
	sent []enums.NotificationKind
}

func (s *stubPaymentsNotifier) Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, body string) {
	s.sent = append(s.sent, kind)
}

type paymentsTxRunner struct{}

func (paymentsTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type paymentsFixture struct {
	svc       Service
	repo      *stubPaymentsRepo
	provider  *stubProvider
	vault     *stubVault
	users     *stubUserDir
	notifier  *stubPaymentsNotifier
	craftsman uuid.UUID
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()

	repo := newStubPaymentsRepo()
	provider := &stubProvider{remoteStatus: enums.PaymentStatusPending}
	vault := &stubVault{}
	notifier := &stubPaymentsNotifier{}

	craftsman := uuid.New()
	users := &stubUserDir{users: map[uuid.UUID]*models.User{
		craftsman: {ID: craftsman, UserType: enums.UserTypeCraftsman},
	}}

	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Provider: provider,
		Vault:    vault,
		Users:    users,
		Notifier: notifier,
		Tx:       paymentsTxRunner{},
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &paymentsFixture{
		svc:       svc,
		repo:      repo,
		provider:  provider,
		vault:     vault,
		users:     users,
		notifier:  notifier,
		craftsman: craftsman,
	}
}

func (f *paymentsFixture) pendingPayment(t *testing.T) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:           uuid.New(),
		Reference:    "pay_abc123",
		ProviderID:   "tr_abc123",
		UserID:       f.craftsman,
		Amount:       decimal.RequireFromString("19.99"),
		Status:       enums.PaymentStatusPending,
		PlanName:     enums.PlanPro,
		BillingCycle: enums.BillingCycleMonthly,
	}
	f.repo.payments[payment.ID] = payment
	return payment
}

func TestCreatePaymentValidatesAmountAgainstCatalog(t *testing.T) {
	f := newPaymentsFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		UserID:       f.craftsman,
		PlanName:     enums.PlanPro,
		BillingCycle: enums.BillingCycleMonthly,
		Amount:       decimal.RequireFromString("18.99"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.provider.created, "mismatched amount must not reach the provider")
}

func TestCreatePaymentOpensCheckout(t *testing.T) {
	f := newPaymentsFixture(t)

	result, err := f.svc.Create(context.Background(), CreateInput{
		UserID:       f.craftsman,
		PlanName:     enums.PlanPremium,
		BillingCycle: enums.BillingCycleYearly,
		Amount:       decimal.RequireFromString("479.90"),
		Description:  "PREMIUM yearly",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Reference)
	assert.Contains(t, result.CheckoutURL, result.Reference)

	require.Len(t, f.provider.created, 1)
	assert.Equal(t, "479.90", f.provider.created[0].Amount.StringFixed(2))

	stored, err := f.repo.FindByReference(context.Background(), result.Reference)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, stored.Status)
	assert.Nil(t, stored.SubscriptionID)
}

func TestCreatePaymentRejectsFreePlan(t *testing.T) {
	f := newPaymentsFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{
		UserID:       f.craftsman,
		PlanName:     enums.PlanBasic,
		BillingCycle: enums.BillingCycleFree,
		Amount:       decimal.Zero,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPlan))
}

func TestCreatePaymentCraftsmenOnly(t *testing.T) {
	f := newPaymentsFixture(t)
	individual := uuid.New()
	f.users.users[individual] = &models.User{ID: individual, UserType: enums.UserTypeIndividual}

	_, err := f.svc.Create(context.Background(), CreateInput{
		UserID:       individual,
		PlanName:     enums.PlanPro,
		BillingCycle: enums.BillingCycleMonthly,
		Amount:       decimal.RequireFromString("19.99"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotACraftsman))
}

func TestWebhookSettlesPaidPayment(t *testing.T) {
	f := newPaymentsFixture(t)
	payment := f.pendingPayment(t)
	f.provider.remoteStatus = enums.PaymentStatusCompleted

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payment.ProviderID))

	require.Len(t, f.vault.windows, 1)
	assert.Equal(t, enums.PlanPro, f.vault.windows[0].PlanName)
	require.NotNil(t, payment.SubscriptionID)
	assert.Equal(t, f.vault.windows[0].ID, *payment.SubscriptionID)
	assert.Equal(t, enums.PaymentStatusCompleted, payment.Status)

	require.Len(t, f.vault.entries, 1)
	assert.Equal(t, payment.ID, f.vault.entries[0].PaymentID)
	assert.Contains(t, f.notifier.sent, enums.NotificationPaymentSettled)
}

func TestWebhookSecondDeliveryIsDuplicate(t *testing.T) {
	f := newPaymentsFixture(t)
	payment := f.pendingPayment(t)
	f.provider.remoteStatus = enums.PaymentStatusCompleted

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payment.ProviderID))
	firstSub := *payment.SubscriptionID

	err := f.svc.HandleWebhook(context.Background(), payment.ProviderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDuplicateSettlement))
	assert.Equal(t, firstSub, *payment.SubscriptionID, "settlement binding must not move")
	require.Len(t, f.vault.entries, 1, "history must not double-record")
}

func TestWebhookNonTerminalStatusOnlyUpdatesPayment(t *testing.T) {
	f := newPaymentsFixture(t)
	payment := f.pendingPayment(t)
	f.provider.remoteStatus = enums.PaymentStatusFailed

	require.NoError(t, f.svc.HandleWebhook(context.Background(), payment.ProviderID))
	assert.Equal(t, enums.PaymentStatusFailed, payment.Status)
	assert.Empty(t, f.vault.windows, "failed payments must not open subscriptions")
	assert.Nil(t, payment.SubscriptionID)
}

func TestGetByReferenceSyncsAndSettles(t *testing.T) {
	f := newPaymentsFixture(t)
	payment := f.pendingPayment(t)
	f.provider.remoteStatus = enums.PaymentStatusCompleted

	details, err := f.svc.GetByReference(context.Background(), payment.Reference)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, details.Payment.Status)
	require.Len(t, f.vault.windows, 1, "paid checkout without webhook must settle on read")

	// a second read must not settle again
	f.vault.active = f.vault.windows[0]
	details, err = f.svc.GetByReference(context.Background(), payment.Reference)
	require.NoError(t, err)
	require.Len(t, f.vault.windows, 1)
	require.NotNil(t, details.Subscription)
}

func TestListForUserIncludesActiveSubscription(t *testing.T) {
	f := newPaymentsFixture(t)
	f.pendingPayment(t)
	f.vault.active = &models.Subscription{
		ID:       uuid.New(),
		UserID:   f.craftsman,
		PlanName: enums.PlanPro,
		IsActive: true,
	}

	result, err := f.svc.ListForUser(context.Background(), f.craftsman)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	require.NotNil(t, result.ActiveSubscription)
	assert.Equal(t, enums.PlanPro, result.ActiveSubscription.PlanName)
}
