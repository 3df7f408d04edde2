package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/internal/plans"
	"github.com/craftlink/craftlink-backend/internal/subscriptions"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
	"github.com/craftlink/craftlink-backend/pkg/metrics"
	"github.com/craftlink/craftlink-backend/pkg/mollie"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// provider is the slice of the Mollie client the service needs.
type provider interface {
	CreatePayment(ctx context.Context, req mollie.CreatePaymentRequest) (*mollie.Payment, error)
	GetPayment(ctx context.Context, providerID string) (*mollie.Payment, error)
}

// subscriptionVault opens subscription windows and records payment history.
type subscriptionVault interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, input subscriptions.CreateInput) (*models.Subscription, error)
	RecordPaymentInTx(ctx context.Context, tx *gorm.DB, entry *models.SubscriptionPayment) error
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, body string)
}

// CreateInput describes a checkout request for a paid plan.
type CreateInput struct {
	UserID       uuid.UUID
	PlanName     enums.PlanName
	BillingCycle enums.BillingCycle
	Amount       decimal.Decimal
	Description  string
	Method       string
}

// CheckoutResult is returned to the frontend to redirect into the checkout.
type CheckoutResult struct {
	Reference   string `json:"payment_id"`
	CheckoutURL string `json:"checkout_url"`
}

// Details is the read view of one payment.
type Details struct {
	Payment      models.Payment         `json:"payment"`
	Subscription *subscriptions.Summary `json:"subscription,omitempty"`
}

// UserPayments lists a user's payments next to their active subscription.
type UserPayments struct {
	Items              []models.Payment       `json:"items"`
	ActiveSubscription *subscriptions.Summary `json:"active_subscription,omitempty"`
}

// Service owns payment initiation and settlement.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CheckoutResult, error)
	GetByReference(ctx context.Context, reference string) (*Details, error)
	ListForUser(ctx context.Context, userID uuid.UUID) (*UserPayments, error)

	// HandleWebhook processes a provider status callback. A settlement that
	// was already consumed returns CodeDuplicateSettlement.
	HandleWebhook(ctx context.Context, providerID string) error
}

type service struct {
	repo     Repository
	provider provider
	vault    subscriptionVault
	users    userDirectory
	notify   notifier
	tx       txRunner
	metrics  *metrics.MarketplaceMetrics
	logg     *logger.Logger
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Repo     Repository
	Provider provider
	Vault    subscriptionVault
	Users    userDirectory
	Notifier notifier
	Tx       txRunner
	Metrics  *metrics.MarketplaceMetrics
	Logger   *logger.Logger
}

// NewService builds the payments service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Vault == nil {
		return nil, fmt.Errorf("subscription vault required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		provider: params.Provider,
		vault:    params.Vault,
		users:    params.Users,
		notify:   params.Notifier,
		tx:       params.Tx,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CheckoutResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.UserType != enums.UserTypeCraftsman {
		return nil, pkgerrors.New(pkgerrors.CodeNotACraftsman, "only craftsmen purchase plans")
	}

	price, err := plans.Price(input.PlanName, input.BillingCycle)
	if err != nil {
		return nil, err
	}
	if price.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPlan, "plan is not purchasable")
	}
	if !input.Amount.Equal(price) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount does not match plan price").
			WithDetails(map[string]any{"expected": price.StringFixed(2)})
	}

	reference := newReference()
	created, err := s.provider.CreatePayment(ctx, mollie.CreatePaymentRequest{
		Amount:      price,
		Currency:    "EUR",
		Description: input.Description,
		Reference:   reference,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open provider checkout")
	}

	payment := &models.Payment{
		Reference:    reference,
		ProviderID:   created.ProviderID,
		UserID:       input.UserID,
		Amount:       price,
		Currency:     "EUR",
		Description:  input.Description,
		Method:       input.Method,
		CheckoutURL:  created.CheckoutURL,
		Status:       enums.PaymentStatusPending,
		PlanName:     input.PlanName,
		BillingCycle: input.BillingCycle,
	}
	if _, err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment")
	}

	return &CheckoutResult{Reference: reference, CheckoutURL: created.CheckoutURL}, nil
}

func (s *service) GetByReference(ctx context.Context, reference string) (*Details, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if payment.ProviderID != "" {
		if err := s.syncProviderStatus(ctx, payment); err != nil {
			return nil, err
		}
		payment, err = s.repo.FindByReference(ctx, reference)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload payment")
		}
	}

	details := &Details{Payment: *payment}
	if payment.SubscriptionID != nil {
		sub, err := s.vault.GetActiveSubscription(ctx, payment.UserID)
		if err == nil && sub.ID == *payment.SubscriptionID {
			if summary, err := subscriptions.BuildSummary(sub); err == nil {
				details.Subscription = summary
			}
		}
	}
	return details, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) (*UserPayments, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}

	result := &UserPayments{Items: items}
	sub, err := s.vault.GetActiveSubscription(ctx, userID)
	if err == nil {
		if summary, err := subscriptions.BuildSummary(sub); err == nil {
			result.ActiveSubscription = summary
		}
	} else if !pkgerrors.HasCode(err, pkgerrors.CodeNoActiveSubscription) {
		return nil, err
	}
	return result, nil
}

func (s *service) HandleWebhook(ctx context.Context, providerID string) error {
	if providerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "provider payment id required")
	}

	remote, err := s.provider.GetPayment(ctx, providerID)
	if err != nil {
		s.metrics.IncSettlement("provider_error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch provider payment")
	}

	payment, err := s.repo.FindByProviderID(ctx, providerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	if remote.Status != enums.PaymentStatusCompleted {
		s.metrics.IncSettlement(remote.Status.String())
		if err := s.repo.UpdateStatusIfUnsettled(ctx, payment.ID, remote.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		return nil
	}

	return s.settle(ctx, payment)
}

// settle opens the purchased subscription window and consumes the payment's
// settlement exactly once. The conditional claim and the subscription insert
// commit or roll back together, so a lost claim leaves no orphan window.
func (s *service) settle(ctx context.Context, payment *models.Payment) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sub, err := s.vault.CreateInTx(ctx, tx, subscriptions.CreateInput{
			UserID:       payment.UserID,
			PlanName:     payment.PlanName,
			BillingCycle: payment.BillingCycle,
		})
		if err != nil {
			return err
		}

		claimed, err := s.repo.WithTx(tx).SettleOnce(ctx, payment.ID, sub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim settlement")
		}
		if !claimed {
			return pkgerrors.New(pkgerrors.CodeDuplicateSettlement, "payment already settled")
		}

		return s.vault.RecordPaymentInTx(ctx, tx, &models.SubscriptionPayment{
			SubscriptionID: sub.ID,
			PaymentID:      payment.ID,
			Amount:         payment.Amount,
			Status:         enums.PaymentStatusCompleted,
			PaidAt:         time.Now().UTC(),
		})
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeDuplicateSettlement) {
			s.metrics.IncSettlement("duplicate")
		} else {
			s.metrics.IncSettlement("error")
		}
		return err
	}

	s.metrics.IncSettlement("settled")
	s.notify.Notify(ctx, payment.UserID, enums.NotificationPaymentSettled, "your subscription is active")
	return nil
}

// syncProviderStatus pulls the provider's current state on read, settling a
// paid checkout whose webhook has not landed yet.
func (s *service) syncProviderStatus(ctx context.Context, payment *models.Payment) error {
	remote, err := s.provider.GetPayment(ctx, payment.ProviderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch provider payment")
	}

	if remote.Status == enums.PaymentStatusCompleted {
		if payment.SubscriptionID != nil {
			return nil
		}
		if err := s.settle(ctx, payment); err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeDuplicateSettlement) {
			return err
		}
		return nil
	}

	if remote.Status != payment.Status {
		if err := s.repo.UpdateStatusIfUnsettled(ctx, payment.ID, remote.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
	}
	return nil
}

// newReference mints the public payment id handed to the frontend.
func newReference() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "pay_" + uuid.New().String()[:12]
	}
	return "pay_" + hex.EncodeToString(buf)
}
