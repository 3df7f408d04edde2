package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/internal/plans"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput captures what a new subscription window needs.
type CreateInput struct {
	UserID       uuid.UUID
	PlanName     enums.PlanName
	BillingCycle enums.BillingCycle
	Now          time.Time
}

// Summary is the read view exposed to tokens and listings.
type Summary struct {
	ID                uuid.UUID          `json:"id"`
	PlanName          enums.PlanName     `json:"plan_name"`
	BillingCycle      enums.BillingCycle `json:"billing_cycle"`
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	ContactsUsed      int                `json:"contacts_used"`
	ContactsRemaining *int               `json:"contacts_remaining,omitempty"`
	Unbounded         bool               `json:"unbounded"`
}

// Service owns the subscription ledger operations.
type Service interface {
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error)
	CreateSubscription(ctx context.Context, input CreateInput) (*models.Subscription, error)
	CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Subscription, error)
	RecordPaymentInTx(ctx context.Context, tx *gorm.DB, entry *models.SubscriptionPayment) error

	// Debit and Release are the quota ledger surface used inside the
	// project application transaction.
	Debit(ctx context.Context, tx *gorm.DB, sub *models.Subscription) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the subscriptions service with the required dependencies.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	sub, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNoActiveSubscription, "no active subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	return sub, nil
}

func (s *service) GetSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	sub, err := s.GetActiveSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildSummary(sub)
}

// BuildSummary derives the remaining-quota view for a ledger row.
func BuildSummary(sub *models.Subscription) (*Summary, error) {
	plan, err := plans.Lookup(sub.PlanName)
	if err != nil {
		return nil, err
	}
	summary := &Summary{
		ID:           sub.ID,
		PlanName:     sub.PlanName,
		BillingCycle: sub.BillingCycle,
		StartDate:    sub.StartDate,
		EndDate:      sub.EndDate,
		ContactsUsed: sub.ContactsUsed,
		Unbounded:    plan.IsUnbounded(),
	}
	if !plan.IsUnbounded() {
		remaining := plan.ContactLimit - sub.ContactsUsed
		if remaining < 0 {
			remaining = 0
		}
		summary.ContactsRemaining = &remaining
	}
	return summary, nil
}

func (s *service) CreateSubscription(ctx context.Context, input CreateInput) (*models.Subscription, error) {
	var created *models.Subscription
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sub, err := s.CreateInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateInTx opens a new subscription window inside the caller's transaction,
// deactivating any prior active window so at most one stays active per user.
func (s *service) CreateInTx(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Subscription, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if _, err := plans.Lookup(input.PlanName); err != nil {
		return nil, err
	}
	duration, err := plans.Duration(input.BillingCycle)
	if err != nil {
		return nil, err
	}

	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	repo := s.repo.WithTx(tx)
	if err := repo.DeactivateForUser(ctx, input.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate prior subscriptions")
	}

	sub := &models.Subscription{
		UserID:       input.UserID,
		PlanName:     input.PlanName,
		BillingCycle: input.BillingCycle,
		StartDate:    now,
		EndDate:      now.Add(duration),
		IsActive:     true,
		ContactsUsed: 0,
	}
	if _, err := repo.Create(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	return sub, nil
}

// RecordPaymentInTx appends a settled payment to the subscription's history
// inside the caller's transaction.
func (s *service) RecordPaymentInTx(ctx context.Context, tx *gorm.DB, entry *models.SubscriptionPayment) error {
	if entry == nil || entry.SubscriptionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	if err := s.repo.WithTx(tx).CreatePaymentEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment entry")
	}
	return nil
}

// Debit consumes one contact unit from the ledger, atomically enforcing the
// plan quota. Returns false when the quota is already exhausted.
func (s *service) Debit(ctx context.Context, tx *gorm.DB, sub *models.Subscription) (bool, error) {
	if sub == nil {
		return false, pkgerrors.New(pkgerrors.CodeNoActiveSubscription, "no active subscription")
	}
	limit, err := plans.ContactLimit(sub.PlanName)
	if err != nil {
		return false, err
	}
	applied, err := s.repo.WithTx(tx).IncrementUsage(ctx, sub.ID, limit)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment contact usage")
	}
	return applied, nil
}

// Release returns one contact unit to the given ledger; a ledger already at
// zero stays at zero.
func (s *service) Release(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) error {
	if subscriptionID == uuid.Nil {
		return nil
	}
	if err := s.repo.WithTx(tx).ReleaseOneUnit(ctx, subscriptionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release contact unit")
	}
	return nil
}
