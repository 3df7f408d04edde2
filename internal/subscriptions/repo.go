package subscriptions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/internal/plans"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
)

// Repository exposes subscription ledger persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	DeactivateForUser(ctx context.Context, userID uuid.UUID) error
	IncrementUsage(ctx context.Context, id uuid.UUID, limit int) (bool, error)
	ReleaseOneUnit(ctx context.Context, id uuid.UUID) error
	CreatePaymentEntry(ctx context.Context, entry *models.SubscriptionPayment) error
	ListPaymentEntries(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionPayment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subscriptions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) (*models.Subscription, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("start_date DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) DeactivateForUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE subscriptions
		SET is_active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND is_active = ?
	`, false, userID, true).Error
}

// IncrementUsage debits one contact unit. The WHERE guard makes the
// check-and-increment a single atomic statement; limit plans.Unbounded
// drops the guard entirely. Returns false when the quota was exhausted.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID, limit int) (bool, error) {
	var res *gorm.DB
	if limit == plans.Unbounded {
		res = r.db.WithContext(ctx).Exec(`
			UPDATE subscriptions
			SET contacts_used = contacts_used + 1,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, id)
	} else {
		res = r.db.WithContext(ctx).Exec(`
			UPDATE subscriptions
			SET contacts_used = contacts_used + 1,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND contacts_used < ?
		`, id, limit)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReleaseOneUnit returns one contact unit, never dropping below zero.
func (r *repository) ReleaseOneUnit(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE subscriptions
		SET contacts_used = contacts_used - 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND contacts_used > 0
	`, id).Error
}

func (r *repository) CreatePaymentEntry(ctx context.Context, entry *models.SubscriptionPayment) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListPaymentEntries(ctx context.Context, subscriptionID uuid.UUID) ([]models.SubscriptionPayment, error) {
	var entries []models.SubscriptionPayment
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("paid_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
