package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/internal/subscriptions"
	"github.com/craftlink/craftlink-backend/internal/users"
	"github.com/craftlink/craftlink-backend/pkg/config"
	"github.com/craftlink/craftlink-backend/pkg/db"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/security"
)

// subscriptionCreator opens subscription windows inside the registration
// transaction.
type subscriptionCreator interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, input subscriptions.CreateInput) (*models.Subscription, error)
}

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             *db.Client
	Subscriptions  subscriptionCreator
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db            *db.Client
	subscriptions subscriptionCreator
	passwordCfg   config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	if params.Subscriptions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions service required")
	}
	return &registerService{
		db:            params.DB,
		subscriptions: params.Subscriptions,
		passwordCfg:   params.PasswordConfig,
	}, nil
}

// Register creates the account and, for craftsmen, opens the free starter
// subscription in the same transaction.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}
	if !req.UserType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user type")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			UserType:     req.UserType,
			Phone:        req.Phone,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if req.UserType == enums.UserTypeCraftsman {
			if _, err := s.subscriptions.CreateInTx(ctx, tx, subscriptions.CreateInput{
				UserID:       user.ID,
				PlanName:     enums.PlanBasic,
				BillingCycle: enums.BillingCycleFree,
			}); err != nil {
				return err
			}
		}

		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
