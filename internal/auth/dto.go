package auth

import (
	"github.com/craftlink/craftlink-backend/internal/subscriptions"
	"github.com/craftlink/craftlink-backend/internal/users"
	"github.com/craftlink/craftlink-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the tokens, user, and (for craftsmen) the active
// subscription produced by a successful login.
type LoginResponse struct {
	AccessToken  string                 `json:"access_token"`
	RefreshToken string                 `json:"refresh_token"`
	User         *users.UserDTO         `json:"user"`
	Subscription *subscriptions.Summary `json:"subscription,omitempty"`
}

// RegisterRequest contains the payload required for onboarding a new account.
type RegisterRequest struct {
	FirstName string         `json:"first_name" validate:"required"`
	LastName  string         `json:"last_name" validate:"required"`
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required"`
	Phone     *string        `json:"phone,omitempty"`
	UserType  enums.UserType `json:"user_type" validate:"required"`
}
