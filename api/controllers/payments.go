package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/api/responses"
	"github.com/craftlink/craftlink-backend/api/validators"
	"github.com/craftlink/craftlink-backend/internal/payments"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
)

type createPaymentRequest struct {
	PlanName     enums.PlanName     `json:"plan_name" validate:"required"`
	BillingCycle enums.BillingCycle `json:"billing_cycle" validate:"required"`
	Amount       decimal.Decimal    `json:"amount"`
	Method       string             `json:"method"`
}

// PaymentCreate opens a provider checkout for a paid plan.
func PaymentCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Create(r.Context(), payments.CreateInput{
			UserID:       actor,
			PlanName:     body.PlanName,
			BillingCycle: body.BillingCycle,
			Amount:       body.Amount,
			Description:  fmt.Sprintf("CraftLink %s plan (%s)", body.PlanName, body.BillingCycle),
			Method:       validators.SanitizeString(body.Method, 50),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentDetail fetches a payment by its public reference, re-syncing the
// provider status first.
func PaymentDetail(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required"))
			return
		}

		details, err := svc.GetByReference(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if details.Payment.UserID != actor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "payment belongs to another user"))
			return
		}
		responses.WriteSuccess(w, details)
	}
}

// UserPayments lists the caller's payment history with their active
// subscription attached.
func UserPayments(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if userID != actor {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "payments are visible to their owner only"))
			return
		}

		list, err := svc.ListForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
