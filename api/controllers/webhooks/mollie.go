package webhooks

import (
	"context"
	"net/http"
	"strings"

	"github.com/craftlink/craftlink-backend/api/responses"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
)

// settlementService processes provider status callbacks.
type settlementService interface {
	HandleWebhook(ctx context.Context, providerID string) error
}

// MollieWebhook handles Mollie payment status callbacks. Mollie posts a
// form-encoded body carrying only the payment id; the current status is
// fetched back from the API. Redelivery of an already-settled payment is
// acknowledged with 200 so Mollie stops retrying.
func MollieWebhook(svc settlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse webhook body"))
			return
		}

		providerID := strings.TrimSpace(r.PostFormValue("id"))
		if providerID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id missing"))
			return
		}

		if err := svc.HandleWebhook(ctx, providerID); err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeDuplicateSettlement) {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"provider_id": providerID}), "webhook.settlement.duplicate")
				}
				responses.WriteSuccess(w, map[string]string{"status": "already_settled"})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "processed"})
	}
}
