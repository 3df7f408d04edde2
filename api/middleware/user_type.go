package middleware

import (
	"net/http"

	"github.com/craftlink/craftlink-backend/api/responses"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
)

// RequireUserType rejects requests whose token carries a different account type.
func RequireUserType(userType enums.UserType, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserTypeFromContext(r.Context()) != string(userType) {
				code := pkgerrors.CodeForbidden
				switch userType {
				case enums.UserTypeCraftsman:
					code = pkgerrors.CodeNotACraftsman
				case enums.UserTypeIndividual:
					code = pkgerrors.CodeNotAnIndividual
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(code, "account type not allowed"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
