package middleware

import (
	"net/http"

	"github.com/bookhaven/bookledger-backend/api/responses"
	"github.com/bookhaven/bookledger-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/logger"
)

// RequireStorekeeper rejects callers whose token role is not storekeeper.
// Services re-check the address against the settings row; the token role is
// the cheap first gate.
func RequireStorekeeper(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RoleFromContext(r.Context()) != string(enums.RoleStorekeeper) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "storekeeper role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
