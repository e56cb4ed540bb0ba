package controllers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/bookhaven/bookledger-backend/api/responses"
	"github.com/bookhaven/bookledger-backend/api/validators"
	"github.com/bookhaven/bookledger-backend/internal/ledger"
	"github.com/bookhaven/bookledger-backend/pkg/config"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/logger"
)

const setupTokenHeader = "X-Setup-Token"

// InitLedgerRequest fixes the storekeeper address for the life of the ledger.
type InitLedgerRequest struct {
	StorekeeperAddress string `json:"storekeeper_address" validate:"required"`
}

// LedgerInit runs the one-time setup. It is guarded by a deploy-time token
// rather than a bearer token: no storekeeper exists until it has run.
func LedgerInit(svc ledger.Service, cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		provided := strings.TrimSpace(r.Header.Get(setupTokenHeader))
		expected := cfg.Ledger.SetupToken
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid setup token"))
			return
		}

		var body InitLedgerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.Initialize(r.Context(), body.StorekeeperAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"storekeeper_address": settings.StorekeeperAddress,
			"initialized_at":      settings.InitializedAt,
		})
	}
}
