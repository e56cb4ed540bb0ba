package controllers

import (
	"context"
	"net/http"

	"github.com/bookhaven/bookledger-backend/api/responses"
	"github.com/bookhaven/bookledger-backend/pkg/config"
	pkgerrors "github.com/bookhaven/bookledger-backend/pkg/errors"
	"github.com/bookhaven/bookledger-backend/pkg/logger"
)

const envHeader = "X-BookLedger-Env"

// Pinger is the readiness surface of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis. A failing dependency reports the
// service as not ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redisClient Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := map[string]Pinger{
			"db":    db,
			"redis": redisClient,
		}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" not ready")
				responses.WriteError(r.Context(), logg, w, wrapped)
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
