// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	auditlogfeature "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/auditlog"
	demandsfeature "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/demands"
	errorsfeature "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	healthfeature "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/health"
	notificationsfeature "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/notifications"
	settingsfeature "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/settings"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so the demand services are ready to be mounted.
//
// Routes:
//   - /health         liveness and dependency status (public)
//   - /demands        demand lifecycle API, admin roles only
//   - /audit          audit trail of demand events, admin roles only
//   - /settings       product settings versions (read: admin, write: superadmin)
//   - /notifications  back-office inbox, admin roles only
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.app == nil || deps.app.demands == nil {
		return nil, errors.New("build handler: Startup has not run")
	}
	return newRouter(deps, appCfg, logger), nil
}

func newRouter(deps DBDeps, appCfg AppConfig, logger *zap.Logger) chi.Router {
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(auth.LoadSessionUser)

	// Only hand the health check a Pinger when the cache exists.
	var cache healthfeature.Pinger
	if deps.app.stats != nil {
		cache = deps.app.stats
	}
	healthHandler := healthfeature.NewHandler(deps.MongoClient, cache, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	demandsHandler := demandsfeature.NewHandler(deps.app.demands, errLog, appCfg.DefaultPageSize, logger)
	if deps.app.contracts != nil {
		demandsHandler.Contracts = deps.app.contracts
	}
	r.Mount("/demands", demandsfeature.Routes(demandsHandler))

	// Stores are nil when the router is built over in-memory services.
	if deps.app.audit != nil {
		auditHandler := auditlogfeature.NewHandler(deps.app.audit, errLog, logger)
		r.Mount("/audit", auditlogfeature.Routes(auditHandler))
	}
	if deps.app.settings != nil {
		settingsHandler := settingsfeature.NewHandler(deps.app.settings, errLog, logger)
		r.Mount("/settings", settingsfeature.Routes(settingsHandler))
	}
	if deps.app.inbox != nil {
		inboxHandler := notificationsfeature.NewHandler(deps.app.inbox, errLog, logger)
		r.Mount("/notifications", notificationsfeature.Routes(inboxHandler))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorsfeature.WriteJSON(w, http.StatusNotFound, errorsfeature.Body{
			Error:   errorsfeature.KindNotFound,
			Message: "no such route",
		})
	})

	return r
}
