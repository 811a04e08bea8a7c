// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the audit log under the path where this router is mounted
// (typically "/audit" from bootstrap). Access is restricted to admins.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(authz.BackOffice...))

		pr.Get("/", h.ServeList)
		pr.Get("/demands/{domain}/{id}", h.ServeDemandTrail)
	})

	return r
}
