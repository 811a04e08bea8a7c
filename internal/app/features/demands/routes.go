// internal/app/features/demands/routes.go
package demands

import (
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the demand API under the path where this router is mounted
// (typically "/demands" from bootstrap). Every route requires an admin.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(authz.BackOffice...))

		pr.Route("/{domain}", func(dr chi.Router) {
			dr.Get("/", h.ServeList)
			dr.Post("/", h.HandleCreate)
			dr.Get("/stats", h.ServeStats)
			dr.Get("/by-contract/{contractID}", h.ServeByContract)

			dr.Get("/{id}", h.ServeGet)
			dr.Get("/{id}/contract", h.ServeContract)
			dr.Delete("/{id}", h.HandleDelete)
			dr.Post("/{id}/approve", h.HandleApprove)
			dr.Post("/{id}/reject", h.HandleReject)
			dr.Post("/{id}/reopen", h.HandleReopen)
			dr.Post("/{id}/convert", h.HandleConvert)
		})
	})

	return r
}
