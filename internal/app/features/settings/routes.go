// internal/app/features/settings/routes.go
package settings

import (
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the settings API. Admins may read the active version;
// only superadmins publish and activate versions.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(authz.BackOffice...))
		pr.Get("/{domain}/active", h.ServeActive)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Use(auth.RequireRole(authz.RoleSuperAdmin))
		pr.Post("/{domain}", h.HandleSave)
		pr.Post("/versions/{id}/activate", h.HandleActivate)
	})

	return r
}
