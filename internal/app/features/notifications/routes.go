// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the inbox. All routes require admin authentication.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole(authz.BackOffice...))
	r.Get("/", h.List)
	return r
}
