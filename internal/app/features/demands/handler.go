// internal/app/features/demands/handler.go
package demands

import (
	"context"
	"net/http"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	demandsvc "github.com/GlennEriss/kara-client-front-sub014/internal/app/services/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/paging"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContractReader loads the contract a demand was converted into.
type ContractReader interface {
	GetByID(ctx context.Context, id string) (*models.Contract, error)
}

// Handler serves the demand API for every domain.
type Handler struct {
	Services demandsvc.Registry
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger

	// Contracts backs GET /{id}/contract. Nil disables the route.
	Contracts ContractReader

	// PageSize is the limit used when the request has none.
	PageSize int
}

// NewHandler constructs a demands Handler over one service per domain.
func NewHandler(services demandsvc.Registry, errLog *uierrors.ErrorLogger, pageSize int, logger *zap.Logger) *Handler {
	if pageSize <= 0 {
		pageSize = paging.PageSize
	}
	return &Handler{
		Services: services,
		ErrLog:   errLog,
		Log:      logger,
		PageSize: pageSize,
	}
}

// service resolves the {domain} URL parameter. It writes a 404 and returns
// false for an unknown domain.
func (h *Handler) service(w http.ResponseWriter, r *http.Request) (*demandsvc.Service, bool) {
	name := chi.URLParam(r, "domain")
	domain, ok := models.ParseDomain(name)
	if ok {
		if svc, found := h.Services.For(domain); found {
			return svc, true
		}
	}
	uierrors.WriteJSON(w, http.StatusNotFound, uierrors.Body{
		Error:   uierrors.KindNotFound,
		Message: "unknown demand domain " + name,
	})
	return nil, false
}

// actorID returns the id of the signed-in user. Routes are mounted behind
// RequireRole so a user is always present.
func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}
