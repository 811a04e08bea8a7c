// internal/app/features/settings/admin.go
package settings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	settingsstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/settings"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/limits"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/timeouts"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type saveRequest struct {
	CaisseType  string         `json:"caisse_type"`
	Params      map[string]any `json:"params"`
	EffectiveAt *time.Time     `json:"effective_at"`
}

// ServeActive handles GET /settings/{domain}/active?caisse_type=.
// Falls back to the domain-wide version like contract creation does.
func (h *Handler) ServeActive(w http.ResponseWriter, r *http.Request) {
	domain, ok := parseDomain(w, r)
	if !ok {
		return
	}
	caisse := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("caisse_type")))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load active settings")
	defer cancel()

	ps, err := h.Settings.GetActive(ctx, domain, caisse)
	if err != nil {
		h.Log.Error("load active settings failed", zap.String("domain", string(domain)), zap.Error(err))
		h.ErrLog.Write(w, r, err)
		return
	}
	if ps == nil {
		uierrors.WriteJSON(w, http.StatusNotFound, uierrors.Body{
			Error:   uierrors.KindNotFound,
			Message: "no active settings for " + string(domain),
		})
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, ps)
}

// HandleSave handles POST /settings/{domain}. The new version starts
// inactive.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	domain, ok := parseDomain(w, r)
	if !ok {
		return
	}

	var req saveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		uierrors.BadRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	ps := models.ProductSettings{
		Domain:     domain,
		CaisseType: strings.ToUpper(strings.TrimSpace(req.CaisseType)),
		Params:     req.Params,
		UpdatedBy:  actorID(r),
	}
	if req.EffectiveAt != nil {
		ps.EffectiveAt = req.EffectiveAt.UTC()
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "save settings")
	defer cancel()

	saved, err := h.Settings.Save(ctx, ps)
	if err != nil {
		h.Log.Error("save settings failed", zap.String("domain", string(domain)), zap.Error(err))
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("product settings version saved",
		zap.String("domain", string(domain)),
		zap.String("settings_id", saved.ID),
		zap.Int("version", saved.Version))
	uierrors.WriteJSON(w, http.StatusCreated, saved)
}

// HandleActivate handles POST /settings/versions/{id}/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "activate settings")
	defer cancel()

	err := h.Settings.Activate(ctx, id, actorID(r))
	switch {
	case errors.Is(err, settingsstore.ErrNotFound):
		uierrors.WriteJSON(w, http.StatusNotFound, uierrors.Body{
			Error:   uierrors.KindNotFound,
			Message: "settings " + id + " not found",
		})
		return
	case err != nil:
		h.Log.Error("activate settings failed", zap.String("settings_id", id), zap.Error(err))
		h.ErrLog.Write(w, r, err)
		return
	}
	h.Log.Info("product settings activated",
		zap.String("settings_id", id),
		zap.String("actor_id", actorID(r)))
	w.WriteHeader(http.StatusNoContent)
}

func parseDomain(w http.ResponseWriter, r *http.Request) (models.Domain, bool) {
	name := chi.URLParam(r, "domain")
	d, ok := models.ParseDomain(name)
	if !ok {
		uierrors.WriteJSON(w, http.StatusNotFound, uierrors.Body{
			Error:   uierrors.KindNotFound,
			Message: "unknown domain " + name,
		})
	}
	return d, ok
}

func actorID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}
