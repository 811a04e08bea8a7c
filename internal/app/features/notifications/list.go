// internal/app/features/notifications/list.go
package notifications

import (
	"net/http"
	"sort"
	"strconv"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/timeouts"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type listResponse struct {
	Items []models.Notification `json:"items"`
}

// List handles GET /notifications?limit=.
//
// A missing or malformed limit falls back to the default; larger values are
// capped at maxLimit. It returns what was sent to every administrator together with what was
// addressed to the signed-in user (demands they submitted), newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(query.Get(r, "limit"))

	u, _ := auth.CurrentUser(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list notifications")
	defer cancel()

	var items []models.Notification
	for _, audience := range []string{models.AudienceAdmins, models.UserAudience(u.ID)} {
		got, err := h.Notifications.ListForAudience(ctx, audience, int64(limit))
		if err != nil {
			h.Log.Error("list notifications failed", zap.String("audience", audience), zap.Error(err))
			h.ErrLog.Write(w, r, err)
			return
		}
		items = append(items, got...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []models.Notification{}
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{Items: items})
}

func parseLimit(s string) int {
	n, err := strconv.Atoi(s)
	switch {
	case err != nil || n < 1:
		return defaultLimit
	case n > maxLimit:
		return maxLimit
	}
	return n
}
