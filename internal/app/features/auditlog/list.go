// internal/app/features/auditlog/list.go
package auditlog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/store/audit"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/paging"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/timeouts"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	pageSize = 50

	// trailLimit caps one demand's trail; a demand rarely has more than a
	// handful of events.
	trailLimit = 200
)

// ServeList handles GET /audit.
//
// Query parameters: domain, demand_id, actor_id, category, event_type,
// start_date, end_date (YYYY-MM-DD, inclusive, UTC), page.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	filter, page, err := parseFilter(r)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		h.ErrLog.Write(w, r, err)
		return
	}

	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		h.ErrLog.Write(w, r, err)
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, toItem(e))
	}

	totalPages := paging.TotalPages(total, pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	uierrors.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
	})
}

// ServeDemandTrail handles GET /audit/demands/{domain}/{id}: every audit
// event recorded for one demand, newest first.
func (h *Handler) ServeDemandTrail(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if _, ok := models.ParseDomain(domain); !ok {
		uierrors.WriteJSON(w, http.StatusNotFound, uierrors.Body{
			Error:   uierrors.KindNotFound,
			Message: "unknown domain " + domain,
		})
		return
	}
	demandID := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "demand audit trail")
	defer cancel()

	events, err := h.Events.GetByDemand(ctx, domain, demandID, trailLimit)
	if err != nil {
		h.Log.Error("failed to load demand audit trail",
			zap.String("domain", domain),
			zap.String("demand_id", demandID),
			zap.Error(err))
		h.ErrLog.Write(w, r, err)
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, toItem(e))
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Total:      int64(len(items)),
		Page:       1,
		TotalPages: 1,
	})
}

func parseFilter(r *http.Request) (audit.QueryFilter, int, error) {
	q := r.URL.Query()
	get := func(key string) string { return strings.TrimSpace(q.Get(key)) }

	page := 1
	if s := get("page"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 {
			return audit.QueryFilter{}, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	filter := audit.QueryFilter{
		DemandID:  get("demand_id"),
		ActorID:   get("actor_id"),
		Category:  get("category"),
		EventType: get("event_type"),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if d := get("domain"); d != "" {
		if _, ok := models.ParseDomain(d); !ok {
			return audit.QueryFilter{}, 0, fmt.Errorf("unknown domain %q", d)
		}
		filter.Domain = d
	}
	if filter.Category != "" {
		if _, ok := eventTypesByCategory[filter.Category]; !ok {
			return audit.QueryFilter{}, 0, fmt.Errorf("unknown category %q", filter.Category)
		}
	}
	if filter.EventType != "" && !validEventType(filter.Category, filter.EventType) {
		return audit.QueryFilter{}, 0, fmt.Errorf("unknown event_type %q", filter.EventType)
	}

	if s := get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return audit.QueryFilter{}, 0, fmt.Errorf("start_date must be YYYY-MM-DD")
		}
		filter.StartTime = &t
	}
	if s := get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return audit.QueryFilter{}, 0, fmt.Errorf("end_date must be YYYY-MM-DD")
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}
	return filter, page, nil
}
