// internal/app/features/demands/list.go
package demands

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/paging"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/timeouts"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ServeList handles GET /demands/{domain}.
//
// Query parameters: status, contract_type, caisse_type, member_id,
// group_id, decision_made_by, created_from, created_to, desired_from,
// desired_to (YYYY-MM-DD, inclusive), search, page, limit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	f, err := h.parseFilters(r)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list demands")
	defer cancel()

	page, err := svc.List(ctx, f)
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []models.Demand{}
	}
	uierrors.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: paging.TotalPages(page.Total, page.Limit),
	})
}

// ServeStats handles GET /demands/{domain}/stats. It accepts the list
// filters; status, search and desired dates do not affect the counts.
func (h *Handler) ServeStats(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	f, err := h.parseFilters(r)
	if err != nil {
		uierrors.BadRequest(w, err.Error())
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "demand stats")
	defer cancel()

	uierrors.WriteJSON(w, http.StatusOK, svc.Stats(ctx, f))
}

// ServeGet handles GET /demands/{domain}/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get demand")
	defer cancel()

	d, err := svc.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, d)
}

// ServeByContract handles GET /demands/{domain}/by-contract/{contractID}.
func (h *Handler) ServeByContract(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get demand by contract")
	defer cancel()

	d, err := svc.GetByContractID(ctx, chi.URLParam(r, "contractID"))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, d)
}

// ServeContract handles GET /demands/{domain}/{id}/contract and returns the
// contract a CONVERTED demand produced.
func (h *Handler) ServeContract(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	if h.Contracts == nil {
		notFound(w, "contract lookup is not available")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get demand contract")
	defer cancel()

	d, err := svc.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if !d.HasContract() {
		notFound(w, "demand "+d.ID+" has no contract")
		return
	}

	c, err := h.Contracts.GetByID(ctx, *d.ContractID)
	if err != nil {
		h.Log.Error("load contract failed",
			zap.String("demand_id", d.ID),
			zap.String("contract_id", *d.ContractID),
			zap.Error(err))
		h.ErrLog.Write(w, r, err)
		return
	}
	if c == nil {
		notFound(w, "contract "+*d.ContractID+" not found")
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, c)
}

func notFound(w http.ResponseWriter, msg string) {
	uierrors.WriteJSON(w, http.StatusNotFound, uierrors.Body{
		Error:   uierrors.KindNotFound,
		Message: msg,
	})
}

func (h *Handler) parseFilters(r *http.Request) (demandstore.Filters, error) {
	f := demandstore.Filters{
		ContractType:   query.Get(r, "contract_type"),
		CaisseType:     query.Get(r, "caisse_type"),
		MemberID:       query.Get(r, "member_id"),
		GroupID:        query.Get(r, "group_id"),
		DecisionMadeBy: query.Get(r, "decision_made_by"),
		Search:         query.Get(r, "search"),
		Page:           paging.ParsePage(r),
		Limit:          h.PageSize,
	}
	if query.Get(r, "limit") != "" {
		f.Limit = paging.ParseLimit(r)
	}

	if s := strings.ToUpper(query.Get(r, "status")); s != "" {
		st := models.DemandStatus(s)
		if !st.IsValid() {
			return f, fmt.Errorf("unknown status %q", s)
		}
		f.Status = st
	}

	var err error
	if f.CreatedFrom, err = parseDate(r, "created_from", false); err != nil {
		return f, err
	}
	if f.CreatedTo, err = parseDate(r, "created_to", true); err != nil {
		return f, err
	}
	if f.DesiredFrom, err = parseDate(r, "desired_from", false); err != nil {
		return f, err
	}
	if f.DesiredTo, err = parseDate(r, "desired_to", true); err != nil {
		return f, err
	}
	return f, nil
}

// parseDate reads a YYYY-MM-DD parameter as a UTC instant. Upper bounds
// are moved to the last instant of the day so the whole day is included.
func parseDate(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := query.Get(r, name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date formatted YYYY-MM-DD", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
