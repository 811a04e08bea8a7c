package auditlog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/features/auditlog"
	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/store/audit"
	"github.com/GlennEriss/kara-client-front-sub014/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeEvents struct {
	events []audit.Event
	total  int64
	err    error
	got    audit.QueryFilter
}

func (f *fakeEvents) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	f.got = filter
	return f.events, f.err
}

func (f *fakeEvents) CountByFilter(_ context.Context, _ audit.QueryFilter) (int64, error) {
	return f.total, f.err
}

func (f *fakeEvents) GetByDemand(_ context.Context, domain, demandID string, limit int64) ([]audit.Event, error) {
	f.got = audit.QueryFilter{Domain: domain, DemandID: demandID, Limit: limit}
	return f.events, f.err
}

func newTestHandler(events *fakeEvents) *auditlog.Handler {
	logger := zap.NewNop()
	return auditlog.NewHandler(events, uierrors.NewErrorLogger(logger), logger)
}

func TestRoutes_RequireAdmin(t *testing.T) {
	router := auditlog.Routes(newTestHandler(&fakeEvents{}))

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"anonymous", testutil.NewRequest(http.MethodGet, "/"), http.StatusUnauthorized},
		{"member", testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.MemberUser()), http.StatusForbidden},
		{"admin", testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.AdminUser()), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestServeList_FiltersAndPaging(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	events := &fakeEvents{
		events: []audit.Event{{
			ID:        primitive.NewObjectID(),
			Timestamp: at,
			Category:  audit.CategoryDemand,
			EventType: audit.EventDemandApproved,
			Domain:    "emergency",
			DemandID:  "d-1",
			ActorID:   "admin-1",
			Success:   true,
		}},
		total: 51,
	}
	h := newTestHandler(events)

	req := testutil.NewRequest(http.MethodGet,
		"/audit?domain=emergency&category=demand&event_type=demand_approved&start_date=2025-03-01&end_date=2025-03-14&page=2")
	rec := testutil.NewRecorder()
	h.ServeList(rec, req)

	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Items []struct {
			EventType string `json:"event_type"`
			DemandID  string `json:"demand_id"`
		} `json:"items"`
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		TotalPages int   `json:"total_pages"`
	}
	rec.DecodeJSON(t, &body)

	if len(body.Items) != 1 || body.Items[0].EventType != audit.EventDemandApproved || body.Items[0].DemandID != "d-1" {
		t.Errorf("items = %+v", body.Items)
	}
	if body.Total != 51 || body.Page != 2 || body.TotalPages != 2 {
		t.Errorf("total/page/pages = %d/%d/%d, want 51/2/2", body.Total, body.Page, body.TotalPages)
	}

	f := events.got
	if f.Domain != "emergency" || f.Category != audit.CategoryDemand || f.EventType != audit.EventDemandApproved {
		t.Errorf("filter = %+v", f)
	}
	if f.Offset != 50 || f.Limit != 50 {
		t.Errorf("offset/limit = %d/%d, want 50/50", f.Offset, f.Limit)
	}
	if f.EndTime == nil || f.EndTime.Day() != 14 || f.EndTime.Hour() != 23 {
		t.Errorf("end time = %v, want end of 2025-03-14", f.EndTime)
	}
}

func TestServeList_BadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad page", "page=0"},
		{"unknown domain", "domain=mortgage"},
		{"unknown category", "category=billing"},
		{"event type outside category", "category=system&event_type=demand_created"},
		{"unknown event type", "event_type=logged_in"},
		{"bad date", "start_date=14/03/2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &fakeEvents{}
			rec := testutil.NewRecorder()
			newTestHandler(events).ServeList(rec, testutil.NewRequest(http.MethodGet, "/audit?"+tt.query))
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, `"error":"validation"`)
		})
	}
}

func TestServeList_StoreError(t *testing.T) {
	rec := testutil.NewRecorder()
	newTestHandler(&fakeEvents{err: errors.New("boom")}).ServeList(rec, testutil.NewRequest(http.MethodGet, "/audit"))
	rec.AssertStatus(t, http.StatusInternalServerError)
}

func TestServeDemandTrail(t *testing.T) {
	events := &fakeEvents{events: []audit.Event{
		{ID: primitive.NewObjectID(), Category: audit.CategoryDemand, EventType: audit.EventDemandConverted, DemandID: "d-9"},
		{ID: primitive.NewObjectID(), Category: audit.CategoryDemand, EventType: audit.EventDemandCreated, DemandID: "d-9"},
	}}
	router := auditlog.Routes(newTestHandler(events))

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/demands/placement/d-9", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"total":2`)

	if events.got.Domain != "placement" || events.got.DemandID != "d-9" {
		t.Errorf("queried %+v", events.got)
	}

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest(http.MethodGet, "/demands/mortgage/d-9", testutil.AdminUser()))
	rec.AssertStatus(t, http.StatusNotFound)
}
