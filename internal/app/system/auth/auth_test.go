package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/auth"
	"go.uber.org/zap"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSignedIn_NoUser_Returns401(t *testing.T) {
	handler := auth.RequireSignedIn(okHandler(nil))

	req := httptest.NewRequest("GET", "/demands/emergency", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unauthorized"`) {
		t.Errorf("expected JSON error body, got %q", rec.Body.String())
	}
}

func TestRequireSignedIn_WithUser_Proceeds(t *testing.T) {
	called := false
	handler := auth.RequireSignedIn(okHandler(&called))

	req := withTestUser(httptest.NewRequest("GET", "/", nil), "member")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequireRole(t *testing.T) {
	handler := auth.RequireRole("admin", "superadmin")(okHandler(nil))

	tests := []struct {
		name     string
		role     string
		anon     bool
		expected int
	}{
		{name: "anonymous", anon: true, expected: http.StatusUnauthorized},
		{name: "admin", role: "admin", expected: http.StatusOK},
		{name: "superadmin", role: "superadmin", expected: http.StatusOK},
		{name: "uppercase", role: "ADMIN", expected: http.StatusOK},
		{name: "member", role: "member", expected: http.StatusForbidden},
		{name: "empty role", role: "", expected: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/demands/emergency", nil)
			if !tc.anon {
				req = withTestUser(req, tc.role)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.expected {
				t.Errorf("role %q: expected status %d, got %d", tc.role, tc.expected, rec.Code)
			}
		})
	}
}

func TestCurrentUser_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	user, ok := auth.CurrentUser(req)

	if ok {
		t.Error("expected ok to be false when no user in context")
	}
	if user != nil {
		t.Error("expected user to be nil when no user in context")
	}
}

func TestCurrentUser_WithUser(t *testing.T) {
	req := withTestUser(httptest.NewRequest("GET", "/", nil), "admin")

	user, ok := auth.CurrentUser(req)

	if !ok {
		t.Fatal("expected ok to be true when user in context")
	}
	if user.Role != "admin" || user.ID != "admin-1" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	if err := auth.InitSessionStore("test-session-key-must-be-32-chars-long", "", false, zap.NewNop()); err != nil {
		t.Fatalf("InitSessionStore: %v", err)
	}
	t.Cleanup(func() { auth.Store = nil })

	login := httptest.NewRecorder()
	err := auth.SignIn(login, httptest.NewRequest("POST", "/login", nil), auth.SessionUser{
		ID: "admin-1", Name: "Ada Admin", LoginID: "ada", Role: "admin",
	})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req := httptest.NewRequest("GET", "/demands/emergency", nil)
	for _, c := range login.Result().Cookies() {
		req.AddCookie(c)
	}

	var got *auth.SessionUser
	handler := auth.LoadSessionUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.CurrentUser(r)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("expected session user to be loaded from cookie")
	}
	if got.ID != "admin-1" || got.Name != "Ada Admin" || got.Role != "admin" {
		t.Errorf("loaded user = %+v", got)
	}
}

func TestInitSessionStore_EmptyKey(t *testing.T) {
	if err := auth.InitSessionStore("", "", false, zap.NewNop()); err == nil {
		t.Error("expected error for empty session key")
	}
}

// withTestUser injects a SessionUser into the request context for testing.
// This simulates what LoadSessionUser middleware does.
func withTestUser(r *http.Request, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:      "admin-1",
		Name:    "Test User",
		LoginID: "test@example.com",
		Role:    role,
	})
}
