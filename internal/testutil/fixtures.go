package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calling it again on the same request adds to the existing parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateMember inserts a member with the given identity.
func (f *Fixtures) CreateMember(ctx context.Context, lastName, firstName, matricule string) models.Member {
	f.t.Helper()

	m := NewMember(lastName, firstName, matricule)
	if _, err := f.db.Collection("members").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	return m
}

// CreateAdmin inserts an active administrator.
func (f *Fixtures) CreateAdmin(ctx context.Context, lastName, firstName string) models.Admin {
	f.t.Helper()

	a := NewAdmin(lastName, firstName)
	if _, err := f.db.Collection("admins").InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test admin: %v", err)
	}
	return a
}

// CreateActiveSettings inserts an active settings document for domain and
// caisseType.
func (f *Fixtures) CreateActiveSettings(ctx context.Context, domain models.Domain, caisseType string) models.ProductSettings {
	f.t.Helper()

	now := time.Now().UTC()
	ps := models.ProductSettings{
		ID:          uuid.NewString(),
		Domain:      domain,
		CaisseType:  caisseType,
		Version:     1,
		IsActive:    true,
		Params:      map[string]any{"rate": 0.05},
		EffectiveAt: now,
		CreatedAt:   now,
	}
	if _, err := f.db.Collection("product_settings").InsertOne(ctx, ps); err != nil {
		f.t.Fatalf("failed to create test settings: %v", err)
	}
	return ps
}

// InsertDemand writes d as-is, bypassing id generation. Use it to control
// created_at ordering in list tests.
func (f *Fixtures) InsertDemand(ctx context.Context, d models.Demand) models.Demand {
	f.t.Helper()

	if _, err := f.db.Collection(d.Domain.Collection()).InsertOne(ctx, d); err != nil {
		f.t.Fatalf("failed to insert test demand: %v", err)
	}
	return d
}

// NewMember returns an unsaved member with a random id.
func NewMember(lastName, firstName, matricule string) models.Member {
	return models.Member{
		ID:        uuid.NewString(),
		LastName:  lastName,
		FirstName: firstName,
		Matricule: matricule,
		Email:     firstName + "@example.test",
		CreatedAt: time.Now().UTC(),
	}
}

// NewAdmin returns an unsaved active administrator with a random id.
func NewAdmin(lastName, firstName string) models.Admin {
	return models.Admin{
		ID:        uuid.NewString(),
		LastName:  lastName,
		FirstName: firstName,
		Role:      "admin",
		Status:    "active",
	}
}
