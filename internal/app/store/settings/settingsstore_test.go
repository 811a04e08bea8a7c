package settingsstore_test

import (
	"testing"

	settingsstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/settings"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/GlennEriss/kara-client-front-sub014/internal/testutil"
)

func TestStore_GetActive_None(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ps, err := store.GetActive(ctx, models.DomainSpecialSavings, "STANDARD")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if ps != nil {
		t.Errorf("expected nil settings, got %+v", ps)
	}
}

func TestStore_GetActive_CaisseTypeThenDomainWide(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	wide := fx.CreateActiveSettings(ctx, models.DomainSpecialSavings, "")
	specific := fx.CreateActiveSettings(ctx, models.DomainSpecialSavings, "JOURNALIERE")

	got, err := store.GetActive(ctx, models.DomainSpecialSavings, "JOURNALIERE")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if got == nil || got.ID != specific.ID {
		t.Errorf("GetActive(JOURNALIERE) = %+v, want %s", got, specific.ID)
	}

	got, err = store.GetActive(ctx, models.DomainSpecialSavings, "LIBRE")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if got == nil || got.ID != wide.ID {
		t.Errorf("GetActive(LIBRE) = %+v, want domain-wide %s", got, wide.ID)
	}
}

func TestStore_SaveAndActivate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := settingsstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	v1, err := store.Save(ctx, models.ProductSettings{Domain: models.DomainPlacement, CaisseType: "STANDARD"})
	if err != nil {
		t.Fatalf("Save v1 failed: %v", err)
	}
	v2, err := store.Save(ctx, models.ProductSettings{Domain: models.DomainPlacement, CaisseType: "STANDARD"})
	if err != nil {
		t.Fatalf("Save v2 failed: %v", err)
	}
	if v1.Version != 1 || v2.Version != 2 {
		t.Errorf("versions = %d, %d; want 1, 2", v1.Version, v2.Version)
	}

	if got, _ := store.GetActive(ctx, models.DomainPlacement, "STANDARD"); got != nil {
		t.Error("saved versions must start inactive")
	}

	if err := store.Activate(ctx, v1.ID, "a-1"); err != nil {
		t.Fatalf("Activate v1 failed: %v", err)
	}
	if err := store.Activate(ctx, v2.ID, "a-1"); err != nil {
		t.Fatalf("Activate v2 failed: %v", err)
	}

	got, err := store.GetActive(ctx, models.DomainPlacement, "STANDARD")
	if err != nil {
		t.Fatalf("GetActive failed: %v", err)
	}
	if got == nil || got.ID != v2.ID {
		t.Errorf("active = %+v, want v2", got)
	}

	if err := store.Activate(ctx, "missing", "a-1"); err != settingsstore.ErrNotFound {
		t.Errorf("Activate(missing) = %v, want ErrNotFound", err)
	}
}
