package contractstore_test

import (
	"testing"

	contractstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/contracts"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/indexes"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/GlennEriss/kara-client-front-sub014/internal/testutil"
)

func TestStore_CreateContract(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := contractstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	terms := models.ContractTerms{
		Domain:         models.DomainSpecialSavings,
		DemandID:       "d-1",
		MemberID:       "m-1",
		CaisseType:     "STANDARD",
		Amount:         150000,
		DurationMonths: 12,
		SettingsID:     "s-1",
		CreatedBy:      "a-1",
	}

	id, err := store.CreateContract(ctx, terms)
	if err != nil {
		t.Fatalf("CreateContract failed: %v", err)
	}

	c, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if c.Status != contractstore.StatusActive || c.Amount != 150000 || c.SettingsID != "s-1" {
		t.Errorf("stored contract = %+v", c)
	}

	again, err := store.CreateContract(ctx, terms)
	if err != nil {
		t.Fatalf("second CreateContract failed: %v", err)
	}
	if again != id {
		t.Errorf("retry returned %q, want existing %q", again, id)
	}

	missing, err := store.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestStore_CreateContract_MissingDemand(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := contractstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.CreateContract(ctx, models.ContractTerms{}); err != contractstore.ErrMissingDemand {
		t.Errorf("err = %v, want ErrMissingDemand", err)
	}
}
