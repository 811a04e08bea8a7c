package indexes_test

import (
	"context"
	"testing"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/indexes"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/GlennEriss/kara-client-front-sub014/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, c *mongo.Collection) map[string]bool {
	t.Helper()

	cur, err := c.Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes failed: %v", err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesDemandIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	for _, d := range models.Domains {
		names := indexNames(t, ctx, db.Collection(d.Collection()))
		for _, suffix := range []string{
			"createdat_id",
			"status_createdat_id",
			"member_createdat_id",
			"decisionby_createdat_id",
			"uniq_contract",
			"search_lastname_first",
			"search_firstname_first",
			"search_matricule_first",
		} {
			if name := indexes.IndexName(d, suffix); !names[name] {
				t.Errorf("expected index %q on %s", name, d.Collection())
			}
		}
	}
}

func TestEnsureAll_CreatesSupportingIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	tests := []struct {
		collection string
		index      string
	}{
		{"contracts", "uniq_contracts_domain_demand"},
		{"product_settings", "idx_settings_domain_caisse_active_effective"},
		{"notification_outbox", "idx_outbox_status_nextattempt"},
		{"notifications", "idx_notifications_audience_read_createdat"},
		{"audit_events", "idx_audit_domain_demand_timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.collection, func(t *testing.T) {
			if !indexNames(t, ctx, db.Collection(tt.collection))[tt.index] {
				t.Errorf("expected index %q on %s", tt.index, tt.collection)
			}
		})
	}
}

func TestEnsureAll_ContractIDUniqueOnlyWhenSet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	c := db.Collection(models.DomainEmergency.Collection())

	// Many demands without contract are fine.
	for _, id := range []string{"a", "b"} {
		if _, err := c.InsertOne(ctx, bson.M{"_id": id, "status": "PENDING"}); err != nil {
			t.Fatalf("insert %s failed: %v", id, err)
		}
	}

	if _, err := c.InsertOne(ctx, bson.M{"_id": "c", "status": "CONVERTED", "contract_id": "k-1"}); err != nil {
		t.Fatalf("insert c failed: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{"_id": "d", "status": "CONVERTED", "contract_id": "k-1"}); err == nil {
		t.Error("expected duplicate key error for a second demand on the same contract")
	}
}

func TestEnsureAll_RenamesMismatchedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("notification_outbox")
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "next_attempt_at", Value: 1}},
		Options: options.Index().SetName("legacy_outbox_due"),
	})
	if err != nil {
		t.Fatalf("create legacy index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, ctx, c)
	if names["legacy_outbox_due"] {
		t.Error("legacy index should have been dropped")
	}
	if !names["idx_outbox_status_nextattempt"] {
		t.Error("expected idx_outbox_status_nextattempt after reconcile")
	}
}
