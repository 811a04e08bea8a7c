package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/GlennEriss/kara-client-front-sub014/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated", errors.New("connection reset"), false},
		{"code 20", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"code 263", mongo.CommandError{Code: 263}, true},
		{"duplicate key code", mongo.CommandError{Code: 11000, Message: "transaction session"}, false},
		{"wrapped command error", errors.Join(errors.New("activate"), mongo.CommandError{Code: 51}), true},
		{"message with two keywords", errors.New("Session operations NOT SUPPORTED by this server"), true},
		{"message with one keyword", errors.New("transaction aborted"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// Run must apply the writes whether or not the test server is a replica set.
func TestRun_AppliesWrites(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("txn_probe")
	// Create the collection outside the transaction; older servers refuse to
	// create one inside.
	if _, err := coll.InsertOne(ctx, bson.M{"_id": "seed"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := Run(ctx, db.Client(), zap.NewNop(), func(ctx context.Context) error {
		if _, err := coll.InsertOne(ctx, bson.M{"_id": "a"}); err != nil {
			return err
		}
		_, err := coll.InsertOne(ctx, bson.M{"_id": "b"})
		return err
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	n, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("documents = %d, want 3", n)
	}
}

func TestRun_ReturnsCallbackError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	boom := errors.New("boom")
	err := Run(ctx, db.Client(), zap.NewNop(), func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want boom", err)
	}
}
