// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes that EnsureAll tolerates.
const (
	codeNamespaceExists = 48
	codeCommandNotFound = 59
	codeNotImplemented  = 115
)

// EnsureAll creates every collection the service writes and attaches a
// $jsonSchema validator where one is defined. Servers without collMod
// support (some DocumentDB versions) keep the collections unvalidated.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing := map[string]bool{}
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		zap.L().Warn("list collections failed; creating blindly", zap.Error(err))
	}
	for _, n := range names {
		existing[n] = true
	}

	var problems []string
	ensure := func(coll string, schema bson.M) {
		if !existing[coll] {
			err := db.CreateCollection(ctx, coll)
			switch {
			case err == nil:
				zap.L().Info("collection created", zap.String("collection", coll))
			case commandCode(err) != codeNamespaceExists:
				problems = append(problems, coll+": "+err.Error())
				return
			}
		}
		if schema == nil {
			return
		}
		switch err := setValidator(ctx, db, coll, schema); {
		case err == nil:
			zap.L().Debug("validator ensured", zap.String("collection", coll))
		case unsupported(err):
			zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
		default:
			problems = append(problems, coll+": "+err.Error())
		}
	}

	for _, d := range models.Domains {
		ensure(d.Collection(), demandsSchema(d))
	}
	ensure("contracts", contractsSchema())
	ensure("product_settings", productSettingsSchema())
	ensure("notification_outbox", outboxSchema())

	// Append-only sinks; no validator.
	ensure("notifications", nil)
	ensure("audit_events", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// setValidator replaces the validator of coll. Moderate validation leaves
// existing documents that already fail the schema updatable.
func setValidator(ctx context.Context, db *mongo.Database, coll string, schema bson.M) error {
	return db.RunCommand(ctx, bson.D{
		{Key: "collMod", Value: coll},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}).Err()
}

func commandCode(err error) int32 {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

func unsupported(err error) bool {
	switch commandCode(err) {
	case codeCommandNotFound, codeNotImplemented:
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such command") ||
		strings.Contains(msg, "not implemented") ||
		strings.Contains(msg, "not supported")
}

func statusEnum(statuses ...models.DemandStatus) bson.A {
	out := bson.A{}
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// demandsSchema also enforces that contract_id is present exactly when the
// demand is CONVERTED.
func demandsSchema(d models.Domain) bson.M {
	nonEmpty := bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	date := bson.M{"bsonType": "date"}
	optionalDate := bson.M{"bsonType": bson.A{"date", "null"}}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{
				"domain", "status", "member_id",
				"search_lastname_first", "search_firstname_first", "search_matricule_first",
				"created_at", "updated_at",
			},
			"properties": bson.M{
				"domain":                 bson.M{"enum": bson.A{string(d)}},
				"status":                 bson.M{"enum": statusEnum(models.DemandStatuses...)},
				"member_id":              nonEmpty,
				"contract_id":            nonEmpty,
				"search_lastname_first":  bson.M{"bsonType": "string"},
				"search_firstname_first": bson.M{"bsonType": "string"},
				"search_matricule_first": bson.M{"bsonType": "string"},
				"decision_made_at":       optionalDate,
				"converted_at":           optionalDate,
				"reopened_at":            optionalDate,
				"conversion_started_at":  optionalDate,
				"history":                bson.M{"bsonType": "array"},
				"created_at":             date,
				"updated_at":             date,
			},
			"oneOf": bson.A{
				bson.M{
					"properties": bson.M{"status": bson.M{"enum": statusEnum(models.DemandConverted)}},
					"required":   bson.A{"contract_id"},
				},
				bson.M{
					"properties": bson.M{"status": bson.M{"enum": statusEnum(
						models.DemandPending, models.DemandApproved, models.DemandRejected)}},
					"not": bson.M{"required": bson.A{"contract_id"}},
				},
			},
		},
	}
}

func contractsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"domain", "demand_id", "member_id", "status", "created_at"},
			"properties": bson.M{
				"domain":          bson.M{"bsonType": "string", "minLength": 1},
				"demand_id":       bson.M{"bsonType": "string", "minLength": 1},
				"member_id":       bson.M{"bsonType": "string", "minLength": 1},
				"status":          bson.M{"bsonType": "string"},
				"duration_months": bson.M{"bsonType": bson.A{"int", "long"}},
				"created_at":      bson.M{"bsonType": "date"},
			},
		},
	}
}

func productSettingsSchema() bson.M {
	domains := bson.A{}
	for _, d := range models.Domains {
		domains = append(domains, string(d))
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"domain", "version", "is_active"},
			"properties": bson.M{
				"domain":      bson.M{"enum": domains},
				"caisse_type": bson.M{"bsonType": "string"},
				"version":     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"is_active":   bson.M{"bsonType": "bool"},
				"params":      bson.M{"bsonType": "object"},
			},
		},
	}
}

func outboxSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"notification", "status", "attempts", "next_attempt_at"},
			"properties": bson.M{
				"notification":    bson.M{"bsonType": "object", "required": bson.A{"type", "audience"}},
				"status":          bson.M{"enum": bson.A{models.OutboxPending, models.OutboxDelivered, models.OutboxDead}},
				"attempts":        bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"next_attempt_at": bson.M{"bsonType": "date"},
			},
		},
	}
}
