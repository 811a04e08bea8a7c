// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/searchtext"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EnsureAll creates the indexes behind demand listing, search and the
// supporting collections. It is safe to call on every start. Failures are
// collected per collection and returned together.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, d := range models.Domains {
		if err := ensureDemands(ctx, db, d); err != nil {
			problems = append(problems, d.Collection()+": "+err.Error())
		}
	}
	if err := ensureContracts(ctx, db); err != nil {
		problems = append(problems, "contracts: "+err.Error())
	}
	if err := ensureProductSettings(ctx, db); err != nil {
		problems = append(problems, "product_settings: "+err.Error())
	}
	if err := ensureOutbox(ctx, db); err != nil {
		problems = append(problems, "notification_outbox: "+err.Error())
	}
	if err := ensureNotifications(ctx, db); err != nil {
		problems = append(problems, "notifications: "+err.Error())
	}
	if err := ensureAuditEvents(ctx, db); err != nil {
		problems = append(problems, "audit_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// existingIndex is the part of a listIndexes entry compared against a
// desired model.
type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ",")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) ([]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var out []existingIndex
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ensureIndexSet reconciles the indexes of coll with want. An index is
// matched by key pattern; a match with another name or uniqueness is
// dropped and rebuilt. An index holding a wanted name over other keys is
// dropped first so the create does not conflict.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, want []mongo.IndexModel) error {
	have, err := listIndexes(ctx, coll)
	if err != nil {
		return fmt.Errorf("list indexes: %w", err)
	}
	bySig := make(map[string]existingIndex, len(have))
	byName := make(map[string]existingIndex, len(have))
	for _, ex := range have {
		bySig[keySig(ex.Key)] = ex
		byName[ex.Name] = ex
	}

	log := zap.L().With(zap.String("collection", coll.Name()))
	var errs []string

	for _, m := range want {
		var name string
		var unique bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique != nil && *m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		var stale []string
		if ex, ok := bySig[sig]; ok {
			if ex.Name == name && ex.Unique == unique {
				log.Debug("index up to date", zap.String("name", name))
				continue
			}
			stale = append(stale, ex.Name)
		}
		if ex, ok := byName[name]; ok && name != "" && keySig(ex.Key) != sig {
			stale = append(stale, ex.Name)
		}

		dropped := true
		for _, old := range stale {
			if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop %s: %v", coll.Name(), name, old, err))
				dropped = false
				break
			}
			log.Info("dropped outdated index", zap.String("name", old))
		}
		if !dropped {
			continue
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			log.Warn("index create failed",
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			errs = append(errs, createFailure(coll.Name(), name, unique, err))
			continue
		}
		log.Info("index created",
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// createFailure describes a failed CreateOne. Unique indexes that cannot be
// built because of existing duplicates get a finder query for the operator.
func createFailure(coll, name string, unique bool, err error) string {
	if !unique || !mongo.IsDuplicateKeyError(err) {
		return fmt.Sprintf("%s(%s): %v", coll, name, err)
	}
	hint := ""
	if coll == "contracts" {
		hint = "; find them with db.contracts.aggregate([{ $group: { _id: { d: \"$domain\", id: \"$demand_id\" }, n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])"
	}
	return fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s", coll, name, hint)
}

// IndexName returns the name of a demand index for domain d.
func IndexName(d models.Domain, suffix string) string {
	return "idx_" + string(d) + "_" + suffix
}

func ensureDemands(ctx context.Context, db *mongo.Database, d models.Domain) error {
	c := db.Collection(d.Collection())
	newest := func(prefix ...bson.E) bson.D {
		keys := bson.D(prefix)
		return append(keys, bson.E{Key: "created_at", Value: -1}, bson.E{Key: "_id", Value: -1})
	}

	set := []mongo.IndexModel{
		// Unfiltered list: newest first with _id tiebreak (keyset cursor)
		{
			Keys:    newest(),
			Options: options.Index().SetName(IndexName(d, "createdat_id")),
		},
		// Status tabs and per-status counts
		{
			Keys:    newest(bson.E{Key: "status", Value: 1}),
			Options: options.Index().SetName(IndexName(d, "status_createdat_id")),
		},
		// Status + sub-category filters used together on admin screens
		{
			Keys:    newest(bson.E{Key: "status", Value: 1}, bson.E{Key: "caisse_type", Value: 1}),
			Options: options.Index().SetName(IndexName(d, "status_caisse_createdat_id")),
		},
		{
			Keys:    newest(bson.E{Key: "contract_type", Value: 1}),
			Options: options.Index().SetName(IndexName(d, "contracttype_createdat_id")),
		},
		// A member's demands
		{
			Keys:    newest(bson.E{Key: "member_id", Value: 1}),
			Options: options.Index().SetName(IndexName(d, "member_createdat_id")),
		},
		{
			Keys:    newest(bson.E{Key: "group_id", Value: 1}),
			Options: options.Index().SetName(IndexName(d, "group_createdat_id")),
		},
		{
			Keys:    newest(bson.E{Key: "decision_made_by", Value: 1}),
			Options: options.Index().SetName(IndexName(d, "decisionby_createdat_id")),
		},
		// Reverse navigation from a contract; at most one demand per contract
		{
			Keys: bson.D{{Key: "contract_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"contract_id": bson.M{"$type": "string"}}).
				SetName(IndexName(d, "uniq_contract")),
		},
		// Recovery job: stale conversion claims
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "conversion_started_at", Value: 1}},
			Options: options.Index().SetName(IndexName(d, "status_conversionstartedat")),
		},
	}

	// Prefix search: one range index per searchable field
	for _, field := range searchtext.AllFields {
		set = append(set, mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName(IndexName(d, field)),
		})
	}

	return ensureIndexSet(ctx, c, set)
}

func ensureContracts(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("contracts")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One contract per demand; makes contract creation safe to retry
		{
			Keys:    bson.D{{Key: "domain", Value: 1}, {Key: "demand_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_contracts_domain_demand"),
		},
		{
			Keys:    bson.D{{Key: "member_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_contracts_member_createdat"),
		},
	})
}

func ensureProductSettings(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("product_settings")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "domain", Value: 1},
				{Key: "caisse_type", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "effective_at", Value: -1},
			},
			Options: options.Index().SetName("idx_settings_domain_caisse_active_effective"),
		},
		{
			Keys:    bson.D{{Key: "domain", Value: 1}, {Key: "caisse_type", Value: 1}, {Key: "version", Value: -1}},
			Options: options.Index().SetName("idx_settings_domain_caisse_version"),
		},
	})
}

func ensureOutbox(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("notification_outbox")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Delivery worker: due pending entries, oldest first
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "next_attempt_at", Value: 1}},
			Options: options.Index().SetName("idx_outbox_status_nextattempt"),
		},
	})
}

func ensureNotifications(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("notifications")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "audience", Value: 1}, {Key: "read", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_notifications_audience_read_createdat"),
		},
		{
			Keys:    bson.D{{Key: "module", Value: 1}, {Key: "entity_id", Value: 1}},
			Options: options.Index().SetName("idx_notifications_module_entity"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		// A demand's audit trail
		{
			Keys: bson.D{
				{Key: "domain", Value: 1},
				{Key: "demand_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_domain_demand_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}
