// internal/app/store/settings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/app/system/txn"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned by Activate when the settings id is unknown.
var ErrNotFound = errors.New("product settings not found")

// Store provides access to the product_settings collection.
// Each (domain, caisse_type) pair has a history of versions of which at most
// one is active.
type Store struct {
	c *mongo.Collection
}

// New creates a new settings store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("product_settings")}
}

// GetActive returns the newest active settings for domain and caisseType.
// When the caisse type has no active version, the domain-wide active
// version (empty caisse type) is used. Returns (nil, nil) if neither exists.
func (s *Store) GetActive(ctx context.Context, domain models.Domain, caisseType string) (*models.ProductSettings, error) {
	ps, err := s.findActive(ctx, domain, caisseType)
	if err != nil || ps != nil || caisseType == "" {
		return ps, err
	}
	return s.findActive(ctx, domain, "")
}

func (s *Store) findActive(ctx context.Context, domain models.Domain, caisseType string) (*models.ProductSettings, error) {
	filter := bson.M{"domain": domain, "caisse_type": caisseValue(caisseType), "is_active": true}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "effective_at", Value: -1},
		{Key: "version", Value: -1},
	})

	var ps models.ProductSettings
	if err := s.c.FindOne(ctx, filter, opts).Decode(&ps); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &ps, nil
}

// Save inserts a new, inactive settings version and returns it. The version
// number follows the highest existing one for the same pair.
func (s *Store) Save(ctx context.Context, ps models.ProductSettings) (models.ProductSettings, error) {
	var last models.ProductSettings
	err := s.c.FindOne(ctx,
		bson.M{"domain": ps.Domain, "caisse_type": caisseValue(ps.CaisseType)},
		options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}}),
	).Decode(&last)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return models.ProductSettings{}, err
	}

	now := time.Now().UTC()
	ps.ID = uuid.NewString()
	ps.Version = last.Version + 1
	ps.IsActive = false
	ps.CreatedAt = now
	if ps.EffectiveAt.IsZero() {
		ps.EffectiveAt = now
	}

	if _, err := s.c.InsertOne(ctx, ps); err != nil {
		return models.ProductSettings{}, err
	}
	return ps, nil
}

// Activate makes id the only active version of its (domain, caisse_type).
// Both writes share a transaction where the deployment supports one.
func (s *Store) Activate(ctx context.Context, id, actorID string) error {
	var ps models.ProductSettings
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ps); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}

	now := time.Now().UTC()
	client := s.c.Database().Client()
	return txn.Run(ctx, client, nil, func(ctx context.Context) error {
		_, err := s.c.UpdateMany(ctx,
			bson.M{"domain": ps.Domain, "caisse_type": caisseValue(ps.CaisseType), "_id": bson.M{"$ne": id}, "is_active": true},
			bson.M{"$set": bson.M{"is_active": false, "updated_at": now, "updated_by": actorID}},
		)
		if err != nil {
			return err
		}
		_, err = s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
			"is_active":  true,
			"updated_at": now,
			"updated_by": actorID,
		}})
		return err
	})
}

// caisseValue matches a stored caisse type. The domain-wide version has no
// caisse_type field at all.
func caisseValue(caisseType string) any {
	if caisseType == "" {
		return bson.M{"$in": []any{"", nil}}
	}
	return caisseType
}
