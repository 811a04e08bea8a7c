// internal/app/store/demands/demandstore.go
package demandstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no demand has the requested id.
	ErrNotFound = errors.New("demand not found")
	// ErrStatusChanged is returned when a conditional write finds the demand
	// in a different state than the caller expected.
	ErrStatusChanged = errors.New("demand was modified concurrently")
	// ErrDuplicateID is returned when the generated id is already taken.
	ErrDuplicateID = errors.New("a demand with this id already exists")
)

// Store provides access to one domain's demand collection.
type Store struct {
	c      *mongo.Collection
	domain models.Domain
	now    func() time.Time
}

// New creates a demand store for domain.
func New(db *mongo.Database, domain models.Domain) *Store {
	return &Store{
		c:      db.Collection(domain.Collection()),
		domain: domain,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Domain returns the domain whose collection this store reads.
func (s *Store) Domain() models.Domain { return s.domain }

// Create assigns an id, stamps timestamps and inserts d. matricule is only
// used to build the readable id of the special-savings domain.
func (s *Store) Create(ctx context.Context, d models.Demand, matricule string) (models.Demand, error) {
	now := s.now()
	d.ID = NewID(s.domain, matricule, now)
	d.Domain = s.domain
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.UpdatedBy == "" {
		d.UpdatedBy = d.CreatedBy
	}

	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Demand{}, ErrDuplicateID
		}
		return models.Demand{}, err
	}
	return d, nil
}

// GetByID loads a demand by id.
func (s *Store) GetByID(ctx context.Context, id string) (models.Demand, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByContractID loads the demand that produced contractID.
func (s *Store) GetByContractID(ctx context.Context, contractID string) (models.Demand, error) {
	return s.findOne(ctx, bson.M{"contract_id": contractID})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Demand, error) {
	var d models.Demand
	if err := s.c.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Demand{}, ErrNotFound
		}
		return models.Demand{}, err
	}
	return d, nil
}

// UpdateDemand applies u unconditionally and returns the updated demand.
func (s *Store) UpdateDemand(ctx context.Context, id string, u Update) (models.Demand, error) {
	return s.findOneAndUpdate(ctx, bson.M{"_id": id}, u)
}

// UpdateDemandStatus applies u only if the demand is still in expected.
// A demand that exists in another state yields ErrStatusChanged.
func (s *Store) UpdateDemandStatus(ctx context.Context, id string, expected models.DemandStatus, u Update) (models.Demand, error) {
	return s.findOneAndUpdate(ctx, bson.M{"_id": id, "status": expected}, u)
}

// ClaimConversion marks an APPROVED demand without contract as being
// converted by actorID. The claim succeeds when no claim exists or the
// existing one started before staleBefore.
func (s *Store) ClaimConversion(ctx context.Context, id, actorID string, staleBefore time.Time) (models.Demand, error) {
	filter := bson.M{
		"_id":         id,
		"status":      models.DemandApproved,
		"contract_id": bson.M{"$exists": false},
		"$or": []bson.M{
			{"conversion_started_at": nil},
			{"conversion_started_at": bson.M{"$lt": staleBefore}},
		},
	}
	return s.findOneAndUpdate(ctx, filter, Update{
		Set:       map[string]any{"conversion_started_at": s.now()},
		UpdatedBy: actorID,
	})
}

// ListStaleConversions returns APPROVED demands without contract whose
// conversion claim started before staleBefore, oldest first.
func (s *Store) ListStaleConversions(ctx context.Context, staleBefore time.Time, limit int64) ([]models.Demand, error) {
	filter := bson.M{
		"status":                models.DemandApproved,
		"contract_id":           bson.M{"$exists": false},
		"conversion_started_at": bson.M{"$lt": staleBefore},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "conversion_started_at", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Demand
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a demand that has not produced a contract and has no
// conversion in flight. A null filter matches a missing or cleared claim.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"_id":                   id,
		"contract_id":           bson.M{"$exists": false},
		"conversion_started_at": nil,
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 1 {
		return nil
	}
	return s.missOrChanged(ctx, id)
}

func (s *Store) findOneAndUpdate(ctx context.Context, filter bson.M, u Update) (models.Demand, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d models.Demand
	err := s.c.FindOneAndUpdate(ctx, filter, u.document(s.now()), opts).Decode(&d)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Demand{}, fmt.Errorf("update demand %v: %w", filter["_id"], err)
	}
	id, _ := filter["_id"].(string)
	return models.Demand{}, s.missOrChanged(ctx, id)
}

// missOrChanged tells a missing demand apart from one whose guard failed.
func (s *Store) missOrChanged(ctx context.Context, id string) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrStatusChanged
}
