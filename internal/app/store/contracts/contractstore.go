// internal/app/store/contracts/contractstore.go
package contractstore

import (
	"context"
	"errors"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// StatusActive is the status of a freshly created contract.
const StatusActive = "ACTIVE"

// ErrMissingDemand is returned when terms do not reference a demand.
var ErrMissingDemand = errors.New("contract terms must reference a demand")

// Store is the default contract-creation collaborator. It writes one
// contract document per demand into the contracts collection.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("contracts")}
}

// CreateContract inserts a contract for terms and returns its id. The
// contracts collection has a unique index on demand_id, so retrying for a
// demand that already has a contract returns the existing id instead of
// creating a second one.
func (s *Store) CreateContract(ctx context.Context, terms models.ContractTerms) (string, error) {
	if terms.DemandID == "" {
		return "", ErrMissingDemand
	}

	c := models.Contract{
		ID:            uuid.NewString(),
		ContractTerms: terms,
		Status:        StatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return s.idForDemand(ctx, terms.Domain, terms.DemandID)
		}
		return "", err
	}
	return c.ID, nil
}

// GetByID loads a contract. It returns (nil, nil) when the contract does
// not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Contract, error) {
	var c models.Contract
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) idForDemand(ctx context.Context, domain models.Domain, demandID string) (string, error) {
	var c models.Contract
	if err := s.c.FindOne(ctx, bson.M{"domain": domain, "demand_id": demandID}).Decode(&c); err != nil {
		return "", err
	}
	return c.ID, nil
}
