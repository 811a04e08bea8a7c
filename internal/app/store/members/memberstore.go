// internal/app/store/members/memberstore.go
package memberstore

import (
	"context"
	"errors"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store reads member and administrator identities. Both collections are
// owned by the membership subsystem; this store never writes to them.
type Store struct {
	members *mongo.Collection
	admins  *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		members: db.Collection("members"),
		admins:  db.Collection("admins"),
	}
}

// GetMemberByID loads a member. It returns (nil, nil) when the member does
// not exist.
func (s *Store) GetMemberByID(ctx context.Context, id string) (*models.Member, error) {
	var m models.Member
	if err := s.members.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetAdminByID loads an administrator. It returns (nil, nil) when the
// administrator does not exist.
func (s *Store) GetAdminByID(ctx context.Context, id string) (*models.Admin, error) {
	var a models.Admin
	if err := s.admins.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}
