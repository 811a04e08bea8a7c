// internal/app/store/notifications/notificationstore.go
package notificationstore

import (
	"context"
	"errors"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Outbox stores notifications waiting for delivery in notification_outbox.
type Outbox struct {
	c *mongo.Collection
}

// NewOutbox creates an outbox store.
func NewOutbox(db *mongo.Database) *Outbox {
	return &Outbox{c: db.Collection("notification_outbox")}
}

// Enqueue stores n as a pending entry due immediately.
func (o *Outbox) Enqueue(ctx context.Context, n models.Notification) (models.OutboxEntry, error) {
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	e := models.OutboxEntry{
		ID:            uuid.NewString(),
		Notification:  n,
		Status:        models.OutboxPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
	e.Notification.ID = e.ID
	if _, err := o.c.InsertOne(ctx, e); err != nil {
		return models.OutboxEntry{}, err
	}
	return e, nil
}

// ClaimDue locks the oldest pending entry that is due at now and not
// locked by another worker. The lock expires after lease so a crashed
// worker does not strand the entry. Returns (nil, nil) when nothing is due.
func (o *Outbox) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*models.OutboxEntry, error) {
	filter := bson.M{
		"status":          models.OutboxPending,
		"next_attempt_at": bson.M{"$lte": now},
		"$or": []bson.M{
			{"locked_until": nil},
			{"locked_until": bson.M{"$lt": now}},
		},
	}
	update := bson.M{"$set": bson.M{"locked_until": now.Add(lease)}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}}).
		SetReturnDocument(options.After)

	var e models.OutboxEntry
	if err := o.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// MarkDelivered records a successful delivery.
func (o *Outbox) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	_, err := o.c.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"status": models.OutboxDelivered, "delivered_at": at},
		"$unset": bson.M{"locked_until": ""},
	})
	return err
}

// MarkFailed records a failed attempt. The entry is retried at next unless
// dead is set.
func (o *Outbox) MarkFailed(ctx context.Context, id string, attempts int, cause string, next time.Time, dead bool) error {
	status := models.OutboxPending
	if dead {
		status = models.OutboxDead
	}
	_, err := o.c.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":          status,
			"attempts":        attempts,
			"last_error":      cause,
			"next_attempt_at": next,
		},
		"$unset": bson.M{"locked_until": ""},
	})
	return err
}

// CountByStatus returns the number of entries in status.
func (o *Outbox) CountByStatus(ctx context.Context, status string) (int64, error) {
	return o.c.CountDocuments(ctx, bson.M{"status": status})
}

// Sink is the default delivery target: the notifications collection read
// by the back-office and member portals.
type Sink struct {
	c *mongo.Collection
}

// NewSink creates a notification sink.
func NewSink(db *mongo.Database) *Sink {
	return &Sink{c: db.Collection("notifications")}
}

// Deliver writes n. Notifications carry their outbox id, so delivering the
// same entry twice leaves one document.
func (s *Sink) Deliver(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if _, err := s.c.InsertOne(ctx, n); err != nil {
		if wafflemongo.IsDup(err) {
			return nil
		}
		return err
	}
	return nil
}

// ListForAudience returns the newest notifications addressed to audience.
func (s *Sink) ListForAudience(ctx context.Context, audience string, limit int64) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"audience": audience}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
