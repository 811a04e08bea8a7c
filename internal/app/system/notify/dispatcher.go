// internal/app/system/notify/dispatcher.go
package notify

import (
	"context"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// Enqueuer persists notifications for later delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, n models.Notification) (models.OutboxEntry, error)
}

// Dispatcher publishes workflow notifications onto the outbox. Delivery
// happens asynchronously in workers.OutboxDelivery.
type Dispatcher struct {
	outbox Enqueuer
	log    *zap.Logger
}

// New creates a Dispatcher writing to outbox.
func New(outbox Enqueuer, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{outbox: outbox, log: logger}
}

// Publish enqueues n. A failure is logged and dropped; the transition that
// produced n has already been committed.
func (d *Dispatcher) Publish(ctx context.Context, n models.Notification) {
	if d == nil || d.outbox == nil {
		return
	}
	e, err := d.outbox.Enqueue(ctx, n)
	if err != nil {
		d.log.Warn("failed to enqueue notification",
			zap.String("type", n.Type),
			zap.String("audience", n.Audience),
			zap.String("entity_id", n.EntityID),
			zap.Error(err))
		return
	}
	d.log.Debug("notification enqueued",
		zap.String("outbox_id", e.ID),
		zap.String("type", n.Type),
		zap.String("audience", n.Audience))
}
