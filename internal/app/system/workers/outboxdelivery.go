// internal/app/system/workers/outboxdelivery.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// Queue is the outbox as seen by the delivery worker.
type Queue interface {
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*models.OutboxEntry, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, cause string, next time.Time, dead bool) error
}

// Sink receives delivered notifications.
type Sink interface {
	Deliver(ctx context.Context, n models.Notification) error
}

// Retry schedule for failed deliveries.
const (
	BackoffBase = 10 * time.Second
	BackoffCap  = 30 * time.Minute

	// DefaultBatchSize bounds how many entries one tick delivers so Stop is
	// not held up by a large backlog.
	DefaultBatchSize = 100
	claimLease = time.Minute
)

// Backoff returns the delay before retry number attempts (1-based):
// BackoffBase doubled per previous attempt, capped at BackoffCap.
func Backoff(attempts int) time.Duration {
	d := BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= BackoffCap {
			return BackoffCap
		}
	}
	return d
}

// OutboxDelivery is a background worker that moves notifications from the
// outbox to the sink, retrying failures with exponential backoff.
type OutboxDelivery struct {
	queue       Queue
	sink        Sink
	log         *zap.Logger
	interval    time.Duration
	maxAttempts int
	batchSize   int
	now         func() time.Time
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// NewOutboxDelivery creates a delivery worker.
//
// Parameters:
//   - queue: the notification outbox
//   - sink: where notifications are delivered
//   - logger: zap logger for logging
//   - interval: how often to poll the outbox (e.g., 5 seconds)
//   - maxAttempts: failed attempts after which an entry is marked dead
func NewOutboxDelivery(queue Queue, sink Sink, logger *zap.Logger, interval time.Duration, maxAttempts int) *OutboxDelivery {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &OutboxDelivery{
		queue:       queue,
		sink:        sink,
		log:         logger,
		interval:    interval,
		maxAttempts: maxAttempts,
		batchSize:   DefaultBatchSize,
		now:         func() time.Time { return time.Now().UTC() },
		stopCh:      make(chan struct{}),
	}
}

// SetBatchSize changes the per-tick bound. Values below 1 are ignored.
// Call before Start.
func (w *OutboxDelivery) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// Start begins the background delivery loop.
func (w *OutboxDelivery) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("outbox delivery worker started",
		zap.Duration("interval", w.interval),
		zap.Int("max_attempts", w.maxAttempts))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *OutboxDelivery) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("outbox delivery worker stopped")
}

func (w *OutboxDelivery) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			w.Drain(ctx)
			cancel()
		}
	}
}

// Drain delivers due entries until none is left, the per-tick bound is
// reached or ctx is done. It returns the number delivered.
func (w *OutboxDelivery) Drain(ctx context.Context) int {
	delivered := 0
	for i := 0; i < w.batchSize && ctx.Err() == nil; i++ {
		e, err := w.queue.ClaimDue(ctx, w.now(), claimLease)
		if err != nil {
			w.log.Error("failed to claim outbox entry", zap.Error(err))
			return delivered
		}
		if e == nil {
			break
		}
		if w.deliver(ctx, e) {
			delivered++
		}
	}
	if delivered > 0 {
		w.log.Debug("delivered notifications", zap.Int("count", delivered))
	}
	return delivered
}

func (w *OutboxDelivery) deliver(ctx context.Context, e *models.OutboxEntry) bool {
	err := w.sink.Deliver(ctx, e.Notification)
	if err == nil {
		if err := w.queue.MarkDelivered(ctx, e.ID, w.now()); err != nil {
			w.log.Error("failed to mark notification delivered",
				zap.String("outbox_id", e.ID), zap.Error(err))
		}
		return true
	}

	attempts := e.Attempts + 1
	dead := attempts >= w.maxAttempts
	next := w.now().Add(Backoff(attempts))
	if markErr := w.queue.MarkFailed(ctx, e.ID, attempts, err.Error(), next, dead); markErr != nil {
		w.log.Error("failed to record delivery failure",
			zap.String("outbox_id", e.ID), zap.Error(markErr))
	}

	fields := []zap.Field{
		zap.String("outbox_id", e.ID),
		zap.String("type", e.Notification.Type),
		zap.Int("attempts", attempts),
		zap.Error(err),
	}
	if dead {
		w.log.Error("notification delivery abandoned", fields...)
	} else {
		w.log.Warn("notification delivery failed; will retry",
			append(fields, zap.Time("next_attempt_at", next))...)
	}
	return false
}
