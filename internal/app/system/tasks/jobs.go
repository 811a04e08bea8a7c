// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// StaleRecoverer finishes conversions left half-done.
type StaleRecoverer interface {
	Domain() models.Domain
	RecoverStale(ctx context.Context, limit int64) (int, error)
}

// DeadLetterCounter reports outbox entries by status.
type DeadLetterCounter interface {
	CountByStatus(ctx context.Context, status string) (int64, error)
}

// recoveryBatch caps how many demands one recovery run converts.
const recoveryBatch = 50

// ConversionRecoveryJob creates a job that completes demand conversions
// whose claim went stale, one service per domain. A failing domain does not
// stop the others.
func ConversionRecoveryJob(services []StaleRecoverer, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "conversion-recovery",
		Interval: interval,
		Run: func(ctx context.Context) error {
			for _, svc := range services {
				n, err := svc.RecoverStale(ctx, recoveryBatch)
				if err != nil {
					logger.Error("conversion recovery failed",
						zap.String("domain", string(svc.Domain())),
						zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Info("recovered stale conversions",
						zap.String("domain", string(svc.Domain())),
						zap.Int("count", n))
				}
			}
			return ctx.Err()
		},
	}
}

// DeadLetterReportJob creates a job that warns while notifications sit in
// the outbox as dead after exhausting their retries.
func DeadLetterReportJob(outbox DeadLetterCounter, logger *zap.Logger) Job {
	return Job{
		Name:     "outbox-dead-letter-report",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			n, err := outbox.CountByStatus(ctx, models.OutboxDead)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Warn("undeliverable notifications in outbox", zap.Int64("count", n))
			}
			return nil
		},
	}
}
