// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	"github.com/GlennEriss/kara-client-front-sub014/internal/app/store/audit"
	"go.uber.org/zap"
)

// EventQuerier reads the audit trail.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
	GetByDemand(ctx context.Context, domain, demandID string, limit int64) ([]audit.Event, error)
}

type Handler struct {
	Events EventQuerier
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs an Audit Log feature handler over the audit store.
func NewHandler(events EventQuerier, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Log:    logger,
		ErrLog: errLog,
	}
}
