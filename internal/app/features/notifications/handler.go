// internal/app/features/notifications/handler.go
package notifications

import (
	"context"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// Lister reads delivered notifications.
type Lister interface {
	ListForAudience(ctx context.Context, audience string, limit int64) ([]models.Notification, error)
}

// Handler serves the back-office notification inbox.
type Handler struct {
	Notifications Lister
	Log           *zap.Logger
	ErrLog        *uierrors.ErrorLogger
}

// NewHandler constructs a notifications Handler.
func NewHandler(lister Lister, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Notifications: lister,
		Log:           logger,
		ErrLog:        errLog,
	}
}
