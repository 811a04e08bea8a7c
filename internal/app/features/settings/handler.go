// internal/app/features/settings/handler.go
package settings

import (
	"context"

	uierrors "github.com/GlennEriss/kara-client-front-sub014/internal/app/features/errors"
	"github.com/GlennEriss/kara-client-front-sub014/internal/domain/models"
	"go.uber.org/zap"
)

// Store is the product settings collection.
type Store interface {
	GetActive(ctx context.Context, domain models.Domain, caisseType string) (*models.ProductSettings, error)
	Save(ctx context.Context, ps models.ProductSettings) (models.ProductSettings, error)
	Activate(ctx context.Context, id, actorID string) error
}

// Handler owns the product settings API. Contract creation reads the
// active version, so a demand cannot be converted until one exists.
type Handler struct {
	Settings Store
	Log      *zap.Logger
	ErrLog   *uierrors.ErrorLogger
}

// NewHandler constructs a Handler bound to the settings store and logger.
func NewHandler(store Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Settings: store,
		Log:      logger,
		ErrLog:   errLog,
	}
}
