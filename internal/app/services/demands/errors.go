package demandsvc

import (
	"errors"
	"fmt"

	demandstore "github.com/GlennEriss/kara-client-front-sub014/internal/app/store/demands"
)

// Error kinds returned by the service. Callers match them with errors.Is;
// the wrapped message says which demand or field is involved.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidState      = errors.New("demand is incomplete for this operation")
	ErrAlreadyConverted  = errors.New("demand already converted")
	ErrConflict          = errors.New("conflict")
	ErrConfiguration     = errors.New("missing configuration")
	ErrValidation        = errors.New("validation failed")
)

// InfrastructureError wraps a document-store failure. The driver error is
// kept intact so diagnostics such as a missing index reach the caller.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// storeErr translates repository errors into service errors.
func storeErr(op, id string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, demandstore.ErrNotFound):
		return fmt.Errorf("%w: demand %s", ErrNotFound, id)
	case errors.Is(err, demandstore.ErrStatusChanged):
		return fmt.Errorf("%w: demand %s was modified by another request", ErrConflict, id)
	case errors.Is(err, demandstore.ErrDuplicateID):
		return fmt.Errorf("%w: a demand with the same id already exists", ErrConflict)
	}
	return &InfrastructureError{Op: op, Err: err}
}
