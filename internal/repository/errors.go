package repository

import (
	"context"
	"errors"

	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/apperror"
	"github.com/Arcadia-Gaming-Lounge/service-booking/internal/platform/database"
)

// classifyWriteError maps a driver error to the application taxonomy.
// Errors that are already *apperror.Error pass through unchanged.
func classifyWriteError(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	switch database.PgErrorCode(err) {
	case database.CodeExclusionViolation:
		return apperror.NewAvailabilityConflict("one or more stations were booked by someone else for this slot").
			WithDetail("constraint", database.ConstraintName(err))
	case database.CodeSerializationFailure, database.CodeDeadlockDetected:
		return apperror.NewConflictError("concurrent update, retry the request")
	case database.CodeForeignKeyViolation, database.CodeCheckViolation:
		return apperror.NewValidationError("booking references an unknown station or has invalid values").
			WithDetail("constraint", database.ConstraintName(err))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewPersistenceError(message+": request timed out", err)
	}
	return apperror.NewPersistenceError(message, err)
}
