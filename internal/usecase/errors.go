package usecase

import (
	"errors"

	"SentiPulse/internal/domain/models"
)

func isNotFound(err error) bool { return errors.Is(err, models.ErrNotFound) }

func isConflict(err error) bool { return errors.Is(err, models.ErrConflict) }

// IsPermanent reports whether retrying err can never succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, models.ErrValidation) ||
		errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrWindowClosed) ||
		errors.Is(err, models.ErrInvalidInput)
}
