package repository

import (
	"context"
	"errors"
	"fmt"

	"SentiPulse/internal/domain/models"

	"gorm.io/gorm"
)

// translate maps gorm failures onto domain errors. Unique violations become conflict.
func translate(err error, entity, key string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFound(entity, key)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %q: %w", entity, key, models.ErrConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", entity, models.ErrStoreUnavailable, err)
	}
}

// firstOrNil treats a missing row as absence rather than failure.
func firstOrNil[T any](v *T, err error, entity, key string) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, entity, key)
	}
	return v, nil
}
