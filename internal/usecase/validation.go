package usecase

import (
	"context"

	"SentiPulse/internal/domain/models"
	"SentiPulse/pkg/validate"
)

// validateStruct runs the struct tags of v and reports violations as a domain ValidationError.
func validateStruct(ctx context.Context, v interface{}) error {
	err := validate.Struct(ctx, v)
	if err == nil {
		return nil
	}
	fields := validate.Fields(err)
	if fields == nil {
		return err
	}
	verr := &models.ValidationError{Fields: make([]models.FieldViolation, 0, len(fields))}
	for _, f := range fields {
		verr.Fields = append(verr.Fields, models.FieldViolation{Field: f.Field, Message: f.Message})
	}
	return verr
}
