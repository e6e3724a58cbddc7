// Package validate holds the process-wide validator with the custom tags used by request DTOs and domain inputs.
package validate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate

	tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,20}$`)
	isinPattern   = regexp.MustCompile(`^[A-Z0-9]{12}$`)
)

// FieldError is a flattened validator.FieldError.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// Validator returns the shared instance.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
			return Ticker(fl.Field().String())
		})
		_ = v.RegisterValidation("isin", func(fl validator.FieldLevel) bool {
			return isinPattern.MatchString(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
		})
		instance = v
	})
	return instance
}

// Struct validates v and returns validator.ValidationErrors on failure.
func Struct(ctx context.Context, v interface{}) error {
	return Validator().StructCtx(ctx, v)
}

// Var validates a single value against a tag.
func Var(value interface{}, tag string) error {
	return Validator().Var(value, tag)
}

// Ticker reports whether s is a well-formed ticker once trimmed and upper-cased.
func Ticker(s string) bool {
	return tickerPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}

// Fields flattens err when it carries validator.ValidationErrors. Any other error returns nil.
func Fields(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: Message(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name from the namespace: "IngestRequest.sentiments[0].score" -> "sentiments[0].score".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// Message renders a human readable message for a field error.
func Message(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be an absolute URL", field)
	case "ticker":
		return fmt.Sprintf("%s must be 1-20 uppercase letters, digits, '.' or '-'", field)
	case "isin":
		return fmt.Sprintf("%s must be 12 uppercase alphanumeric characters", field)
	case "uuid":
		return fmt.Sprintf("%s must be a UUID", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
