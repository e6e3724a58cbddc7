package http

import (
	"errors"
	"fmt"
	"strings"

	"SentiPulse/pkg/validate"

	"github.com/creasty/defaults"
	"github.com/labstack/echo/v4"
)

// ReadAndValidateRequest binds path, query and body into req, applies `default` tags and validates it.
// It returns []ValidationError or nil.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return toValidationErrors(err)
	}

	if err := defaults.Set(req); err != nil {
		return toValidationErrors(err)
	}

	if err := validate.Struct(c.Request().Context(), req); err != nil {
		return toValidationErrors(err)
	}

	return nil
}

func toValidationErrors(err error) []ValidationError {
	if fields := validate.Fields(err); fields != nil {
		errs := make([]ValidationError, 0, len(fields))
		for _, f := range fields {
			errs = append(errs, ValidationError{
				Code:    "ERR_" + strings.ToUpper(f.Tag),
				Field:   f.Field,
				Message: f.Message,
				Params:  paramsFor(f),
			})
		}
		return errs
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{
			Code:    "ERR_BIND",
			Message: fmt.Sprintf("%v", he.Message),
		}}
	}

	return []ValidationError{{
		Code:    "ERR_UNKNOWN",
		Message: err.Error(),
	}}
}

func paramsFor(f validate.FieldError) map[string]interface{} {
	params := make(map[string]interface{})

	switch f.Tag {
	case "min", "gte":
		params["min"] = f.Param
	case "max", "lte":
		params["max"] = f.Param
	case "gt", "lt":
		params["value"] = f.Param
	case "oneof":
		params["options"] = strings.Split(f.Param, " ")
	}

	return params
}
