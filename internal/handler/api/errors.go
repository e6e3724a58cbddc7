package api

import (
	"context"
	"errors"

	models "SentiPulse/internal/domain/models"
	xhttp "SentiPulse/pkg/http"
	applogger "SentiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// toAppError maps a domain error onto the HTTP error envelope.
func toAppError(err error) *xhttp.AppError {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		e := xhttp.NewAppError("ERR_VALIDATION", "", "validation failed", 400).WithError(err)
		if len(verr.Fields) > 0 {
			e.Field = verr.Fields[0].Field
			e.Message = verr.Fields[0].Message
			if len(verr.Fields) > 1 {
				e.WithParam("fields", verr.Fields)
			}
		}
		return e
	}

	var nf *models.NotFoundError
	switch {
	case errors.As(err, &nf):
		return xhttp.NotFoundError(nf.Error()).WithError(err)
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.NewAppError("ERR_INVALID_INPUT", "", err.Error(), 400).WithError(err)
	case errors.Is(err, models.ErrDuplicateWindow):
		return xhttp.ConflictError("ERR_DUPLICATE_WINDOW", err.Error()).WithError(err)
	case errors.Is(err, models.ErrWindowClosed):
		return xhttp.ConflictError("ERR_WINDOW_CLOSED", err.Error()).WithError(err)
	case errors.Is(err, models.ErrConflict):
		return xhttp.ConflictError("ERR_CONFLICT", err.Error()).WithError(err)
	case errors.Is(err, models.ErrEmptyWindow):
		return xhttp.UnprocessableError("ERR_EMPTY_WINDOW", err.Error()).WithError(err)
	case errors.Is(err, models.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("store unavailable").WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}

// fail logs server-side failures and writes the mapped error.
func fail(c echo.Context, l *applogger.Logger, op string, err error) error {
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		l.Error(op+" failed",
			applogger.String("path", c.Path()),
			applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
