package ratelimit

import (
	"strconv"

	xhttp "SentiPulse/pkg/http"

	"github.com/labstack/echo/v4"
)

// Middleware rejects a client's requests with 429 once its bucket is empty.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(1))
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
