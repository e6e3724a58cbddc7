package api

import (
	"context"
	"net/http"
	"time"

	xhttp "SentiPulse/pkg/http"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, echo.Map{"status": "degraded", "database": err.Error()})
		}
	}
	return xhttp.SuccessResponse(c, echo.Map{"status": "ok"})
}
