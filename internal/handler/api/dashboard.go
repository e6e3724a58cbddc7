package api

import (
	"SentiPulse/internal/usecase"
	xhttp "SentiPulse/pkg/http"
	applogger "SentiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type DashboardHandler struct {
	logger    *applogger.Logger
	dashboard *usecase.Dashboard
}

func NewDashboardHandler(l *applogger.Logger, dashboard *usecase.Dashboard) *DashboardHandler {
	return &DashboardHandler{logger: l, dashboard: dashboard}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/dashboard/table", h.Table)
	e.POST("/cache/clear", h.ClearCache)
}

func (h *DashboardHandler) Table(c echo.Context) error {
	rows, err := h.dashboard.Table(c.Request().Context())
	if err != nil {
		return fail(c, h.logger, "dashboard table", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DashboardHandler) ClearCache(c echo.Context) error {
	h.dashboard.ClearCache()
	h.logger.Info("response cache cleared", applogger.String("remote", c.RealIP()))
	return xhttp.SuccessResponse(c, echo.Map{"cleared": true})
}
