package api

import (
	"SentiPulse/internal/service/realtime"
	"SentiPulse/internal/usecase"
	applogger "SentiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// WSHandler upgrades /ws?ticker= to a realtime subscription. No ticker subscribes to every instrument.
type WSHandler struct {
	logger *applogger.Logger
	hub    *realtime.Hub
	query  *usecase.Query
}

func NewWSHandler(l *applogger.Logger, hub *realtime.Hub, query *usecase.Query) *WSHandler {
	return &WSHandler{logger: l, hub: hub, query: query}
}

func (h *WSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Subscribe)
}

func (h *WSHandler) Subscribe(c echo.Context) error {
	ticker := c.QueryParam("ticker")
	if ticker != "" {
		inst, err := h.query.Instrument(c.Request().Context(), ticker)
		if err != nil {
			return fail(c, h.logger, "ws subscribe", err)
		}
		ticker = inst.Ticker
	}
	if err := h.hub.ServeWS(c.Response(), c.Request(), ticker); err != nil {
		h.logger.Warn("websocket closed", applogger.String("ticker", ticker), applogger.Error(err))
	}
	return nil
}
