package api

import (
	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/service/ratelimit"
	"SentiPulse/internal/usecase"
	xhttp "SentiPulse/pkg/http"
	applogger "SentiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MessageHandler accepts sentiment-annotated messages over HTTP.
type MessageHandler struct {
	logger  *applogger.Logger
	ingest  *usecase.Ingest
	limiter *ratelimit.Limiter
}

func NewMessageHandler(l *applogger.Logger, ingest *usecase.Ingest, limiter *ratelimit.Limiter) *MessageHandler {
	return &MessageHandler{logger: l, ingest: ingest, limiter: limiter}
}

func (h *MessageHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, ratelimit.Middleware(h.limiter))
	}
	e.POST("/messages", h.Ingest, mw...)
}

func (h *MessageHandler) Ingest(c echo.Context) error {
	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m, err := h.ingest.Ingest(c.Request().Context(), "http", req)
	if err != nil {
		return fail(c, h.logger, "ingest", err)
	}
	return xhttp.CreatedResponse(c, models.IngestResponse{ID: m.ID})
}
