package api

import (
	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/usecase"
	xhttp "SentiPulse/pkg/http"
	applogger "SentiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type SourceHandler struct {
	logger  *applogger.Logger
	catalog *usecase.Catalog
}

func NewSourceHandler(l *applogger.Logger, catalog *usecase.Catalog) *SourceHandler {
	return &SourceHandler{logger: l, catalog: catalog}
}

func (h *SourceHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/sources")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.PATCH("/:id/reputation", h.UpdateReputation)
}

func (h *SourceHandler) List(c echo.Context) error {
	rows, err := h.catalog.Sources(c.Request().Context())
	if err != nil {
		return fail(c, h.logger, "list sources", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SourceHandler) Create(c echo.Context) error {
	req := &models.CreateSourceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	src, err := h.catalog.CreateSource(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.logger, "create source", err)
	}
	return xhttp.CreatedResponse(c, src)
}

func (h *SourceHandler) UpdateReputation(c echo.Context) error {
	req := &models.UpdateReputationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	src, err := h.catalog.UpdateReputation(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.logger, "update reputation", err)
	}
	return xhttp.SuccessResponse(c, src)
}
