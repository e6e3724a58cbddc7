package api

import (
	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/usecase"
	xhttp "SentiPulse/pkg/http"
	applogger "SentiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	logger *applogger.Logger
	users  *usecase.Users
}

func NewUserHandler(l *applogger.Logger, users *usecase.Users) *UserHandler {
	return &UserHandler{logger: l, users: users}
}

func (h *UserHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/users")
	g.POST("", h.Create)
	g.GET("/:username/watchlist", h.Watchlist)
	g.PUT("/:username/watchlist/:ticker", h.AddToWatchlist)
	g.DELETE("/:username/watchlist/:ticker", h.RemoveFromWatchlist)
}

func (h *UserHandler) Create(c echo.Context) error {
	req := &models.CreateUserRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	u, err := h.users.Create(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.logger, "create user", err)
	}
	return xhttp.CreatedResponse(c, u)
}

func (h *UserHandler) Watchlist(c echo.Context) error {
	req := &models.WatchlistParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tickers, err := h.users.Watchlist(c.Request().Context(), req.Username)
	if err != nil {
		return fail(c, h.logger, "watchlist", err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"username": req.Username, "tickers": tickers})
}

func (h *UserHandler) AddToWatchlist(c echo.Context) error {
	req := &models.WatchlistParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tickers, err := h.users.AddToWatchlist(c.Request().Context(), req.Username, req.Ticker)
	if err != nil {
		return fail(c, h.logger, "add to watchlist", err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"username": req.Username, "tickers": tickers})
}

func (h *UserHandler) RemoveFromWatchlist(c echo.Context) error {
	req := &models.WatchlistParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tickers, err := h.users.RemoveFromWatchlist(c.Request().Context(), req.Username, req.Ticker)
	if err != nil {
		return fail(c, h.logger, "remove from watchlist", err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"username": req.Username, "tickers": tickers})
}
