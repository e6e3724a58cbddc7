package api

import (
	"time"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/usecase"
	xhttp "SentiPulse/pkg/http"
	applogger "SentiPulse/pkg/logger"
	xutil "SentiPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// DefaultRangeSpan is the trend and word cloud range when `from` is omitted.
const DefaultRangeSpan = 24 * time.Hour

// InstrumentHandler serves the catalog and per-instrument sentiment reads.
type InstrumentHandler struct {
	logger    *applogger.Logger
	catalog   *usecase.Catalog
	query     *usecase.Query
	dashboard *usecase.Dashboard
	pipeline  *usecase.Pipeline
	now       func() time.Time
}

func NewInstrumentHandler(l *applogger.Logger, catalog *usecase.Catalog, query *usecase.Query, dashboard *usecase.Dashboard, pipeline *usecase.Pipeline) *InstrumentHandler {
	return &InstrumentHandler{
		logger:    l,
		catalog:   catalog,
		query:     query,
		dashboard: dashboard,
		pipeline:  pipeline,
		now:       time.Now,
	}
}

func (h *InstrumentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/instruments")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:ticker", h.Get)
	g.GET("/:ticker/messages", h.Messages)
	g.GET("/:ticker/sentiment/latest", h.LatestSentiment)
	g.GET("/:ticker/sentiment/trend", h.Trend)
	g.GET("/:ticker/opinion/latest", h.LatestOpinion)
	g.GET("/:ticker/wordcloud", h.WordCloud)
	g.GET("/:ticker/snapshot", h.Snapshot)
	g.POST("/:ticker/aggregate", h.Aggregate)
}

func (h *InstrumentHandler) List(c echo.Context) error {
	rows, err := h.catalog.Instruments(c.Request().Context())
	if err != nil {
		return fail(c, h.logger, "list instruments", err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *InstrumentHandler) Create(c echo.Context) error {
	req := &models.CreateInstrumentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	inst, err := h.catalog.CreateInstrument(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.logger, "create instrument", err)
	}
	return xhttp.CreatedResponse(c, inst)
}

func (h *InstrumentHandler) Get(c echo.Context) error {
	req := &models.TickerParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	inst, err := h.catalog.Instrument(c.Request().Context(), req.Ticker)
	if err != nil {
		return fail(c, h.logger, "get instrument", err)
	}
	return xhttp.SuccessResponse(c, inst)
}

func (h *InstrumentHandler) Messages(c echo.Context) error {
	req := &models.MessagesQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	inst, msgs, err := h.query.LatestMessagesByTicker(c.Request().Context(), req.Ticker, req.Limit)
	if err != nil {
		return fail(c, h.logger, "latest messages", err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"instrument": inst, "messages": msgs})
}

func (h *InstrumentHandler) LatestSentiment(c echo.Context) error {
	req := &models.TickerParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	inst, agg, err := h.query.LatestAggregatedByTicker(c.Request().Context(), req.Ticker)
	if err != nil {
		return fail(c, h.logger, "latest aggregate", err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"instrument": inst, "aggregated": agg})
}

func (h *InstrumentHandler) LatestOpinion(c echo.Context) error {
	req := &models.TickerParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	inst, op, err := h.query.LatestOpinionByTicker(c.Request().Context(), req.Ticker)
	if err != nil {
		return fail(c, h.logger, "latest opinion", err)
	}
	return xhttp.SuccessResponse(c, echo.Map{"instrument": inst, "opinion": op})
}

func (h *InstrumentHandler) Trend(c echo.Context) error {
	req := &models.RangeQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := h.rangeOf(req)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	points, err := h.dashboard.Trend(c.Request().Context(), req.Ticker, from, to)
	if err != nil {
		return fail(c, h.logger, "trend", err)
	}
	return xhttp.SuccessResponse(c, points)
}

func (h *InstrumentHandler) WordCloud(c echo.Context) error {
	req := &models.RangeQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from, to, appErr := h.rangeOf(req)
	if appErr != nil {
		return xhttp.AppErrorResponse(c, appErr)
	}
	words, err := h.dashboard.WordCloud(c.Request().Context(), req.Ticker, from, to)
	if err != nil {
		return fail(c, h.logger, "wordcloud", err)
	}
	return xhttp.SuccessResponse(c, words)
}

func (h *InstrumentHandler) Snapshot(c echo.Context) error {
	req := &models.TickerParam{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.dashboard.Snapshot(c.Request().Context(), req.Ticker)
	if err != nil {
		return fail(c, h.logger, "snapshot", err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *InstrumentHandler) Aggregate(c echo.Context) error {
	req := &models.AggregateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w := models.Window{Start: req.PeriodStart.UTC(), End: req.PeriodEnd.UTC()}
	agg, op, err := h.pipeline.RunByTicker(c.Request().Context(), req.Ticker, w, models.ChannelWeights(req.ChannelWeights))
	if err != nil {
		return fail(c, h.logger, "aggregate", err)
	}
	return xhttp.CreatedResponse(c, models.AggregateResponse{Aggregated: agg, Opinion: op})
}

// rangeOf resolves [from, to). The default end is truncated to the minute so repeated
// requests share a cache entry.
func (h *InstrumentHandler) rangeOf(req *models.RangeQuery) (time.Time, time.Time, *xhttp.AppError) {
	to := h.now().UTC().Truncate(time.Minute)
	if req.To != "" {
		t, ok := xutil.ParseTime(req.To)
		if !ok {
			return time.Time{}, time.Time{}, xhttp.FieldError("to", "to must be RFC3339, a date or unix seconds")
		}
		to = t
	}
	from := to.Add(-DefaultRangeSpan)
	if req.From != "" {
		t, ok := xutil.ParseTime(req.From)
		if !ok {
			return time.Time{}, time.Time{}, xhttp.FieldError("from", "from must be RFC3339, a date or unix seconds")
		}
		from = t
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, xhttp.FieldError("from", "from must be before to")
	}
	return from, to, nil
}
