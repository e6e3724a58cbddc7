package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/repository"
	respcache "SentiPulse/internal/service/cache"
	"SentiPulse/internal/service/ratelimit"
	"SentiPulse/internal/testutil"
	"SentiPulse/internal/usecase"
	"SentiPulse/pkg/cache"
	"SentiPulse/pkg/database"
	applogger "SentiPulse/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	db          *database.DB
	echo        *echo.Echo
	instruments *InstrumentHandler
}

func newServer(t *testing.T, limiter *ratelimit.Limiter) *server {
	t.Helper()
	db := testutil.SetupTestDB(t)
	l := applogger.Nop()

	instruments := repository.NewInstrumentRepository(db.Gorm)
	sources := repository.NewSourceRepository(db.Gorm)
	messages := repository.NewMessageRepository(db.Gorm, 0)
	aggregates := repository.NewAggregateRepository(db.Gorm)
	opinions := repository.NewOpinionRepository(db.Gorm)
	users := repository.NewUserRepository(db.Gorm)
	locker := cache.NewMemoryCache()
	t.Cleanup(func() { _ = locker.Close() })
	metrics := testutil.NewMetrics()
	events := &testutil.Events{}

	query := usecase.NewQuery(instruments, messages, aggregates, opinions)
	dashboard := usecase.NewDashboard(query, messages, aggregates, respcache.NewResponseCache(time.Minute), time.Minute)
	aggregator := usecase.NewAggregator(messages, aggregates, locker, metrics, l, time.Minute)
	pipeline := usecase.NewPipeline(instruments, aggregator, usecase.NewRecommender(), dashboard, events, metrics, l, usecase.PipelineConfig{
		WindowSize: 30 * time.Minute,
		Grace:      time.Minute,
	})
	ingest := usecase.NewIngest(messages, instruments, sources, aggregates, events, metrics, l, usecase.IngestConfig{
		WindowSize: 30 * time.Minute,
		Grace:      time.Minute,
		MaxSkew:    5 * time.Minute,
	})
	catalog := usecase.NewCatalog(instruments, sources)

	ih := NewInstrumentHandler(l, catalog, query, dashboard, pipeline)
	router := NewRouter(
		NewHealthHandler(db.SQL),
		ih,
		NewMessageHandler(l, ingest, limiter),
		NewSourceHandler(l, catalog),
		NewUserHandler(l, usecase.NewUsers(users, instruments)),
		NewDashboardHandler(l, dashboard),
		nil,
	)
	e := echo.New()
	router.RegisterRoutes(e)
	return &server{db: db, echo: e, instruments: ih}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *server) do(t *testing.T, method, target string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type appError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field"`
	Params  map[string]interface{} `json:"params"`
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	code, env := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", decode[map[string]string](t, env.Data)["status"])
}

func TestUnknownTickerIsNotFound(t *testing.T) {
	s := newServer(t, nil)
	for _, path := range []string{
		"/instruments/NOPE",
		"/instruments/NOPE/messages",
		"/instruments/NOPE/sentiment/latest",
		"/instruments/NOPE/opinion/latest",
		"/instruments/NOPE/sentiment/trend",
		"/instruments/NOPE/wordcloud",
		"/instruments/NOPE/snapshot",
	} {
		code, env := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, code, path)
		errs := decode[[]appError](t, env.Data)
		require.Len(t, errs, 1)
		assert.Equal(t, "ERR_NOT_FOUND", errs[0].Code)
	}
}

func TestLatestSentimentIsNullBeforeFirstWindow(t *testing.T) {
	s := newServer(t, nil)
	testutil.Instrument(t, s.db, "AAPL")

	code, env := s.do(t, http.MethodGet, "/instruments/aapl/sentiment/latest", nil)
	require.Equal(t, http.StatusOK, code)
	data := decode[map[string]json.RawMessage](t, env.Data)
	assert.Equal(t, "null", string(data["aggregated"]))
	inst := decode[models.Instrument](t, data["instrument"])
	assert.Equal(t, "AAPL", inst.Ticker)

	code, env = s.do(t, http.MethodGet, "/instruments/AAPL/opinion/latest", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", string(decode[map[string]json.RawMessage](t, env.Data)["opinion"]))
}

func ingestBody(inst *models.Instrument, src *models.Source, ts time.Time) map[string]interface{} {
	return map[string]interface{}{
		"instrument_id": inst.ID,
		"source_id":     src.ID,
		"timestamp":     ts.Format(time.RFC3339Nano),
		"title":         "Apple beats estimates",
		"sentiments": []map[string]interface{}{
			{"channel": "news", "score": 0.7, "confidence": 0.9, "tags": []string{"earnings"}},
		},
	}
}

func TestIngestAndReadMessages(t *testing.T) {
	s := newServer(t, nil)
	inst := testutil.Instrument(t, s.db, "AAPL")
	src := testutil.Source(t, s.db, "wire", models.SourceNews)

	code, env := s.do(t, http.MethodPost, "/messages", ingestBody(inst, src, time.Now().Add(-time.Second)))
	require.Equal(t, http.StatusCreated, code, string(env.Data))
	id := decode[models.IngestResponse](t, env.Data).ID
	assert.NotEmpty(t, id)

	code, env = s.do(t, http.MethodGet, "/instruments/AAPL/messages?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	data := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, env.Data)
	require.Len(t, data.Messages, 1)
	assert.Equal(t, id, data.Messages[0].ID)
	assert.Equal(t, 0.7, data.Messages[0].Sentiments[0].Score)
}

func TestIngestValidationErrors(t *testing.T) {
	s := newServer(t, nil)
	inst := testutil.Instrument(t, s.db, "AAPL")
	src := testutil.Source(t, s.db, "wire", models.SourceNews)

	body := ingestBody(inst, src, time.Now())
	body["sentiments"] = []map[string]interface{}{{"channel": "news", "score": 3, "confidence": 0.5}}
	code, env := s.do(t, http.MethodPost, "/messages", body)
	assert.Equal(t, http.StatusBadRequest, code)
	errs := decode[[]appError](t, env.Data)
	require.NotEmpty(t, errs)
	assert.Equal(t, "sentiments[0].score", errs[0].Field)

	code, _ = s.do(t, http.MethodPost, "/messages", ingestBody(inst, src, time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPost, "/messages", ingestBody(inst, src, time.Now().Add(-2*time.Hour)))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_WINDOW_CLOSED", decode[[]appError](t, env.Data)[0].Code)
}

func TestIngestRateLimited(t *testing.T) {
	s := newServer(t, ratelimit.New(0.001, 1))
	inst := testutil.Instrument(t, s.db, "AAPL")
	src := testutil.Source(t, s.db, "wire", models.SourceNews)

	code, _ := s.do(t, http.MethodPost, "/messages", ingestBody(inst, src, time.Now()))
	assert.Equal(t, http.StatusCreated, code)
	code, env := s.do(t, http.MethodPost, "/messages", ingestBody(inst, src, time.Now()))
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "ERR_RATE_LIMITED", decode[[]appError](t, env.Data)[0].Code)
}

func TestAggregateEndpoint(t *testing.T) {
	s := newServer(t, nil)
	inst := testutil.Instrument(t, s.db, "AAPL")
	src := testutil.Source(t, s.db, "wire", models.SourceNews)
	start := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	testutil.Message(t, s.db, inst, src, start.Add(time.Minute), "Apple", testutil.S("news", 0.8, 1), testutil.S("social", 0.2, 1))

	body := map[string]interface{}{
		"period_start": start.Format(time.RFC3339),
		"period_end":   start.Add(30 * time.Minute).Format(time.RFC3339),
	}
	code, env := s.do(t, http.MethodPost, "/instruments/AAPL/aggregate", body)
	require.Equal(t, http.StatusCreated, code, string(env.Data))
	res := decode[models.AggregateResponse](t, env.Data)
	require.NotNil(t, res.Aggregated)
	require.NotNil(t, res.Opinion)
	assert.InDelta(t, 0.5, res.Aggregated.AggregatedScore, 1e-9)
	assert.Equal(t, models.Buy, res.Opinion.Recommendation)

	code, env = s.do(t, http.MethodPost, "/instruments/AAPL/aggregate", body)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_DUPLICATE_WINDOW", decode[[]appError](t, env.Data)[0].Code)

	body["period_start"] = start.Add(time.Hour).Format(time.RFC3339)
	body["period_end"] = start.Add(90 * time.Minute).Format(time.RFC3339)
	code, env = s.do(t, http.MethodPost, "/instruments/AAPL/aggregate", body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "ERR_EMPTY_WINDOW", decode[[]appError](t, env.Data)[0].Code)

	s.instruments.now = func() time.Time { return start.Add(2 * time.Hour) }
	code, env = s.do(t, http.MethodGet, "/instruments/AAPL/sentiment/trend", nil)
	require.Equal(t, http.StatusOK, code)
	points := decode[[]models.TrendPoint](t, env.Data)
	require.Len(t, points, 1)
	assert.InDelta(t, 75.0, points[0].Score, 1e-9)
}

func TestTrendRangeValidation(t *testing.T) {
	s := newServer(t, nil)
	testutil.Instrument(t, s.db, "AAPL")

	code, env := s.do(t, http.MethodGet, "/instruments/AAPL/sentiment/trend?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "from", decode[[]appError](t, env.Data)[0].Field)

	code, _ = s.do(t, http.MethodGet, "/instruments/AAPL/wordcloud?from=2024-05-02&to=2024-05-01", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCatalogAndWatchlist(t *testing.T) {
	s := newServer(t, nil)

	code, _ := s.do(t, http.MethodPost, "/instruments", map[string]string{"name": "Apple", "ticker": "aapl"})
	require.Equal(t, http.StatusCreated, code)
	code, env := s.do(t, http.MethodPost, "/instruments", map[string]string{"name": "Apple", "ticker": "AAPL"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ERR_CONFLICT", decode[[]appError](t, env.Data)[0].Code)

	code, env = s.do(t, http.MethodPost, "/sources", map[string]interface{}{"name": "wire", "type": "news", "url": "https://wire.example.com", "reputation_score": 7})
	require.Equal(t, http.StatusCreated, code)
	src := decode[models.Source](t, env.Data)

	code, env = s.do(t, http.MethodPatch, "/sources/"+src.ID+"/reputation", map[string]float64{"reputation_score": 4})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4.0, decode[models.Source](t, env.Data).ReputationScore)

	code, env = s.do(t, http.MethodGet, "/sources", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, decode[struct {
		Total int64 `json:"total"`
	}](t, env.Data).Total)

	code, _ = s.do(t, http.MethodPost, "/users", map[string]string{"username": "alice", "email": "alice@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(t, http.MethodPut, "/users/alice/watchlist/aapl", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"AAPL"}, decode[struct {
		Tickers []string `json:"tickers"`
	}](t, env.Data).Tickers)

	code, env = s.do(t, http.MethodDelete, "/users/alice/watchlist/AAPL", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[struct {
		Tickers []string `json:"tickers"`
	}](t, env.Data).Tickers)

	code, _ = s.do(t, http.MethodGet, "/users/bob/watchlist", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDashboardTableAndCacheClear(t *testing.T) {
	s := newServer(t, nil)
	testutil.Instrument(t, s.db, "AAPL")

	req := httptest.NewRequest(http.MethodGet, "/dashboard/table", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "private, max-age=15", rec.Header().Get(echo.HeaderCacheControl))

	code, env := s.do(t, http.MethodPost, "/cache/clear", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decode[map[string]bool](t, env.Data)["cleared"])
}

func TestToAppError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{models.NewValidationError("ticker", "bad"), http.StatusBadRequest, "ERR_VALIDATION"},
		{models.NewNotFound("instrument", "X"), http.StatusNotFound, "ERR_NOT_FOUND"},
		{models.ErrInvalidInput, http.StatusBadRequest, "ERR_INVALID_INPUT"},
		{models.ErrDuplicateWindow, http.StatusConflict, "ERR_DUPLICATE_WINDOW"},
		{models.ErrWindowClosed, http.StatusConflict, "ERR_WINDOW_CLOSED"},
		{models.ErrEmptyWindow, http.StatusUnprocessableEntity, "ERR_EMPTY_WINDOW"},
		{models.ErrStoreUnavailable, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "ERR_STORE_UNAVAILABLE"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, c := range cases {
		got := toAppError(c.err)
		assert.Equal(t, c.status, got.Status, c.err.Error())
		assert.Equal(t, c.code, got.Code, c.err.Error())
	}

	multi := toAppError(&models.ValidationError{Fields: []models.FieldViolation{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}})
	assert.Equal(t, "a", multi.Field)
	assert.Contains(t, multi.Params, "fields")
}
