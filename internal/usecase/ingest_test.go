package usecase

import (
	"context"
	"testing"
	"time"

	models "SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	"SentiPulse/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func ingestRequest(inst *models.Instrument, src *models.Source, ts time.Time) *models.IngestRequest {
	return &models.IngestRequest{
		InstrumentID: inst.ID,
		SourceID:     src.ID,
		Timestamp:    ts,
		Title:        "Apple beats earnings expectations",
		URL:          "https://wire.example.com/a",
		Sentiments: []models.SentimentInput{
			{Channel: "news", Score: ptr(0.6), Confidence: ptr(0.9), Tags: []string{"earnings"}},
			{Channel: "social", Score: ptr(-0.2), Confidence: ptr(0.5), Weight: ptr(0.5)},
		},
	}
}

func TestIngestStoresMessageAndPublishes(t *testing.T) {
	e := newEnv(t)
	e.ingest.now = func() time.Time { return base.Add(10 * time.Minute) }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)

	m, err := e.ingest.Ingest(context.Background(), "http", ingestRequest(inst, src, base.Add(5*time.Minute)))
	require.NoError(t, err)
	require.NotEmpty(t, m.ID)

	assert.Equal(t, 1, e.metrics.Count("ingested:http"))
	assert.Equal(t, []string{models.EventNewsNew}, e.events.Names())
	item, ok := e.events.All()[0].Data.(models.NewsItem)
	require.True(t, ok)
	assert.Equal(t, m.ID, item.ID)
	assert.Equal(t, "wire", item.Source)
	assert.Equal(t, "AAPL", e.events.All()[0].Ticker)

	msgs, err := e.messages.Latest(context.Background(), inst.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Len(t, msgs[0].Sentiments, 2)
	assert.Equal(t, "news", msgs[0].Sentiments[0].Channel)
	assert.Equal(t, 1.0, msgs[0].Sentiments[0].Weight)
	assert.Equal(t, datatypes.JSONSlice[string]{"earnings"}, msgs[0].Sentiments[0].Tags)
	assert.Equal(t, 0.5, msgs[0].Sentiments[1].Weight)
}

func TestIngestRejectsLateMessage(t *testing.T) {
	e := newEnv(t)
	e.ingest.now = func() time.Time { return base.Add(31 * time.Minute) }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)

	_, err := e.ingest.Ingest(context.Background(), "http", ingestRequest(inst, src, base.Add(5*time.Minute)))
	require.ErrorIs(t, err, models.ErrWindowClosed)
	assert.Equal(t, 1, e.metrics.Count("dropped:late"))
	assert.Empty(t, e.events.Names())

	msgs, err := e.messages.Latest(context.Background(), inst.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestIngestAcceptsWithinGrace(t *testing.T) {
	e := newEnv(t)
	e.ingest.now = func() time.Time { return base.Add(30*time.Minute + 30*time.Second) }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)

	_, err := e.ingest.Ingest(context.Background(), "http", ingestRequest(inst, src, base.Add(29*time.Minute)))
	assert.NoError(t, err)
}

func TestIngestRejectsAggregatedWindow(t *testing.T) {
	e := newEnv(t)
	e.ingest.now = func() time.Time { return base.Add(10 * time.Minute) }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)

	require.NoError(t, e.aggregates.Create(context.Background(), &models.AggregatedSentiment{
		InstrumentID:    inst.ID,
		PeriodStart:     base,
		PeriodEnd:       base.Add(30 * time.Minute),
		Scores:          datatypes.NewJSONType(map[string]float64{"news": 0.1}),
		AggregatedScore: 0.1,
		Rating:          3,
	}))

	_, err := e.ingest.Ingest(context.Background(), "kafka", ingestRequest(inst, src, base.Add(5*time.Minute)))
	assert.ErrorIs(t, err, models.ErrWindowClosed)
	assert.Equal(t, 1, e.metrics.Count("dropped:late"))
}

// staleAggregates never sees an aggregate, like a reader racing a commit.
type staleAggregates struct{ domrepo.AggregateStore }

func (staleAggregates) Overlapping(context.Context, string, models.Window) (*models.AggregatedSentiment, error) {
	return nil, nil
}

func TestIngestRefusesWindowAggregatedAfterOpenCheck(t *testing.T) {
	e := newEnv(t)
	// ingest still considers the window open while the aggregator already closed it
	e.ingest.now = func() time.Time { return base.Add(30*time.Minute + 20*time.Second) }
	e.ingest.aggregates = staleAggregates{e.aggregates}
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)
	testutil.Message(t, e.db, inst, src, base.Add(time.Minute), "", testutil.S("news", 0.8, 1))
	ctx := context.Background()

	agg, _, err := e.pipeline.RunWindow(ctx, inst.ID, window(), nil)
	require.NoError(t, err)

	_, err = e.ingest.Ingest(ctx, "http", ingestRequest(inst, src, base.Add(5*time.Minute)))
	require.ErrorIs(t, err, models.ErrWindowClosed)
	assert.Equal(t, 1, e.metrics.Count("dropped:late"))
	assert.Zero(t, e.metrics.Count("ingested:http"))

	recomputed, err := Fold(e.messages.QueryWindow(ctx, inst.ID, window()), window(), nil)
	require.NoError(t, err)
	assert.Equal(t, agg.MessageCount, recomputed.MessageCount)
	assert.InDelta(t, agg.AggregatedScore, recomputed.AggregatedScore, 1e-9)
}

func TestIngestRejectsFutureTimestamp(t *testing.T) {
	e := newEnv(t)
	now := base.Add(10 * time.Minute)
	e.ingest.now = func() time.Time { return now }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)

	_, err := e.ingest.Ingest(context.Background(), "http", ingestRequest(inst, src, now.Add(6*time.Minute)))
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 1, e.metrics.Count("dropped:future"))
}

func TestIngestValidation(t *testing.T) {
	e := newEnv(t)
	e.ingest.now = func() time.Time { return base.Add(10 * time.Minute) }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)

	cases := map[string]func(r *models.IngestRequest){
		"no sentiments":   func(r *models.IngestRequest) { r.Sentiments = nil },
		"score too high":  func(r *models.IngestRequest) { r.Sentiments[0].Score = ptr(1.5) },
		"missing score":   func(r *models.IngestRequest) { r.Sentiments[0].Score = nil },
		"bad confidence":  func(r *models.IngestRequest) { r.Sentiments[0].Confidence = ptr(-0.1) },
		"negative weight": func(r *models.IngestRequest) { r.Sentiments[1].Weight = ptr(-1.0) },
		"empty channel":   func(r *models.IngestRequest) { r.Sentiments[0].Channel = "" },
		"bad instrument":  func(r *models.IngestRequest) { r.InstrumentID = "nope" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := ingestRequest(inst, src, base.Add(5*time.Minute))
			mutate(req)
			_, err := e.ingest.Ingest(context.Background(), "http", req)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	assert.Equal(t, len(cases), e.metrics.Count("dropped:invalid"))
}

func TestIngestUnknownReferences(t *testing.T) {
	e := newEnv(t)
	e.ingest.now = func() time.Time { return base.Add(10 * time.Minute) }
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)

	req := ingestRequest(inst, src, base.Add(5*time.Minute))
	req.InstrumentID = uuid.NewString()
	_, err := e.ingest.Ingest(context.Background(), "http", req)
	assert.ErrorIs(t, err, models.ErrNotFound)

	req = ingestRequest(inst, src, base.Add(5*time.Minute))
	req.SourceID = uuid.NewString()
	_, err = e.ingest.Ingest(context.Background(), "http", req)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
