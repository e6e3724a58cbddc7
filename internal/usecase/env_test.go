package usecase

import (
	"iter"
	"testing"
	"time"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/repository"
	"SentiPulse/internal/testutil"
	"SentiPulse/pkg/cache"
	"SentiPulse/pkg/database"
	applogger "SentiPulse/pkg/logger"
)

// base is the start of a closed 30 minute window well in the past.
var base = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

type env struct {
	db          *database.DB
	instruments *repository.InstrumentRepository
	sources     *repository.SourceRepository
	messages    *repository.MessageRepository
	aggregates  *repository.AggregateRepository
	opinions    *repository.OpinionRepository
	users       *repository.UserRepository
	locker      *cache.MemoryCache
	metrics     *testutil.Metrics
	events      *testutil.Events
	query       *Query
	dashboard   *Dashboard
	aggregator  *Aggregator
	pipeline    *Pipeline
	ingest      *Ingest
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	e := &env{
		db:          db,
		instruments: repository.NewInstrumentRepository(db.Gorm),
		sources:     repository.NewSourceRepository(db.Gorm),
		messages:    repository.NewMessageRepository(db.Gorm, 2),
		aggregates:  repository.NewAggregateRepository(db.Gorm),
		opinions:    repository.NewOpinionRepository(db.Gorm),
		users:       repository.NewUserRepository(db.Gorm),
		locker:      cache.NewMemoryCache(),
		metrics:     testutil.NewMetrics(),
		events:      &testutil.Events{},
	}
	t.Cleanup(func() { _ = e.locker.Close() })

	l := applogger.Nop()
	e.query = NewQuery(e.instruments, e.messages, e.aggregates, e.opinions)
	e.dashboard = NewDashboard(e.query, e.messages, e.aggregates, nil, 0)
	e.aggregator = NewAggregator(e.messages, e.aggregates, e.locker, e.metrics, l, time.Minute)
	e.pipeline = NewPipeline(e.instruments, e.aggregator, NewRecommender(), e.dashboard, e.events, e.metrics, l, PipelineConfig{
		WindowSize: 30 * time.Minute,
		Grace:      time.Minute,
	})
	e.ingest = NewIngest(e.messages, e.instruments, e.sources, e.aggregates, e.events, e.metrics, l, IngestConfig{
		WindowSize: 30 * time.Minute,
		Grace:      time.Minute,
		MaxSkew:    5 * time.Minute,
	})
	return e
}

func window() models.Window {
	return models.Window{Start: base, End: base.Add(30 * time.Minute)}
}

func seqOf(msgs ...*models.Message) iter.Seq2[*models.Message, error] {
	return func(yield func(*models.Message, error) bool) {
		for _, m := range msgs {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func msgAt(ts time.Time, sentiments ...models.Sentiment) *models.Message {
	return &models.Message{Timestamp: ts, Sentiments: sentiments}
}

func ptr[T any](v T) *T { return &v }
