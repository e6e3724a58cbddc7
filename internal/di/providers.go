package di

import (
	"context"
	"fmt"
	"time"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/domain/repository"
	domsvc "SentiPulse/internal/domain/service"
	"SentiPulse/internal/handler/api"
	mid "SentiPulse/internal/middleware"
	internalrepo "SentiPulse/internal/repository"
	respcache "SentiPulse/internal/service/cache"
	"SentiPulse/internal/service/feeds"
	"SentiPulse/internal/service/ratelimit"
	"SentiPulse/internal/service/realtime"
	"SentiPulse/internal/service/scheduler"
	"SentiPulse/internal/services/analytics"
	"SentiPulse/internal/services/features"
	"SentiPulse/internal/usecase"
	"SentiPulse/pkg/cache"
	pkgch "SentiPulse/pkg/clickhouse"
	"SentiPulse/pkg/config"
	"SentiPulse/pkg/database"
	xhttp "SentiPulse/pkg/http"
	pkgkafka "SentiPulse/pkg/kafka"
	applogger "SentiPulse/pkg/logger"
	"SentiPulse/pkg/metrics"
	"SentiPulse/pkg/queue"
	"SentiPulse/pkg/server"

	"github.com/segmentio/kafka-go"
)

// ProvideLogger builds the zerolog-backed application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideDatabase opens the relational store and optionally auto-migrates the schema.
func ProvideDatabase(cfg *config.Config, l *applogger.Logger) (*database.DB, error) {
	db, err := database.Open(
		database.WithDriver(cfg.Database.Driver),
		database.WithDSN(cfg.Database.DSN),
		database.WithPool(cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime),
		database.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(
			&models.Instrument{},
			&models.Source{},
			&models.Message{},
			&models.Sentiment{},
			&models.AggregatedSentiment{},
			&models.LLMOpinion{},
			&models.User{},
		); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

// ProvideRedisCache connects to Redis. It returns nil when Redis is disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(20, 2, 4*time.Second),
		cache.WithRedisPrefix("sentipulse"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCacheService backs locks and feed dedupe with Redis fronted by memory, or memory alone.
func ProvideCacheService(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(50_000), cache.WithMemoryCleanup(time.Minute))
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(10_000), cache.WithLayeredMemoryTTL(30*time.Second))
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideKafkaProducer creates the event producer. It returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	if cfg.Log.CollectorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			Topic:     cfg.Log.CollectorTopic,
			Service:   "sentipulse",
			Publisher: producer,
		})
	}
	return producer, nil
}

// ProvideClickHouse connects to ClickHouse and creates the archive table. It returns nil when disabled.
func ProvideClickHouse(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// Stores bundles the relational repositories.
type Stores struct {
	Instruments repository.InstrumentStore
	Sources     repository.SourceStore
	Messages    repository.MessageStore
	Aggregates  repository.AggregateStore
	Opinions    repository.OpinionStore
	Users       repository.UserStore
}

func ProvideStores(db *database.DB) *Stores {
	return &Stores{
		Instruments: internalrepo.NewInstrumentRepository(db.Gorm),
		Sources:     internalrepo.NewSourceRepository(db.Gorm),
		Messages:    internalrepo.NewMessageRepository(db.Gorm, 0),
		Aggregates:  internalrepo.NewAggregateRepository(db.Gorm),
		Opinions:    internalrepo.NewOpinionRepository(db.Gorm),
		Users:       internalrepo.NewUserRepository(db.Gorm),
	}
}

func ProvideQuery(s *Stores) *usecase.Query {
	return usecase.NewQuery(s.Instruments, s.Messages, s.Aggregates, s.Opinions)
}

func ProvideDashboard(cfg *config.Config, q *usecase.Query, s *Stores) *usecase.Dashboard {
	return usecase.NewDashboard(q, s.Messages, s.Aggregates, respcache.NewResponseCache(cfg.Cache.ResponseTTL), cfg.Cache.ResponseTTL)
}

// ProvideHub creates the websocket hub. It returns nil when realtime push is disabled.
func ProvideHub(cfg *config.Config, dashboard *usecase.Dashboard, m *metrics.Recorder, l *applogger.Logger) *realtime.Hub {
	if !cfg.Realtime.Enabled {
		return nil
	}
	return realtime.NewHub(dashboard, m, l, realtime.Config{
		BufferSize:   cfg.Realtime.BufferSize,
		WriteTimeout: cfg.Realtime.WriteTimeout,
		PingInterval: cfg.Realtime.PingInterval,
	})
}

// ProvideEventPipeline fans committed changes out to every enabled sink.
func ProvideEventPipeline(
	cfg *config.Config,
	m *metrics.Recorder,
	l *applogger.Logger,
	hub *realtime.Hub,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
) *mid.EventPipeline {
	var sinks []repository.EventSink
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaEventSink(producer, cfg.Kafka.EventsTopic))
	}
	if ch != nil {
		sinks = append(sinks, internalrepo.NewClickHouseArchive(ch, cfg.ClickHouse.Database, l))
	}
	return mid.NewEventPipeline(m, l,
		mid.WithBufferSize(cfg.Events.BufferSize),
		mid.WithRetry(cfg.Events.MaxRetries, cfg.Events.BackoffMin, cfg.Events.BackoffMax),
		mid.WithSinks(sinks...),
	)
}

func ProvideAggregator(cfg *config.Config, s *Stores, locker cache.Service, m *metrics.Recorder, l *applogger.Logger) *usecase.Aggregator {
	return usecase.NewAggregator(s.Messages, s.Aggregates, locker, m, l, cfg.Window.Grace)
}

func ProvidePipeline(
	cfg *config.Config,
	s *Stores,
	agg *usecase.Aggregator,
	dashboard *usecase.Dashboard,
	events *mid.EventPipeline,
	m *metrics.Recorder,
	l *applogger.Logger,
) *usecase.Pipeline {
	return usecase.NewPipeline(s.Instruments, agg, usecase.NewRecommender(), dashboard, events, m, l, usecase.PipelineConfig{
		WindowSize:     cfg.Window.Size,
		Grace:          cfg.Window.Grace,
		ChannelWeights: models.ChannelWeights(cfg.Window.ChannelWeights),
	})
}

func ProvideIngest(cfg *config.Config, s *Stores, events *mid.EventPipeline, m *metrics.Recorder, l *applogger.Logger) *usecase.Ingest {
	return usecase.NewIngest(s.Messages, s.Instruments, s.Sources, s.Aggregates, events, m, l, usecase.IngestConfig{
		WindowSize: cfg.Window.Size,
		Grace:      cfg.Window.Grace,
		MaxSkew:    cfg.Window.MaxSkew,
	})
}

func ProvideCatalog(s *Stores) *usecase.Catalog {
	return usecase.NewCatalog(s.Instruments, s.Sources)
}

func ProvideUsers(s *Stores) *usecase.Users {
	return usecase.NewUsers(s.Users, s.Instruments)
}

// ProvideScorer uses the HTTP scoring service when configured and the lexicon otherwise.
func ProvideScorer(cfg *config.Config) domsvc.SentimentScorer {
	if cfg.Feeds.ScorerURL != "" {
		return analytics.NewHTTPScorer(cfg.Feeds.ScorerURL, cfg.Feeds.Timeout)
	}
	return features.NewLexiconScorer()
}

// ProvideCollector creates the feed poller. It returns nil when feeds are disabled.
func ProvideCollector(
	cfg *config.Config,
	ingest *usecase.Ingest,
	catalog *usecase.Catalog,
	scorer domsvc.SentimentScorer,
	dedupe cache.Service,
	l *applogger.Logger,
) *feeds.Collector {
	if !cfg.Feeds.Enabled || len(cfg.Feeds.Sources) == 0 {
		return nil
	}
	list := make([]feeds.Feed, 0, len(cfg.Feeds.Sources))
	for _, f := range cfg.Feeds.Sources {
		list = append(list, feeds.Feed{
			URL:     f.URL,
			Source:  f.Source,
			Type:    models.SourceType(f.Type),
			Channel: f.Channel,
			Tickers: f.Tickers,
		})
	}
	return feeds.NewCollector(nil, ingest, catalog, scorer, dedupe, l, list, cfg.Feeds.PollInterval, cfg.Feeds.DedupeTTL)
}

// ProvideQueue creates the Redis job queue running aggregate_window jobs. It returns nil without Redis.
func ProvideQueue(cfg *config.Config, rc *cache.RedisCache, pipeline *usecase.Pipeline, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, queue.QueueConfig{
		Name:         cfg.Queue.Name,
		Workers:      cfg.Queue.Workers,
		RetryLimit:   cfg.Queue.MaxRetries,
		RetryDelay:   cfg.Queue.RetryBackoff,
		PollInterval: cfg.Queue.PollInterval,
	}, rc.Client(), usecase.NewAggregateWindowJob(pipeline, l))
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Ingest.RatePerSecond, cfg.Ingest.Burst)
}

// ProvideScheduler creates the window cron and the limiter cleanup job.
func ProvideScheduler(
	cfg *config.Config,
	pipeline *usecase.Pipeline,
	s *Stores,
	q *queue.RedisQueue,
	limiter *ratelimit.Limiter,
	l *applogger.Logger,
) (*scheduler.Scheduler, error) {
	var pub queue.Publisher
	if q != nil {
		pub = q
	}
	sch, err := scheduler.New(l, pipeline, s.Instruments, pub, scheduler.Config{
		Schedule:   cfg.Window.Schedule,
		Dispatch:   cfg.Window.Dispatch,
		RunOnStart: cfg.Window.RunOnStart,
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if err := sch.Add("0 */10 * * * *", "ratelimit-cleanup", func(context.Context) {
		if n := limiter.Cleanup(30 * time.Minute); n > 0 {
			l.Debug("rate limiter buckets evicted", applogger.Int("count", n))
		}
	}); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return sch, nil
}

// ProvideKafkaConsumer consumes the ingest topic. It returns nil when the consumer is disabled.
func ProvideKafkaConsumer(cfg *config.Config, ingest *usecase.Ingest, m *metrics.Recorder, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewKafkaIngestHandler(cfg.Kafka.IngestTopic, ingest, m))
	consumer.SetHook(pkgkafka.HookFuncs{
		After: func(_ context.Context, km kafka.Message, attempts int, err error) {
			if err != nil {
				l.Warn("ingest message failed",
					applogger.String("topic", km.Topic),
					applogger.Int64("offset", km.Offset),
					applogger.Int("attempts", attempts),
					applogger.Error(err))
			}
		},
	})
	return consumer, nil
}

// ProvideRouter assembles every HTTP handler.
func ProvideRouter(
	db *database.DB,
	l *applogger.Logger,
	catalog *usecase.Catalog,
	query *usecase.Query,
	dashboard *usecase.Dashboard,
	pipeline *usecase.Pipeline,
	ingest *usecase.Ingest,
	users *usecase.Users,
	limiter *ratelimit.Limiter,
	hub *realtime.Hub,
) *api.Router {
	var ws *api.WSHandler
	if hub != nil {
		ws = api.NewWSHandler(l, hub, query)
	}
	r := api.NewRouter(
		api.NewHealthHandler(db.SQL),
		api.NewInstrumentHandler(l, catalog, query, dashboard, pipeline),
		api.NewMessageHandler(l, ingest, limiter),
		api.NewSourceHandler(l, catalog),
		api.NewUserHandler(l, users),
		api.NewDashboardHandler(l, dashboard),
		ws,
	)
	return r
}

func ProvideHTTPServer(cfg *config.Config, router *api.Router, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(router, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// component adapts a start/stop pair to server.Component.
type component struct {
	name  string
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (c component) Name() string                    { return c.name }
func (c component) Start(ctx context.Context) error { return c.start(ctx) }
func (c component) Stop(ctx context.Context) error  { return c.stop(ctx) }

// ProvideApp registers components in start order; the app stops them in reverse.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	db *database.DB,
	rc *cache.RedisCache,
	cs cache.Service,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	events *mid.EventPipeline,
	hub *realtime.Hub,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	collector *feeds.Collector,
	sch *scheduler.Scheduler,
) *server.App {
	app := server.New(l, httpServer, cfg.Server.ShutdownTimeout)

	app.Add(events)
	if hub != nil {
		app.Add(component{
			name:  hub.Name(),
			start: func(context.Context) error { return nil },
			stop:  func(context.Context) error { return hub.Close() },
		})
	}
	if q != nil {
		app.Add(component{name: "redis-queue", start: q.Start, stop: q.Stop})
	}
	if consumer != nil {
		app.Add(component{
			name:  "kafka-consumer",
			start: func(context.Context) error { return consumer.Start() },
			stop:  consumer.Stop,
		})
	}
	if collector != nil {
		app.Add(collector)
	}
	app.Add(sch)

	app.OnClose("database", db.Close)
	app.OnClose("cache", cs.Close)
	if rc != nil {
		app.OnClose("redis", rc.Close)
	}
	if producer != nil {
		app.OnClose("kafka-producer", producer.Close)
	}
	if ch != nil {
		app.OnClose("clickhouse", ch.Close)
	}
	app.OnClose("logger", func() error {
		l.RemoveCollector()
		return nil
	})
	return app
}

// Runner is the slice of the graph a one-shot command needs: the window pipeline with its
// event dispatcher, and the resources to release afterwards.
type Runner struct {
	Logger   *applogger.Logger
	Pipeline *usecase.Pipeline
	Events   *mid.EventPipeline
	closers  []func() error
}

// Close releases every resource opened for the runner.
func (r *Runner) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.Logger.Warn("close error", applogger.Error(err))
		}
	}
}

func ProvideRunner(
	l *applogger.Logger,
	db *database.DB,
	cs cache.Service,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	pipeline *usecase.Pipeline,
	events *mid.EventPipeline,
) *Runner {
	r := &Runner{Logger: l, Pipeline: pipeline, Events: events}
	r.closers = append(r.closers, db.Close, cs.Close)
	if producer != nil {
		r.closers = append(r.closers, producer.Close)
	}
	if ch != nil {
		r.closers = append(r.closers, ch.Close)
	}
	return r
}
