package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	applogger "SentiPulse/pkg/logger"

	"gorm.io/datatypes"
)

// IngestConfig sets the window policy applied to incoming messages.
type IngestConfig struct {
	WindowSize time.Duration
	Grace      time.Duration
	MaxSkew    time.Duration
}

// Ingest validates and appends messages, refusing those whose window is already closed.
type Ingest struct {
	messages    domrepo.MessageStore
	instruments domrepo.InstrumentStore
	sources     domrepo.SourceStore
	aggregates  domrepo.AggregateStore
	publisher   domrepo.EventPublisher
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	cfg         IngestConfig
	now         func() time.Time
}

func NewIngest(
	messages domrepo.MessageStore,
	instruments domrepo.InstrumentStore,
	sources domrepo.SourceStore,
	aggregates domrepo.AggregateStore,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg IngestConfig,
) *Ingest {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 30 * time.Minute
	}
	if cfg.MaxSkew <= 0 {
		cfg.MaxSkew = 5 * time.Minute
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Ingest{
		messages:    messages,
		instruments: instruments,
		sources:     sources,
		aggregates:  aggregates,
		publisher:   publisher,
		metrics:     metrics,
		logger:      l,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Ingest stores req and publishes news:new. origin labels the ingest path in metrics.
func (s *Ingest) Ingest(ctx context.Context, origin string, req *models.IngestRequest) (*models.Message, error) {
	if err := validateStruct(ctx, req); err != nil {
		s.metrics.RecordDropped("invalid")
		return nil, err
	}

	now := s.now().UTC()
	ts := req.Timestamp.UTC()
	if ts.After(now.Add(s.cfg.MaxSkew)) {
		s.metrics.RecordDropped("future")
		return nil, models.NewValidationError("timestamp", "timestamp is more than %s in the future", s.cfg.MaxSkew)
	}

	inst, err := s.instruments.GetByID(ctx, req.InstrumentID)
	if err != nil {
		return nil, err
	}
	src, err := s.sources.GetByID(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}

	if err := s.checkOpen(ctx, inst.ID, ts, now); err != nil {
		s.metrics.RecordDropped("late")
		s.logger.Debug("late message dropped",
			applogger.String("ticker", inst.Ticker),
			applogger.Time("timestamp", ts),
			applogger.Error(err))
		return nil, err
	}

	m := toMessage(req)
	m.Timestamp = ts
	if _, err := s.messages.Append(ctx, m); err != nil {
		switch {
		case errors.Is(err, models.ErrWindowClosed):
			s.metrics.RecordDropped("late")
			s.logger.Debug("message landed in an aggregated window",
				applogger.String("ticker", inst.Ticker),
				applogger.Time("timestamp", ts),
				applogger.Error(err))
		case !errors.Is(err, models.ErrValidation) && !errors.Is(err, models.ErrNotFound):
			s.metrics.RecordError("ingest_append")
		}
		return nil, err
	}
	m.Source = src
	s.metrics.RecordIngested(origin)

	s.publish(ctx, models.NewEvent(models.EventNewsNew, inst.Ticker, models.NewsItem{
		ID:         m.ID,
		Title:      m.Title,
		URL:        m.URL,
		Source:     src.Name,
		SourceType: src.Type,
		Timestamp:  m.Timestamp,
		Sentiments: m.Sentiments,
	}))
	return m, nil
}

// checkOpen returns ErrWindowClosed when ts belongs to a window that has passed its grace
// period or is already covered by an aggregate. Append repeats the coverage check inside
// its transaction.
func (s *Ingest) checkOpen(ctx context.Context, instrumentID string, ts, now time.Time) error {
	w := models.WindowAt(ts, s.cfg.WindowSize)
	if w.IsClosed(now, s.cfg.Grace) {
		return fmt.Errorf("window [%s, %s) closed: %w", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), models.ErrWindowClosed)
	}
	covering, err := s.aggregates.Overlapping(ctx, instrumentID, models.Window{Start: ts, End: ts.Add(time.Nanosecond)})
	if err != nil {
		return err
	}
	if covering != nil {
		return fmt.Errorf("timestamp already aggregated in %s: %w", covering.ID, models.ErrWindowClosed)
	}
	return nil
}

func (s *Ingest) publish(ctx context.Context, e models.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("event publish failed", applogger.String("event", e.Name), applogger.Error(err))
	}
}

func toMessage(req *models.IngestRequest) *models.Message {
	m := &models.Message{
		InstrumentID: req.InstrumentID,
		SourceID:     req.SourceID,
		Timestamp:    req.Timestamp,
		Title:        req.Title,
		Content:      req.Content,
		URL:          req.URL,
		Sentiments:   make([]models.Sentiment, 0, len(req.Sentiments)),
	}
	if len(req.RawJSON) > 0 {
		m.RawJSON = datatypes.JSON(req.RawJSON)
	}
	for _, in := range req.Sentiments {
		s := models.Sentiment{
			Channel: in.Channel,
			Weight:  1,
			Tags:    datatypes.JSONSlice[string](in.Tags),
		}
		if in.Score != nil {
			s.Score = *in.Score
		}
		if in.Confidence != nil {
			s.Confidence = *in.Confidence
		}
		if in.Weight != nil {
			s.Weight = *in.Weight
		}
		if s.Tags == nil {
			s.Tags = datatypes.JSONSlice[string]{}
		}
		m.Sentiments = append(m.Sentiments, s)
	}
	return m
}
