package repository

import (
	"context"
	"iter"
	"time"

	"SentiPulse/internal/domain/models"
)

type InstrumentStore interface {
	Create(ctx context.Context, i *models.Instrument) error
	GetByID(ctx context.Context, id string) (*models.Instrument, error)
	GetByTicker(ctx context.Context, ticker string) (*models.Instrument, error)
	List(ctx context.Context) ([]*models.Instrument, error)
}

type SourceStore interface {
	Create(ctx context.Context, s *models.Source) error
	GetByID(ctx context.Context, id string) (*models.Source, error)
	GetByName(ctx context.Context, name string) (*models.Source, error)
	List(ctx context.Context) ([]*models.Source, error)
	UpdateReputation(ctx context.Context, id string, score float64) (*models.Source, error)
}

// MessageStore is the append-only message log.
type MessageStore interface {
	// Append stores m with its sentiments in one transaction and returns the new id. It fails
	// with models.ErrWindowClosed when an aggregate already covers m.Timestamp.
	Append(ctx context.Context, m *models.Message) (string, error)
	// QueryWindow yields the messages of [w.Start, w.End) in timestamp order. The sequence
	// is lazy and can be ranged over more than once.
	QueryWindow(ctx context.Context, instrumentID string, w models.Window) iter.Seq2[*models.Message, error]
	Latest(ctx context.Context, instrumentID string, limit int) ([]*models.Message, error)
	// Titles returns titles of messages from sources of the given type in [from, to).
	Titles(ctx context.Context, instrumentID string, sourceType models.SourceType, from, to time.Time) ([]string, error)
}

type AggregateStore interface {
	// Create fails with models.ErrDuplicateWindow when the window already exists and with
	// models.ErrConflict when the window's messages no longer match a.MessageCount.
	Create(ctx context.Context, a *models.AggregatedSentiment) error
	// CreateWithOpinion stores the aggregate and its opinion atomically.
	CreateWithOpinion(ctx context.Context, a *models.AggregatedSentiment, o *models.LLMOpinion) error
	// Overlapping returns the first aggregate of the instrument sharing any instant with w, or nil.
	Overlapping(ctx context.Context, instrumentID string, w models.Window) (*models.AggregatedSentiment, error)
	// Latest returns the aggregate with the greatest period end, or nil.
	Latest(ctx context.Context, instrumentID string) (*models.AggregatedSentiment, error)
	Range(ctx context.Context, instrumentID string, from, to time.Time) ([]*models.AggregatedSentiment, error)
}

type OpinionStore interface {
	// ByAggregate returns the opinion attached to an aggregate, or nil.
	ByAggregate(ctx context.Context, aggregateID string) (*models.LLMOpinion, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateWatchlist(ctx context.Context, id string, tickers []string) error
}

// Locker serialises work on a key across processes.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// EventPublisher is called after a change is committed.
type EventPublisher interface {
	Publish(ctx context.Context, e models.Event) error
}

// EventSink is one downstream of the event dispatcher.
type EventSink interface {
	Name() string
	Deliver(ctx context.Context, e models.Event) error
}

type Metrics interface {
	RecordIngested(origin string)
	RecordDropped(reason string)
	RecordWindow(outcome string)
	RecordEvent(event, sink, outcome string)
	RecordError(kind string)
	RecordScore(ticker string, score float64)
	RecordLatency(op string, seconds float64)
}

// ResponseCache holds rendered read models for a short time.
type ResponseCache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	DeletePrefix(prefix string) int
	Flush()
}
