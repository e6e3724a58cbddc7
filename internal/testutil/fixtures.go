package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/pkg/database"

	"github.com/stretchr/testify/require"
)

// Instrument inserts an instrument with the given ticker.
func Instrument(t *testing.T, db *database.DB, ticker string) *models.Instrument {
	t.Helper()
	inst := &models.Instrument{Name: ticker + " Corp", Ticker: ticker, Sector: "Technology"}
	require.NoError(t, db.Gorm.Create(inst).Error)
	return inst
}

// Source inserts a source of the given type.
func Source(t *testing.T, db *database.DB, name string, typ models.SourceType) *models.Source {
	t.Helper()
	src := &models.Source{Name: name, Type: typ, ReputationScore: 5, URL: "https://" + name + ".example.com"}
	require.NoError(t, db.Gorm.Create(src).Error)
	return src
}

// S builds a sentiment annotation.
func S(channel string, score, weight float64) models.Sentiment {
	return models.Sentiment{Channel: channel, Score: score, Confidence: 0.8, Weight: weight}
}

// Message inserts a message with its sentiments, bypassing ingest checks.
func Message(t *testing.T, db *database.DB, inst *models.Instrument, src *models.Source, ts time.Time, title string, sentiments ...models.Sentiment) *models.Message {
	t.Helper()
	for i := range sentiments {
		sentiments[i].Position = i
	}
	m := &models.Message{
		InstrumentID: inst.ID,
		SourceID:     src.ID,
		Timestamp:    ts.UTC(),
		Title:        title,
		Sentiments:   sentiments,
	}
	require.NoError(t, db.Gorm.Omit("Source").Create(m).Error)
	return m
}

// Events records published events.
type Events struct {
	mu     sync.Mutex
	events []models.Event
}

func (e *Events) Publish(_ context.Context, ev models.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

// Names returns the names of the recorded events in publish order.
func (e *Events) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Name
	}
	return out
}

// All returns a copy of the recorded events.
func (e *Events) All() []models.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Event(nil), e.events...)
}

// Metrics counts recorded outcomes by label.
type Metrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMetrics() *Metrics { return &Metrics{counts: make(map[string]int)} }

func (m *Metrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

// Count returns how often key was recorded, e.g. "window:created" or "dropped:late".
func (m *Metrics) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *Metrics) RecordIngested(origin string)  { m.inc("ingested:" + origin) }
func (m *Metrics) RecordDropped(reason string)   { m.inc("dropped:" + reason) }
func (m *Metrics) RecordWindow(outcome string)   { m.inc("window:" + outcome) }
func (m *Metrics) RecordError(kind string)       { m.inc("error:" + kind) }
func (m *Metrics) RecordScore(string, float64)   {}
func (m *Metrics) RecordLatency(string, float64) {}
func (m *Metrics) RecordEvent(event, sink, outcome string) {
	m.inc("event:" + event + ":" + sink + ":" + outcome)
}
