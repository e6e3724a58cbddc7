package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"SentiPulse/internal/domain/models"
	domsvc "SentiPulse/internal/domain/service"
	"SentiPulse/internal/repository"
	"SentiPulse/internal/services/features"
	"SentiPulse/internal/testutil"
	"SentiPulse/internal/usecase"
	"SentiPulse/pkg/cache"
	"SentiPulse/pkg/database"
	applogger "SentiPulse/pkg/logger"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Market Wire</title>
  <link>https://wire.example.com</link>
  <description>markets</description>
  <item>
    <guid>g1</guid>
    <title>Apple shares surge after strong earnings</title>
    <link>https://wire.example.com/a1</link>
    <description>Record quarter.</description>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>Apple faces lawsuit</title>
    <link>https://wire.example.com/a2</link>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <guid>old</guid>
    <title>Old story</title>
    <pubDate>%s</pubDate>
  </item>
  <item>
    <title>No identity</title>
  </item>
</channel>
</rss>`

func rssServer(t *testing.T) *httptest.Server {
	t.Helper()
	now := time.Now().UTC()
	body := fmt.Sprintf(rssTemplate,
		now.Add(-10*time.Second).Format(time.RFC1123Z),
		now.Add(-20*time.Second).Format(time.RFC1123Z),
		now.Add(-48*time.Hour).Format(time.RFC1123Z))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type collectorEnv struct {
	db       *database.DB
	messages *repository.MessageRepository
	metrics  *testutil.Metrics
	events   *testutil.Events
	ingest   *usecase.Ingest
	catalog  *usecase.Catalog
	dedupe   *cache.MemoryCache
}

func newCollectorEnv(t *testing.T) *collectorEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	instruments := repository.NewInstrumentRepository(db.Gorm)
	sources := repository.NewSourceRepository(db.Gorm)
	e := &collectorEnv{
		db:       db,
		messages: repository.NewMessageRepository(db.Gorm, 0),
		metrics:  testutil.NewMetrics(),
		events:   &testutil.Events{},
		catalog:  usecase.NewCatalog(instruments, sources),
		dedupe:   cache.NewMemoryCache(),
	}
	t.Cleanup(func() { _ = e.dedupe.Close() })
	e.ingest = usecase.NewIngest(e.messages, instruments, sources, repository.NewAggregateRepository(db.Gorm),
		e.events, e.metrics, applogger.Nop(), usecase.IngestConfig{
			WindowSize: 30 * time.Minute,
			Grace:      time.Minute,
			MaxSkew:    5 * time.Minute,
		})
	return e
}

type failingScorer struct{ err error }

func (f failingScorer) Score(context.Context, string) (domsvc.Scored, error) {
	return domsvc.Scored{}, f.err
}

func TestCollector_PollOnce(t *testing.T) {
	e := newCollectorEnv(t)
	inst := testutil.Instrument(t, e.db, "AAPL")
	srv := rssServer(t)

	c := NewCollector(nil, e.ingest, e.catalog, features.NewLexiconScorer(), e.dedupe, nil, []Feed{{
		URL:     srv.URL,
		Source:  "market-wire",
		Tickers: []string{"AAPL", "ZZZZ"},
	}}, 0, 0)

	ctx := context.Background()
	assert.Equal(t, 2, c.PollOnce(ctx))

	msgs, err := e.messages.Latest(ctx, inst.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Apple shares surge after strong earnings", msgs[0].Title)
	assert.Equal(t, "https://wire.example.com/a1", msgs[0].URL)
	require.Len(t, msgs[0].Sentiments, 1)
	assert.Equal(t, "news", msgs[0].Sentiments[0].Channel)
	assert.Greater(t, msgs[0].Sentiments[0].Score, 0.0)
	assert.Equal(t, "Apple faces lawsuit", msgs[1].Title)

	src, err := e.catalog.SourceByName(ctx, "market-wire", models.SourceNews, "")
	require.NoError(t, err)
	assert.Equal(t, "https://wire.example.com", src.URL)
	assert.Equal(t, 2, e.metrics.Count("ingested:feed"))
	assert.Equal(t, 1, e.metrics.Count("dropped:late"))

	// items already seen are not ingested twice
	assert.Equal(t, 0, c.PollOnce(ctx))
	msgs, err = e.messages.Latest(ctx, inst.ID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestCollector_ScorerFailureReleasesItem(t *testing.T) {
	e := newCollectorEnv(t)
	inst := testutil.Instrument(t, e.db, "AAPL")
	srv := rssServer(t)
	feed := []Feed{{URL: srv.URL, Source: "market-wire", Tickers: []string{"AAPL"}}}
	ctx := context.Background()

	broken := NewCollector(gofeed.NewParser(), e.ingest, e.catalog, failingScorer{err: errors.New("model offline")},
		e.dedupe, nil, feed, time.Minute, time.Hour)
	assert.Equal(t, 0, broken.PollOnce(ctx))

	msgs, err := e.messages.Latest(ctx, inst.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	working := NewCollector(gofeed.NewParser(), e.ingest, e.catalog, features.NewLexiconScorer(),
		e.dedupe, nil, feed, time.Minute, time.Hour)
	assert.Equal(t, 2, working.PollOnce(ctx))
}

func TestCollector_ParseError(t *testing.T) {
	e := newCollectorEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	c := NewCollector(nil, e.ingest, e.catalog, features.NewLexiconScorer(), e.dedupe, nil,
		[]Feed{{URL: srv.URL, Source: "broken", Tickers: []string{"AAPL"}}}, 0, 0)
	_, err := c.pollFeed(context.Background(), c.feeds[0])
	require.Error(t, err)
	assert.Equal(t, 0, c.PollOnce(context.Background()))
}

func TestCollector_StartStop(t *testing.T) {
	e := newCollectorEnv(t)
	testutil.Instrument(t, e.db, "AAPL")
	srv := rssServer(t)

	c := NewCollector(nil, e.ingest, e.catalog, features.NewLexiconScorer(), e.dedupe, nil,
		[]Feed{{URL: srv.URL, Source: "market-wire", Tickers: []string{"AAPL"}}}, time.Hour, 0)
	require.NoError(t, c.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return e.metrics.Count("ingested:feed") == 2
	}, 5*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestItemHelpers(t *testing.T) {
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	pub := now.Add(-time.Hour)
	upd := now.Add(-2 * time.Hour)

	assert.Equal(t, "g", itemID(&gofeed.Item{GUID: "g", Link: "l"}))
	assert.Equal(t, "l", itemID(&gofeed.Item{Link: "l"}))
	assert.Equal(t, "", itemID(&gofeed.Item{}))

	assert.Equal(t, pub, published(&gofeed.Item{PublishedParsed: &pub, UpdatedParsed: &upd}, now))
	assert.Equal(t, upd, published(&gofeed.Item{UpdatedParsed: &upd}, now))
	assert.Equal(t, now, published(&gofeed.Item{}, now))

	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé", truncate("héllo", 2))
}
