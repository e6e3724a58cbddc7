package feeds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"SentiPulse/internal/domain/models"
	domsvc "SentiPulse/internal/domain/service"
	"SentiPulse/internal/usecase"
	"SentiPulse/pkg/cache"
	applogger "SentiPulse/pkg/logger"

	"github.com/mmcdole/gofeed"
)

// Feed is one configured RSS or Atom feed.
type Feed struct {
	URL     string
	Source  string
	Type    models.SourceType
	Channel string
	Tickers []string
}

// FeedParser is satisfied by *gofeed.Parser.
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

// Collector polls feeds, scores new items and ingests them as messages.
type Collector struct {
	parser    FeedParser
	ingest    *usecase.Ingest
	catalog   *usecase.Catalog
	scorer    domsvc.SentimentScorer
	dedupe    cache.Service
	logger    *applogger.Logger
	feeds     []Feed
	interval  time.Duration
	dedupeTTL time.Duration
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCollector(
	parser FeedParser,
	ingest *usecase.Ingest,
	catalog *usecase.Catalog,
	scorer domsvc.SentimentScorer,
	dedupe cache.Service,
	l *applogger.Logger,
	feeds []Feed,
	interval, dedupeTTL time.Duration,
) *Collector {
	if parser == nil {
		parser = gofeed.NewParser()
	}
	if l == nil {
		l = applogger.Nop()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if dedupeTTL <= 0 {
		dedupeTTL = 72 * time.Hour
	}
	for i := range feeds {
		if feeds[i].Type == "" {
			feeds[i].Type = models.SourceNews
		}
		if feeds[i].Channel == "" {
			feeds[i].Channel = string(feeds[i].Type)
		}
	}
	return &Collector{
		parser:    parser,
		ingest:    ingest,
		catalog:   catalog,
		scorer:    scorer,
		dedupe:    dedupe,
		logger:    l,
		feeds:     feeds,
		interval:  interval,
		dedupeTTL: dedupeTTL,
		now:       time.Now,
	}
}

func (c *Collector) Name() string { return "feed-collector" }

func (c *Collector) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.wg.Add(1)
	go c.loop(runCtx)
	return nil
}

func (c *Collector) Stop(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PollOnce(ctx)
		}
	}
}

// PollOnce reads every feed once and returns the number of ingested messages.
func (c *Collector) PollOnce(ctx context.Context) int {
	total := 0
	for _, f := range c.feeds {
		n, err := c.pollFeed(ctx, f)
		if err != nil {
			c.logger.Error("feed poll failed", applogger.String("url", f.URL), applogger.Error(err))
		}
		total += n
	}
	if total > 0 {
		c.logger.Info("feed items ingested", applogger.Int("count", total))
	}
	return total
}

func (c *Collector) pollFeed(ctx context.Context, f Feed) (int, error) {
	feed, err := c.parser.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}
	src, err := c.catalog.SourceByName(ctx, f.Source, f.Type, sourceURL(f, feed))
	if err != nil {
		return 0, fmt.Errorf("resolve source %q: %w", f.Source, err)
	}

	n := 0
	for _, ticker := range f.Tickers {
		inst, err := c.catalog.Instrument(ctx, ticker)
		if err != nil {
			c.logger.Warn("feed ticker unknown", applogger.String("ticker", ticker), applogger.Error(err))
			continue
		}
		for _, item := range feed.Items {
			ok, err := c.ingestItem(ctx, f, src, inst, item)
			if err != nil {
				return n, err
			}
			if ok {
				n++
			}
		}
	}
	return n, nil
}

// ingestItem returns false without error for duplicates and late items.
func (c *Collector) ingestItem(ctx context.Context, f Feed, src *models.Source, inst *models.Instrument, item *gofeed.Item) (bool, error) {
	id := itemID(item)
	if id == "" {
		return false, nil
	}
	key := cache.Key("feed", src.ID, inst.ID, id)
	fresh, err := c.dedupe.SetNX(ctx, key, "1", c.dedupeTTL)
	if err != nil {
		return false, fmt.Errorf("dedupe: %w", err)
	}
	if !fresh {
		return false, nil
	}

	text := strings.TrimSpace(item.Title + ". " + item.Description)
	scored, err := c.scorer.Score(ctx, text)
	if err != nil {
		_ = c.dedupe.Delete(ctx, key)
		return false, fmt.Errorf("score item: %w", err)
	}

	score, confidence := scored.Score, scored.Confidence
	_, err = c.ingest.Ingest(ctx, "feed", &models.IngestRequest{
		InstrumentID: inst.ID,
		SourceID:     src.ID,
		Timestamp:    published(item, c.now()),
		Title:        truncate(item.Title, 500),
		Content:      item.Description,
		URL:          item.Link,
		Sentiments: []models.SentimentInput{{
			Channel:    f.Channel,
			Score:      &score,
			Confidence: &confidence,
			Tags:       scored.Tags,
		}},
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, models.ErrWindowClosed), errors.Is(err, models.ErrValidation):
		c.logger.Debug("feed item skipped", applogger.String("item", id), applogger.Error(err))
		return false, nil
	default:
		_ = c.dedupe.Delete(ctx, key)
		return false, err
	}
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func published(item *gofeed.Item, now time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return now.UTC()
	}
}

func sourceURL(f Feed, feed *gofeed.Feed) string {
	if feed.Link != "" {
		return feed.Link
	}
	return f.URL
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
