package usecase

import (
	"context"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	"SentiPulse/pkg/cache"
)

// DefaultDashboardSpan is the range used when a dashboard read has no bounds.
const DefaultDashboardSpan = 24 * time.Hour

// Dashboard builds the read models behind the dashboard endpoints and realtime events.
type Dashboard struct {
	query      *Query
	messages   domrepo.MessageStore
	aggregates domrepo.AggregateStore
	cache      domrepo.ResponseCache
	ttl        time.Duration
	now        func() time.Time
}

func NewDashboard(query *Query, messages domrepo.MessageStore, aggregates domrepo.AggregateStore, rc domrepo.ResponseCache, ttl time.Duration) *Dashboard {
	return &Dashboard{
		query:      query,
		messages:   messages,
		aggregates: aggregates,
		cache:      rc,
		ttl:        ttl,
		now:        time.Now,
	}
}

// TrendPointOf maps an aggregate onto the 0..100 trend scale.
func TrendPointOf(a *models.AggregatedSentiment) models.TrendPoint {
	return models.TrendPoint{
		Time:            a.PeriodEnd,
		AggregatedScore: a.AggregatedScore,
		Score:           clamp((a.AggregatedScore+1)*50, 0, 100),
		Rating:          a.Rating,
	}
}

// KPIsOf summarises an aggregate and its opinion.
func KPIsOf(ticker string, a *models.AggregatedSentiment, op *models.LLMOpinion) models.KPIs {
	k := models.KPIs{
		Ticker:          ticker,
		AggregatedScore: a.AggregatedScore,
		Rating:          a.Rating,
		MessageCount:    a.MessageCount,
		Scores:          a.ChannelScores(),
		PeriodEnd:       a.PeriodEnd,
	}
	if op != nil {
		k.Recommendation = op.Recommendation
		k.Confidence = op.Confidence
		k.RecScore = op.RecScore
	}
	return k
}

// TableRowOf renders one dashboard table line. a and op may be nil.
func TableRowOf(inst *models.Instrument, a *models.AggregatedSentiment, op *models.LLMOpinion) models.TableRow {
	row := models.TableRow{Ticker: inst.Ticker, Name: inst.Name, Sector: inst.Sector}
	if a != nil {
		score, rating, end := a.AggregatedScore, a.Rating, a.PeriodEnd
		row.AggregatedScore, row.Rating, row.PeriodEnd = &score, &rating, &end
	}
	if op != nil {
		rec, conf := op.Recommendation, op.Confidence
		row.Recommendation, row.Confidence = &rec, &conf
	}
	return row
}

func (d *Dashboard) Trend(ctx context.Context, ticker string, from, to time.Time) ([]models.TrendPoint, error) {
	inst, err := d.query.Instrument(ctx, ticker)
	if err != nil {
		return nil, err
	}
	key := cache.Key("trend", inst.Ticker, from.Unix(), to.Unix())
	if v, ok := d.cached(key); ok {
		return v.([]models.TrendPoint), nil
	}
	points, err := d.trend(ctx, inst.ID, from, to)
	if err != nil {
		return nil, err
	}
	d.store(key, points)
	return points, nil
}

func (d *Dashboard) trend(ctx context.Context, instrumentID string, from, to time.Time) ([]models.TrendPoint, error) {
	aggs, err := d.aggregates.Range(ctx, instrumentID, from, to)
	if err != nil {
		return nil, err
	}
	points := make([]models.TrendPoint, 0, len(aggs))
	for _, a := range aggs {
		points = append(points, TrendPointOf(a))
	}
	return points, nil
}

func (d *Dashboard) WordCloud(ctx context.Context, ticker string, from, to time.Time) ([]models.WordCount, error) {
	inst, err := d.query.Instrument(ctx, ticker)
	if err != nil {
		return nil, err
	}
	key := cache.Key("wordcloud", inst.Ticker, from.Unix(), to.Unix())
	if v, ok := d.cached(key); ok {
		return v.([]models.WordCount), nil
	}
	words, err := d.wordCloud(ctx, inst.ID, from, to)
	if err != nil {
		return nil, err
	}
	d.store(key, words)
	return words, nil
}

func (d *Dashboard) wordCloud(ctx context.Context, instrumentID string, from, to time.Time) ([]models.WordCount, error) {
	titles, err := d.messages.Titles(ctx, instrumentID, models.SourceNews, from, to)
	if err != nil {
		return nil, err
	}
	return TopWords(titles, WordCloudSize), nil
}

// Table lists every instrument with its latest aggregate and opinion.
func (d *Dashboard) Table(ctx context.Context) ([]models.TableRow, error) {
	insts, err := d.query.instruments.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]models.TableRow, 0, len(insts))
	for _, inst := range insts {
		row, err := d.TableRow(ctx, inst)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (d *Dashboard) TableRow(ctx context.Context, inst *models.Instrument) (models.TableRow, error) {
	agg, err := d.query.LatestAggregated(ctx, inst.ID)
	if err != nil {
		return models.TableRow{}, err
	}
	var op *models.LLMOpinion
	if agg != nil {
		if op, err = d.query.opinions.ByAggregate(ctx, agg.ID); err != nil {
			return models.TableRow{}, err
		}
	}
	return TableRowOf(inst, agg, op), nil
}

// Snapshot gathers the latest state of one instrument over the default span.
func (d *Dashboard) Snapshot(ctx context.Context, ticker string) (*models.Snapshot, error) {
	inst, err := d.query.Instrument(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return d.SnapshotOf(ctx, inst)
}

func (d *Dashboard) SnapshotOf(ctx context.Context, inst *models.Instrument) (*models.Snapshot, error) {
	to := d.now().UTC()
	from := to.Add(-DefaultDashboardSpan)

	snap := &models.Snapshot{Instrument: inst}
	var err error
	if snap.Aggregated, err = d.query.LatestAggregated(ctx, inst.ID); err != nil {
		return nil, err
	}
	if snap.Aggregated != nil {
		if snap.Opinion, err = d.query.opinions.ByAggregate(ctx, snap.Aggregated.ID); err != nil {
			return nil, err
		}
	}
	if snap.Messages, err = d.query.LatestMessages(ctx, inst.ID, DefaultMessageLimit); err != nil {
		return nil, err
	}
	if snap.Trend, err = d.trend(ctx, inst.ID, from, to); err != nil {
		return nil, err
	}
	if snap.WordCloud, err = d.wordCloud(ctx, inst.ID, from, to); err != nil {
		return nil, err
	}
	return snap, nil
}

// Invalidate drops cached trend and word cloud responses of a ticker.
func (d *Dashboard) Invalidate(ticker string) {
	if d.cache == nil {
		return
	}
	d.cache.DeletePrefix(cache.Key("trend", ticker) + ":")
	d.cache.DeletePrefix(cache.Key("wordcloud", ticker) + ":")
}

// ClearCache empties the response cache.
func (d *Dashboard) ClearCache() {
	if d.cache != nil {
		d.cache.Flush()
	}
}

func (d *Dashboard) cached(key string) (interface{}, bool) {
	if d.cache == nil {
		return nil, false
	}
	return d.cache.Get(key)
}

func (d *Dashboard) store(key string, v interface{}) {
	if d.cache != nil && d.ttl > 0 {
		d.cache.Set(key, v, d.ttl)
	}
}
