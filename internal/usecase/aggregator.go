package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	"SentiPulse/pkg/cache"
	applogger "SentiPulse/pkg/logger"

	"gorm.io/datatypes"
)

// FoldResult is the outcome of folding one window.
type FoldResult struct {
	Scores          map[string]float64
	AggregatedScore float64
	MessageCount    int
}

type channelSum struct {
	weighted float64
	weight   float64
}

// Fold groups the annotations of seq by channel and combines the channel means with
// weights. Messages outside w are ignored. Channels whose annotation weights sum to zero
// are left out; ErrEmptyWindow is returned when no channel carries weight.
func Fold(seq iter.Seq2[*models.Message, error], w models.Window, weights models.ChannelWeights) (FoldResult, error) {
	sums := make(map[string]*channelSum)
	count := 0

	for m, err := range seq {
		if err != nil {
			return FoldResult{}, err
		}
		if m == nil || !w.Contains(m.Timestamp) {
			continue
		}
		count++
		for _, s := range m.Sentiments {
			cs, ok := sums[s.Channel]
			if !ok {
				cs = &channelSum{}
				sums[s.Channel] = cs
			}
			cs.weighted += s.Score * s.Weight
			cs.weight += s.Weight
		}
	}

	channels := make([]string, 0, len(sums))
	for ch, cs := range sums {
		if cs.weight > 0 {
			channels = append(channels, ch)
		}
	}
	sort.Strings(channels)

	scores := make(map[string]float64, len(channels))
	var num, den float64
	for _, ch := range channels {
		cs := sums[ch]
		s := clamp(cs.weighted/cs.weight, -1, 1)
		scores[ch] = s

		wc := weights.Of(ch)
		num += wc * s
		den += wc
	}
	if den <= 0 {
		return FoldResult{MessageCount: count}, models.ErrEmptyWindow
	}

	return FoldResult{
		Scores:          scores,
		AggregatedScore: clamp(num/den, -1, 1),
		MessageCount:    count,
	}, nil
}

// Rating buckets an aggregated score into 1..5.
func Rating(score float64) models.Rating {
	switch {
	case score <= -0.6:
		return 1
	case score <= -0.2:
		return 2
	case score <= 0.2:
		return 3
	case score <= 0.6:
		return 4
	default:
		return 5
	}
}

// Opine derives the opinion that is stored together with an aggregate.
type Opine func(agg *models.AggregatedSentiment) (*models.LLMOpinion, error)

// maxFolds bounds refolds of a window whose messages changed between fold and insert.
const maxFolds = 3

// Aggregator produces at most one AggregatedSentiment per instrument and window.
type Aggregator struct {
	messages   domrepo.MessageStore
	aggregates domrepo.AggregateStore
	locker     domrepo.Locker
	metrics    domrepo.Metrics
	logger     *applogger.Logger
	grace      time.Duration
	lockTTL    time.Duration
	now        func() time.Time
}

// NewAggregator creates the aggregator. Windows are accepted once end+grace has passed,
// the same rule ingest uses to stop accepting messages.
func NewAggregator(
	messages domrepo.MessageStore,
	aggregates domrepo.AggregateStore,
	locker domrepo.Locker,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	grace time.Duration,
) *Aggregator {
	if l == nil {
		l = applogger.Nop()
	}
	return &Aggregator{
		messages:   messages,
		aggregates: aggregates,
		locker:     locker,
		metrics:    metrics,
		logger:     l,
		grace:      grace,
		lockTTL:    2 * time.Minute,
		now:        time.Now,
	}
}

// Aggregate folds the messages of [start, end) for the instrument and stores the result.
func (a *Aggregator) Aggregate(ctx context.Context, instrumentID string, start, end time.Time, weights models.ChannelWeights) (*models.AggregatedSentiment, error) {
	agg, _, err := a.aggregate(ctx, instrumentID, start, end, weights, nil)
	return agg, err
}

// AggregateWithOpinion is Aggregate with the opinion from opine written in the same
// transaction. Either both rows are stored or neither is.
func (a *Aggregator) AggregateWithOpinion(ctx context.Context, instrumentID string, start, end time.Time, weights models.ChannelWeights, opine Opine) (*models.AggregatedSentiment, *models.LLMOpinion, error) {
	return a.aggregate(ctx, instrumentID, start, end, weights, opine)
}

func (a *Aggregator) aggregate(ctx context.Context, instrumentID string, start, end time.Time, weights models.ChannelWeights, opine Opine) (*models.AggregatedSentiment, *models.LLMOpinion, error) {
	began := time.Now()
	w := models.Window{Start: start.UTC(), End: end.UTC()}
	if err := a.validate(instrumentID, w, weights); err != nil {
		return nil, nil, err
	}

	key := cache.Key("aggregate", instrumentID, w.Start.Unix(), w.End.Unix())
	locked, err := a.locker.TryLock(ctx, key, a.lockTTL)
	if err != nil {
		a.metrics.RecordWindow("failed")
		return nil, nil, fmt.Errorf("window lock: %w: %w", models.ErrStoreUnavailable, err)
	}
	if !locked {
		a.metrics.RecordWindow("duplicate")
		return nil, nil, fmt.Errorf("window %s is being aggregated: %w", key, models.ErrDuplicateWindow)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := a.locker.Unlock(unlockCtx, key); err != nil {
			a.logger.Warn("window unlock failed", applogger.String("key", key), applogger.Error(err))
		}
	}()

	existing, err := a.aggregates.Overlapping(ctx, instrumentID, w)
	if err != nil {
		a.metrics.RecordWindow("failed")
		return nil, nil, err
	}
	if existing != nil {
		a.metrics.RecordWindow("duplicate")
		return nil, nil, fmt.Errorf("window overlaps aggregate %s: %w", existing.ID, models.ErrDuplicateWindow)
	}

	var (
		agg *models.AggregatedSentiment
		op  *models.LLMOpinion
	)
	for attempt := 1; ; attempt++ {
		agg, op, err = a.foldAndStore(ctx, instrumentID, w, weights, opine)
		if err == nil || !errors.Is(err, models.ErrConflict) || attempt == maxFolds {
			break
		}
		a.logger.Warn("window changed during fold, folding again",
			applogger.String("instrument_id", instrumentID),
			applogger.Time("period_end", w.End),
			applogger.Int("attempt", attempt))
	}
	if err != nil {
		switch {
		case errors.Is(err, models.ErrEmptyWindow):
			a.metrics.RecordWindow("empty")
		case errors.Is(err, models.ErrDuplicateWindow):
			a.metrics.RecordWindow("duplicate")
		default:
			a.metrics.RecordWindow("failed")
		}
		return nil, nil, err
	}

	a.metrics.RecordWindow("created")
	a.metrics.RecordLatency("aggregate", time.Since(began).Seconds())
	a.logger.Info("window aggregated",
		applogger.String("instrument_id", instrumentID),
		applogger.Time("period_start", w.Start),
		applogger.Time("period_end", w.End),
		applogger.Float64("aggregated_score", agg.AggregatedScore),
		applogger.Int("messages", agg.MessageCount),
	)
	return agg, op, nil
}

func (a *Aggregator) foldAndStore(ctx context.Context, instrumentID string, w models.Window, weights models.ChannelWeights, opine Opine) (*models.AggregatedSentiment, *models.LLMOpinion, error) {
	res, err := Fold(a.messages.QueryWindow(ctx, instrumentID, w), w, weights)
	if err != nil {
		return nil, nil, err
	}

	agg := &models.AggregatedSentiment{
		InstrumentID:    instrumentID,
		PeriodStart:     w.Start,
		PeriodEnd:       w.End,
		Scores:          datatypes.NewJSONType(res.Scores),
		AggregatedScore: res.AggregatedScore,
		Rating:          Rating(res.AggregatedScore),
		MessageCount:    res.MessageCount,
	}
	if opine == nil {
		if err := a.aggregates.Create(ctx, agg); err != nil {
			return nil, nil, err
		}
		return agg, nil, nil
	}

	op, err := opine(agg)
	if err != nil {
		return nil, nil, err
	}
	if err := a.aggregates.CreateWithOpinion(ctx, agg, op); err != nil {
		return nil, nil, err
	}
	return agg, op, nil
}

func (a *Aggregator) validate(instrumentID string, w models.Window, weights models.ChannelWeights) error {
	verr := &models.ValidationError{}
	if instrumentID == "" {
		verr.Fields = append(verr.Fields, models.FieldViolation{Field: "instrument_id", Message: "instrument_id is required"})
	}
	if !w.Start.Before(w.End) {
		verr.Fields = append(verr.Fields, models.FieldViolation{Field: "period_start", Message: "period_start must be before period_end"})
	}
	if now := a.now().UTC(); !w.IsClosed(now, a.grace) {
		verr.Fields = append(verr.Fields, models.FieldViolation{
			Field:   "period_end",
			Message: fmt.Sprintf("window accepts messages until %s", w.End.Add(a.grace).Format(time.RFC3339)),
		})
	}
	for ch, wt := range weights {
		if math.IsNaN(wt) || math.IsInf(wt, 0) || wt < 0 {
			verr.Fields = append(verr.Fields, models.FieldViolation{
				Field:   "channel_weights." + ch,
				Message: "channel weight must be a non-negative number",
			})
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
