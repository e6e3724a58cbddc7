package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	applogger "SentiPulse/pkg/logger"
	xutil "SentiPulse/pkg/util"
)

// PipelineConfig holds the tumbling window layout and default channel weights.
type PipelineConfig struct {
	WindowSize     time.Duration
	Grace          time.Duration
	ChannelWeights models.ChannelWeights
}

// Pipeline runs aggregate, recommend, persist and publish for one window.
type Pipeline struct {
	instruments domrepo.InstrumentStore
	aggregator  *Aggregator
	recommender *Recommender
	dashboard   *Dashboard
	publisher   domrepo.EventPublisher
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	cfg         PipelineConfig
}

func NewPipeline(
	instruments domrepo.InstrumentStore,
	aggregator *Aggregator,
	recommender *Recommender,
	dashboard *Dashboard,
	publisher domrepo.EventPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
	cfg PipelineConfig,
) *Pipeline {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 30 * time.Minute
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &Pipeline{
		instruments: instruments,
		aggregator:  aggregator,
		recommender: recommender,
		dashboard:   dashboard,
		publisher:   publisher,
		metrics:     metrics,
		logger:      l,
		cfg:         cfg,
	}
}

// WindowSize returns the tumbling window length.
func (p *Pipeline) WindowSize() time.Duration { return p.cfg.WindowSize }

// LastClosedWindow returns the newest window that no longer accepts messages at now.
func (p *Pipeline) LastClosedWindow(now time.Time) models.Window {
	return models.LastClosedWindow(now, p.cfg.WindowSize, p.cfg.Grace)
}

// RunWindow aggregates w for the instrument, stores the aggregate and its opinion in one
// transaction and publishes the updates.
// nil weights fall back to the configured channel weights.
func (p *Pipeline) RunWindow(ctx context.Context, instrumentID string, w models.Window, weights models.ChannelWeights) (*models.AggregatedSentiment, *models.LLMOpinion, error) {
	if weights == nil {
		weights = p.cfg.ChannelWeights
	}
	inst, err := p.instruments.GetByID(ctx, instrumentID)
	if err != nil {
		return nil, nil, err
	}

	agg, op, err := p.aggregator.AggregateWithOpinion(ctx, inst.ID, w.Start, w.End, weights,
		func(agg *models.AggregatedSentiment) (*models.LLMOpinion, error) {
			return p.recommender.Recommend(agg, weights)
		})
	if err != nil {
		return nil, nil, err
	}

	p.metrics.RecordScore(inst.Ticker, agg.AggregatedScore)
	p.logger.Info("window recommendation",
		applogger.String("ticker", inst.Ticker),
		applogger.Time("period_end", agg.PeriodEnd),
		applogger.String("recommendation", string(op.Recommendation)),
		applogger.Float64("rec_score", op.RecScore),
		applogger.Float64("confidence", op.Confidence),
	)
	p.announce(ctx, inst, agg, op)
	return agg, op, nil
}

// RunByTicker resolves the ticker and runs the given window.
func (p *Pipeline) RunByTicker(ctx context.Context, ticker string, w models.Window, weights models.ChannelWeights) (*models.AggregatedSentiment, *models.LLMOpinion, error) {
	inst, err := p.instruments.GetByTicker(ctx, xutil.NormalizeTicker(ticker))
	if err != nil {
		return nil, nil, err
	}
	return p.RunWindow(ctx, inst.ID, w, weights)
}

// RunClosedWindows runs the last closed window of every instrument. Empty and already
// aggregated windows are skipped; other failures are joined into the returned error.
func (p *Pipeline) RunClosedWindows(ctx context.Context, now time.Time) (int, error) {
	insts, err := p.instruments.List(ctx)
	if err != nil {
		return 0, err
	}
	w := p.LastClosedWindow(now)

	created := 0
	var errs []error
	for _, inst := range insts {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		_, _, err := p.RunWindow(ctx, inst.ID, w, nil)
		switch {
		case err == nil:
			created++
		case errors.Is(err, models.ErrEmptyWindow), errors.Is(err, models.ErrDuplicateWindow):
			p.logger.Debug("window skipped",
				applogger.String("ticker", inst.Ticker),
				applogger.Time("period_end", w.End),
				applogger.Error(err))
		default:
			p.logger.Error("window run failed",
				applogger.String("ticker", inst.Ticker),
				applogger.Time("period_end", w.End),
				applogger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", inst.Ticker, err))
		}
	}
	return created, errors.Join(errs...)
}

func (p *Pipeline) announce(ctx context.Context, inst *models.Instrument, agg *models.AggregatedSentiment, op *models.LLMOpinion) {
	if p.dashboard != nil {
		p.dashboard.Invalidate(inst.Ticker)
	}
	if p.publisher == nil {
		return
	}

	events := []models.Event{
		models.NewEvent(models.EventTimeseriesNew, inst.Ticker, TrendPointOf(agg)),
		models.NewEvent(models.EventKPIsUpdate, inst.Ticker, KPIsOf(inst.Ticker, agg, op)),
	}
	if p.dashboard != nil {
		words, err := p.dashboard.wordCloud(ctx, inst.ID, agg.PeriodEnd.Add(-DefaultDashboardSpan), agg.PeriodEnd)
		if err != nil {
			p.logger.Warn("word cloud refresh failed", applogger.String("ticker", inst.Ticker), applogger.Error(err))
		} else {
			events = append(events, models.NewEvent(models.EventWordcloudUpdate, inst.Ticker, words))
		}
	}
	events = append(events, models.NewEvent(models.EventTableUpdate, inst.Ticker, TableRowOf(inst, agg, op)))

	for _, e := range events {
		if err := p.publisher.Publish(ctx, e); err != nil {
			p.logger.Warn("event publish failed",
				applogger.String("event", e.Name),
				applogger.String("ticker", inst.Ticker),
				applogger.Error(err))
		}
	}
}
