package usecase

import (
	"context"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	xutil "SentiPulse/pkg/util"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 500
)

// Query serves the latest state of an instrument straight from the store.
type Query struct {
	instruments domrepo.InstrumentStore
	messages    domrepo.MessageStore
	aggregates  domrepo.AggregateStore
	opinions    domrepo.OpinionStore
}

func NewQuery(
	instruments domrepo.InstrumentStore,
	messages domrepo.MessageStore,
	aggregates domrepo.AggregateStore,
	opinions domrepo.OpinionStore,
) *Query {
	return &Query{instruments: instruments, messages: messages, aggregates: aggregates, opinions: opinions}
}

// Instrument resolves a ticker. Unknown tickers fail with ErrNotFound.
func (q *Query) Instrument(ctx context.Context, ticker string) (*models.Instrument, error) {
	return q.instruments.GetByTicker(ctx, xutil.NormalizeTicker(ticker))
}

// LatestAggregated returns the aggregate with the greatest period end, or nil.
func (q *Query) LatestAggregated(ctx context.Context, instrumentID string) (*models.AggregatedSentiment, error) {
	return q.aggregates.Latest(ctx, instrumentID)
}

// LatestMessages returns newest messages first. limit <= 0 means 50; it is capped at 500.
func (q *Query) LatestMessages(ctx context.Context, instrumentID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return q.messages.Latest(ctx, instrumentID, xutil.ClampInt(limit, 1, MaxMessageLimit))
}

// LatestOpinion returns the opinion of the latest aggregate, or nil.
func (q *Query) LatestOpinion(ctx context.Context, instrumentID string) (*models.LLMOpinion, error) {
	agg, err := q.aggregates.Latest(ctx, instrumentID)
	if err != nil || agg == nil {
		return nil, err
	}
	return q.opinions.ByAggregate(ctx, agg.ID)
}

// LatestAggregatedByTicker resolves the ticker then returns its latest aggregate.
func (q *Query) LatestAggregatedByTicker(ctx context.Context, ticker string) (*models.Instrument, *models.AggregatedSentiment, error) {
	inst, err := q.Instrument(ctx, ticker)
	if err != nil {
		return nil, nil, err
	}
	agg, err := q.LatestAggregated(ctx, inst.ID)
	return inst, agg, err
}

func (q *Query) LatestMessagesByTicker(ctx context.Context, ticker string, limit int) (*models.Instrument, []*models.Message, error) {
	inst, err := q.Instrument(ctx, ticker)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := q.LatestMessages(ctx, inst.ID, limit)
	return inst, msgs, err
}

func (q *Query) LatestOpinionByTicker(ctx context.Context, ticker string) (*models.Instrument, *models.LLMOpinion, error) {
	inst, err := q.Instrument(ctx, ticker)
	if err != nil {
		return nil, nil, err
	}
	op, err := q.LatestOpinion(ctx, inst.ID)
	return inst, op, err
}
