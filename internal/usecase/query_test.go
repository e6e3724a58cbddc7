package usecase

import (
	"context"
	"iter"
	"testing"
	"time"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limitRecorder struct {
	limits []int
}

func (r *limitRecorder) Append(context.Context, *models.Message) (string, error) { return "", nil }

func (r *limitRecorder) QueryWindow(context.Context, string, models.Window) iter.Seq2[*models.Message, error] {
	return seqOf()
}

func (r *limitRecorder) Latest(_ context.Context, _ string, limit int) ([]*models.Message, error) {
	r.limits = append(r.limits, limit)
	return nil, nil
}

func (r *limitRecorder) Titles(context.Context, string, models.SourceType, time.Time, time.Time) ([]string, error) {
	return nil, nil
}

func TestLatestMessagesLimit(t *testing.T) {
	rec := &limitRecorder{}
	q := NewQuery(nil, rec, nil, nil)

	for _, limit := range []int{0, -3, 1, 50, 500, 501, 10000} {
		_, err := q.LatestMessages(context.Background(), "inst", limit)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{50, 50, 1, 50, 500, 500, 500}, rec.limits)
}

func TestQueryByTicker(t *testing.T) {
	e := newEnv(t)
	inst := testutil.Instrument(t, e.db, "AAPL")
	src := testutil.Source(t, e.db, "wire", models.SourceNews)
	for i := 0; i < 3; i++ {
		testutil.Message(t, e.db, inst, src, base.Add(time.Duration(i)*time.Minute), "m", testutil.S("news", 0.1, 1))
	}
	ctx := context.Background()

	_, agg, err := e.query.LatestAggregatedByTicker(ctx, "aapl")
	require.NoError(t, err)
	assert.Nil(t, agg)

	_, op, err := e.query.LatestOpinionByTicker(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, op)

	got, msgs, err := e.query.LatestMessagesByTicker(ctx, "AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.ID)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Timestamp.After(msgs[1].Timestamp))
	require.NotNil(t, msgs[0].Source)
	assert.Equal(t, "wire", msgs[0].Source.Name)

	_, _, err = e.pipeline.RunWindow(ctx, inst.ID, window(), nil)
	require.NoError(t, err)

	_, agg, err = e.query.LatestAggregatedByTicker(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, agg)
	_, op, err = e.query.LatestOpinionByTicker(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.Equal(t, agg.ID, op.AggregatedSentimentID)
}

func TestQueryUnknownTicker(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, _, err := e.query.LatestAggregatedByTicker(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, _, err = e.query.LatestMessagesByTicker(ctx, "NOPE", 10)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, _, err = e.query.LatestOpinionByTicker(ctx, "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
