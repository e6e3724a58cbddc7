package usecase

import (
	"math"
	"testing"

	models "SentiPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func aggregate(score float64, scores map[string]float64) *models.AggregatedSentiment {
	return &models.AggregatedSentiment{
		ID:              "agg-1",
		InstrumentID:    "inst-1",
		AggregatedScore: score,
		Rating:          Rating(score),
		Scores:          datatypes.NewJSONType(scores),
	}
}

func TestRecScoreAndAction(t *testing.T) {
	assert.Equal(t, 75.0, RecScore(0.5))
	assert.Equal(t, 0.0, RecScore(-1))
	assert.Equal(t, 100.0, RecScore(1))

	assert.Equal(t, models.Hold, Action(66))
	assert.Equal(t, models.Buy, Action(66.0001))
	assert.Equal(t, models.Hold, Action(34))
	assert.Equal(t, models.Sell, Action(33.9999))
}

func TestRecommendThresholdIsStrict(t *testing.T) {
	op, err := NewRecommender().Recommend(aggregate(0.32, map[string]float64{"news": 0.32}), nil)
	require.NoError(t, err)
	assert.Equal(t, 66.0, op.RecScore)
	assert.Equal(t, models.Hold, op.Recommendation)
	assert.Equal(t, 0.5, op.Confidence)
}

func TestRecommendDecidesOnUnroundedScore(t *testing.T) {
	tests := []struct {
		name   string
		score  float64
		rec    float64
		action models.Recommendation
	}{
		{"just_above_buy", 0.3200001, 66.0, models.Buy},
		{"just_below_buy", 0.3199999, 66.0, models.Hold},
		{"just_below_sell", -0.3200001, 34.0, models.Sell},
		{"just_above_sell", -0.3199999, 34.0, models.Hold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := NewRecommender().Recommend(aggregate(tt.score, map[string]float64{"news": tt.score}), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.rec, op.RecScore)
			assert.Equal(t, tt.action, op.Recommendation)
			assert.InDelta(t, 0.5, op.Confidence, 1e-9)
		})
	}
}

func TestRecommendBuy(t *testing.T) {
	op, err := NewRecommender().Recommend(aggregate(0.5, map[string]float64{"news": 0.8, "social": 0.2}), nil)
	require.NoError(t, err)

	assert.Equal(t, models.Buy, op.Recommendation)
	assert.Equal(t, 75.0, op.RecScore)
	assert.InDelta(t, 0.6297, op.Confidence, 1e-9)
	assert.Equal(t, "news", op.DominantChannel)
	assert.Equal(t, "agg-1", op.AggregatedSentimentID)
	assert.Equal(t, "inst-1", op.InstrumentID)
	assert.Contains(t, op.Explanation, "0.5000")
	assert.Contains(t, op.Explanation, `"news"`)
}

func TestRecommendSellConfidenceSaturates(t *testing.T) {
	op, err := NewRecommender().Recommend(aggregate(-1, map[string]float64{"news": -1}), nil)
	require.NoError(t, err)
	assert.Equal(t, models.Sell, op.Recommendation)
	assert.Equal(t, 0.99, op.Confidence)
}

func TestConfidenceBounds(t *testing.T) {
	for rec := 0.0; rec <= 100; rec += 0.5 {
		pct := ConfidencePct(Action(rec), rec)
		assert.GreaterOrEqual(t, pct, 10.0)
		assert.LessOrEqual(t, pct, 99.0)
	}
	// the middle of the HOLD band is the least certain
	assert.Equal(t, 10.0, ConfidencePct(models.Hold, 50))
}

func TestDominantChannelUsesWeightsAndBreaksTiesByName(t *testing.T) {
	ch, c, ok := DominantChannel(map[string]float64{"news": 0.5, "social": -0.9}, models.ChannelWeights{"news": 0.4})
	require.True(t, ok)
	assert.Equal(t, "social", ch)
	assert.InDelta(t, -0.9, c, 1e-9)

	ch, _, _ = DominantChannel(map[string]float64{"news": 0.5, "social": -0.9}, models.ChannelWeights{"social": 0.5})
	assert.Equal(t, "news", ch)

	ch, _, _ = DominantChannel(map[string]float64{"social": 0.4, "economic": -0.4}, nil)
	assert.Equal(t, "economic", ch)

	_, _, ok = DominantChannel(nil, nil)
	assert.False(t, ok)
}

func TestRecommendRejectsOutOfRangeScore(t *testing.T) {
	r := NewRecommender()
	for _, s := range []float64{1.01, -1.5, math.NaN()} {
		_, err := r.Recommend(aggregate(s, nil), nil)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	}
	_, err := r.Recommend(nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
