package usecase

import (
	"fmt"
	"math"
	"sort"

	"SentiPulse/internal/domain/models"
)

const (
	sellBelow = 34.0
	buyAbove  = 66.0
)

// RecScore maps an aggregated score in [-1, 1] to 0..100, rounded to 4 decimals.
func RecScore(score float64) float64 {
	return round4(recScore(score))
}

func recScore(score float64) float64 {
	return (score + 1) / 2 * 100
}

// Action picks BUY above 66, SELL below 34 and HOLD in between. Callers pass the unrounded
// score so that rounding cannot move a value onto a threshold.
func Action(recScore float64) models.Recommendation {
	switch {
	case recScore > buyAbove:
		return models.Buy
	case recScore < sellBelow:
		return models.Sell
	default:
		return models.Hold
	}
}

// ConfidencePct grows with the distance to the nearest threshold for BUY and SELL and
// shrinks with it for HOLD. The result is within [10, 99].
func ConfidencePct(action models.Recommendation, recScore float64) float64 {
	d := math.Min(math.Abs(recScore-sellBelow), math.Abs(recScore-buyAbove))
	var pct float64
	if action == models.Hold {
		pct = 50 - d*40/16
	} else {
		pct = 50 + d*49/34
	}
	return clamp(pct, 10, 99)
}

// DominantChannel returns the channel with the largest |weight * score|. Ties go to the
// lexicographically smaller name. ok is false when scores is empty.
func DominantChannel(scores map[string]float64, weights models.ChannelWeights) (channel string, contribution float64, ok bool) {
	names := make([]string, 0, len(scores))
	for ch := range scores {
		names = append(names, ch)
	}
	sort.Strings(names)

	best := -1.0
	for _, ch := range names {
		c := weights.Of(ch) * scores[ch]
		if math.Abs(c) > best {
			best = math.Abs(c)
			channel, contribution, ok = ch, c, true
		}
	}
	return channel, contribution, ok
}

// Recommender derives an opinion from an aggregate. It is deterministic and keeps no state.
type Recommender struct{}

func NewRecommender() *Recommender { return &Recommender{} }

// Recommend fails with ErrInvalidInput when the aggregated score is NaN or outside [-1, 1].
func (r *Recommender) Recommend(a *models.AggregatedSentiment, weights models.ChannelWeights) (*models.LLMOpinion, error) {
	if a == nil {
		return nil, fmt.Errorf("aggregate is nil: %w", models.ErrInvalidInput)
	}
	s := a.AggregatedScore
	if math.IsNaN(s) || s < -1 || s > 1 {
		return nil, fmt.Errorf("aggregated score %v outside [-1, 1]: %w", s, models.ErrInvalidInput)
	}

	raw := recScore(s)
	rec := round4(raw)
	action := Action(raw)
	pct := ConfidencePct(action, raw)
	scores := a.ChannelScores()
	dominant, contribution, ok := DominantChannel(scores, weights)

	explanation := fmt.Sprintf("%s: aggregated sentiment %.4f maps to a recommendation score of %.2f (rating %d/5).",
		action, s, rec, Rating(s))
	if ok {
		explanation += fmt.Sprintf(" Dominant channel %q scored %.4f with a weighted contribution of %+.4f.",
			dominant, scores[dominant], contribution)
	}

	return &models.LLMOpinion{
		InstrumentID:          a.InstrumentID,
		AggregatedSentimentID: a.ID,
		Recommendation:        action,
		Explanation:           explanation,
		Confidence:            round4(pct / 100),
		DominantChannel:       dominant,
		RecScore:              rec,
	}, nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
