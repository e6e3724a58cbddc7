package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	domsvc "SentiPulse/internal/domain/service"
)

// HTTPScorer asks an external scoring service for the sentiment of a text.
// The service answers POST {base}/score {"text": ...} with {"score", "confidence", "tags"}.
type HTTPScorer struct {
	base     *HTTPServiceBase
	attempts int
}

func NewHTTPScorer(baseURL string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{base: NewHTTPServiceBase(baseURL, timeout), attempts: 3}
}

var _ domsvc.SentimentScorer = (*HTTPScorer)(nil)

type scoreRequest struct {
	Text string `json:"text"`
}

func (s *HTTPScorer) Score(ctx context.Context, text string) (domsvc.Scored, error) {
	var out domsvc.Scored
	if err := s.base.PostJSONWithRetry(ctx, "/score", scoreRequest{Text: text}, &out, s.attempts); err != nil {
		return domsvc.Scored{}, err
	}
	if math.IsNaN(out.Score) || out.Score < -1 || out.Score > 1 {
		return domsvc.Scored{}, fmt.Errorf("scorer returned score %v outside [-1, 1]", out.Score)
	}
	if math.IsNaN(out.Confidence) || out.Confidence < 0 || out.Confidence > 1 {
		return domsvc.Scored{}, fmt.Errorf("scorer returned confidence %v outside [0, 1]", out.Confidence)
	}
	return out, nil
}
