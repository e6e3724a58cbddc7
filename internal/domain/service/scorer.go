package service

import "context"

// Scored is the sentiment of one piece of text.
type Scored struct {
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags,omitempty"`
}

// SentimentScorer turns text into a score in [-1, 1] with a confidence in [0, 1].
type SentimentScorer interface {
	Score(ctx context.Context, text string) (Scored, error)
}
