package features

import (
	"context"
	"math"
	"sort"

	domsvc "SentiPulse/internal/domain/service"
)

var defaultLexicon = map[string]float64{
	"beat": 0.6, "beats": 0.6, "bullish": 0.8, "gain": 0.5, "gains": 0.5, "growth": 0.5,
	"high": 0.3, "higher": 0.4, "jump": 0.6, "jumps": 0.6, "outperform": 0.7, "profit": 0.5,
	"rally": 0.7, "rallies": 0.7, "record": 0.4, "rise": 0.5, "rises": 0.5, "soar": 0.8,
	"soars": 0.8, "strong": 0.5, "surge": 0.8, "surges": 0.8, "upgrade": 0.7, "upgraded": 0.7,
	"bearish": -0.8, "crash": -0.9, "cut": -0.4, "cuts": -0.4, "decline": -0.5, "declines": -0.5,
	"downgrade": -0.7, "downgraded": -0.7, "drop": -0.5, "drops": -0.5, "fall": -0.5, "falls": -0.5,
	"fraud": -0.9, "lawsuit": -0.6, "loss": -0.6, "losses": -0.6, "miss": -0.6, "misses": -0.6,
	"plunge": -0.8, "plunges": -0.8, "recall": -0.5, "slump": -0.7, "weak": -0.5, "weaker": -0.5,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "without": {}, "don't": {}, "doesn't": {}, "didn't": {},
}

// LexiconScorer scores text by averaging the polarity of known words. A negation flips
// the next word. It is the fallback when no scoring service is configured.
type LexiconScorer struct {
	lexicon map[string]float64
}

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{lexicon: defaultLexicon}
}

var _ domsvc.SentimentScorer = (*LexiconScorer)(nil)

func (s *LexiconScorer) Score(_ context.Context, text string) (domsvc.Scored, error) {
	tokens := Tokenize(text)
	var sum float64
	hits := 0
	matched := make(map[string]struct{})
	negate := false
	for _, tok := range tokens {
		if _, ok := negations[tok]; ok {
			negate = true
			continue
		}
		if v, ok := s.lexicon[tok]; ok {
			if negate {
				v = -v
			}
			sum += v
			hits++
			matched[tok] = struct{}{}
		}
		negate = false
	}
	if hits == 0 {
		return domsvc.Scored{Score: 0, Confidence: 0.1}, nil
	}

	tags := make([]string, 0, len(matched))
	for t := range matched {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	score := math.Max(-1, math.Min(1, sum/float64(hits)))
	// coverage of known words drives confidence
	confidence := math.Min(0.9, 0.3+0.1*float64(hits))
	return domsvc.Scored{Score: score, Confidence: confidence, Tags: tags}, nil
}
