// Concern scoring of message text via an external classifier.
package scoring

import (
	"context"
)

// ScoreProvider returns the probability in [0,1] that a piece of text is
// abusive. Implementations call external services; failures surface as errors
// with no automated fallback.
type ScoreProvider interface {
	AnalyzeText(ctx context.Context, text string) (float64, error)
}

// Fixed-answer provider for tests and offline runs: exact-text lookups with a
// default for everything else.
type StaticScoreProvider struct {
	Scores  map[string]float64
	Default float64
}

var _ ScoreProvider = (*StaticScoreProvider)(nil)

func (p *StaticScoreProvider) AnalyzeText(ctx context.Context, text string) (float64, error) {
	if score, ok := p.Scores[text]; ok {
		return score, nil
	}
	return p.Default, nil
}
