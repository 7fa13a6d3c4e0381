// Package nli wraps pretrained natural-language-inference classifiers behind
// a single entailment scoring interface.
package nli

import (
	"context"

	"github.com/ppiankov/proofvote/internal/model"
)

// Scorer returns the probability in [0,1] that hypothesis follows from premise.
// Implementations must be safe for concurrent use and must not change their
// behaviour between calls.
type Scorer interface {
	Entailment(ctx context.Context, premise, hypothesis string) (float64, error)
}

// ScorerFunc adapts a function to Scorer
type ScorerFunc func(ctx context.Context, premise, hypothesis string) (float64, error)

// Entailment calls f
func (f ScorerFunc) Entailment(ctx context.Context, premise, hypothesis string) (float64, error) {
	return f(ctx, premise, hypothesis)
}

// Classifier pairs a stable identity with its scorer
type Classifier struct {
	ID     model.ClassifierID
	Scorer Scorer
}

// ScoreObserver receives the latency and outcome of every remote score call
type ScoreObserver interface {
	ObserveScore(classifier string, seconds float64, err error)
}
