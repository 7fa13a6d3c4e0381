// Package verify reduces a proof to a verdict: each classifier chains
// entailment across the proof steps and the ensemble takes a strict majority.
package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/nli"
)

// ChainScore is the outcome of chaining one classifier over a proof
type ChainScore struct {
	Average float64
	Scored  int
	Pass    bool
}

// ChainVerifier scores each step against everything established before it
type ChainVerifier struct {
	scorer    nli.Scorer
	threshold float64
}

// NewChainVerifier creates a verifier that passes a proof when the average
// entailment, as a percentage, reaches threshold
func NewChainVerifier(scorer nli.Scorer, threshold float64) *ChainVerifier {
	return &ChainVerifier{scorer: scorer, threshold: threshold}
}

// Verify returns the pass/fail verdict for proof
func (v *ChainVerifier) Verify(ctx context.Context, proof model.Proof) (bool, error) {
	score, err := v.Score(ctx, proof)
	if err != nil {
		return false, err
	}
	return score.Pass, nil
}

// Score chains entailment over the proof steps.
//
// With one step the premise is the only context. With more, the first step is
// folded into the context and never scored on its own.
func (v *ChainVerifier) Score(ctx context.Context, proof model.Proof) (ChainScore, error) {
	if err := checkProof(proof); err != nil {
		return ChainScore{}, err
	}

	running := proof.Premise
	hypotheses := proof.Steps
	offset := 0
	if len(proof.Steps) > 1 {
		running = proof.Premise + "\n" + proof.Steps[0]
		hypotheses = proof.Steps[1:]
		offset = 1
	}

	var sum float64
	for i, step := range hypotheses {
		if err := ctx.Err(); err != nil {
			return ChainScore{}, err
		}

		score, err := v.scorer.Entailment(ctx, running, step)
		if err != nil {
			return ChainScore{}, fmt.Errorf("step %d: %w", i+offset, err)
		}
		sum += score
		running += " " + step
	}

	average := sum / float64(len(hypotheses))
	return ChainScore{
		Average: average,
		Scored:  len(hypotheses),
		Pass:    average*100 >= v.threshold,
	}, nil
}

func checkProof(proof model.Proof) error {
	switch {
	case len(proof.Steps) == 0:
		return &model.MalformedProofError{Key: proof.Key(), Reason: "proof has no steps"}
	case strings.TrimSpace(proof.Premise) == "":
		return &model.MalformedProofError{Key: proof.Key(), Reason: "premise is empty"}
	case proof.PromptType == "":
		return &model.MalformedProofError{Key: proof.Key(), Reason: "prompt type is missing"}
	}
	return nil
}
