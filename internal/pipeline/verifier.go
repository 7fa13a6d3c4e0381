package pipeline

import (
	"context"
	"fmt"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/store"
	"github.com/ppiankov/proofvote/internal/verify"
	"github.com/ppiankov/proofvote/internal/worker"
	"go.uber.org/zap"
)

// Verifier re-verifies an existing proofs file with a worker pool
type Verifier struct {
	ensemble    *verify.EnsembleVerifier
	concurrency int
	limiter     *worker.Limiter
	observer    Observer
	logger      *zap.Logger
}

// NewVerifier creates a file verifier
func NewVerifier(ensemble *verify.EnsembleVerifier, concurrency int, limiter *worker.Limiter, observer Observer, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		ensemble:    ensemble,
		concurrency: concurrency,
		limiter:     limiter,
		observer:    observer,
		logger:      logger,
	}
}

// VerifyFile verifies every proof in proofsPath and appends the records to
// outDir/verification.jsonl, in input order. Proofs that fail are written to
// outDir/failed-proofs.jsonl and returned as failed outcomes.
func (v *Verifier) VerifyFile(ctx context.Context, proofsPath, outDir string) ([]model.Outcome, error) {
	proofs, err := store.ReadProofs(proofsPath)
	if err != nil {
		return nil, err
	}

	paths := PathsIn(outDir)
	records, err := store.OpenJSONL(paths.Verification)
	if err != nil {
		return nil, err
	}
	defer func() { _ = records.Close() }()

	failed, err := store.OpenJSONL(paths.Failed)
	if err != nil {
		return nil, err
	}
	defer func() { _ = failed.Close() }()

	v.logger.Info("verifying proofs",
		zap.String("file", proofsPath),
		zap.Int("proofs", len(proofs)),
		zap.Int("concurrency", v.concurrency),
	)

	processor := worker.NewBatchProcessor(v.ensemble, v.concurrency, v.limiter)
	results := processor.ProcessProofs(ctx, proofs)

	outcomes := make([]model.Outcome, 0, len(results))
	for i, result := range results {
		if result.Error != nil {
			if ctx.Err() != nil {
				return outcomes, ctx.Err()
			}

			v.logger.Warn("proof excluded from run",
				zap.Int("id", result.Key.ID),
				zap.String("prompt_type", string(result.Key.PromptType)),
				zap.Error(result.Error),
			)
			if v.observer != nil {
				v.observer.ObserveFailure(string(model.StageVerification))
			}

			entry := model.FailedProof{ID: result.Key.ID, PromptType: result.Key.PromptType, Reason: result.Error.Error()}
			if err := failed.AppendValue(entry); err != nil {
				return outcomes, fmt.Errorf("record failure of proof %d: %w", i, err)
			}
			outcomes = append(outcomes, model.Failed(result.Key, model.StageVerification, result.Error))
			continue
		}

		if err := v.ensemble.WriteResult(records, *result.Record); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, model.Ok(*result.Record))
	}
	return outcomes, nil
}
