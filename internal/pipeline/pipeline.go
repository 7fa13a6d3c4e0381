// Package pipeline runs generation and verification over a theorem set and
// writes every per-proof outcome to the results tree.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ppiankov/proofvote/internal/generate"
	"github.com/ppiankov/proofvote/internal/latex"
	"github.com/ppiankov/proofvote/internal/llm"
	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/verify"
	"github.com/ppiankov/proofvote/internal/worker"
	"go.uber.org/zap"
)

// Observer receives per-proof failures and generation calls
type Observer interface {
	generate.Observer
	ObserveFailure(stage string)
}

// Pipeline orchestrates generation, verification and the syntax check for
// one attempt
type Pipeline struct {
	config   *model.Config
	layout   Layout
	provider llm.Provider
	ensemble *verify.EnsembleVerifier
	checker  *latex.Checker // nil when LaTeX checks are disabled
	limiter  *worker.Limiter
	observer Observer
	logger   *zap.Logger
	runID    string
}

// Dependencies are the collaborators a Pipeline is built from
type Dependencies struct {
	Provider llm.Provider
	Ensemble *verify.EnsembleVerifier
	Checker  *latex.Checker
	Limiter  *worker.Limiter
	Observer Observer
	Logger   *zap.Logger
}

// NewPipeline creates a pipeline with a fresh run ID
func NewPipeline(cfg *model.Config, deps Dependencies) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := uuid.NewString()

	return &Pipeline{
		config:   cfg,
		layout:   Layout{Root: cfg.Output.Root},
		provider: deps.Provider,
		ensemble: deps.Ensemble,
		checker:  deps.Checker,
		limiter:  deps.Limiter,
		observer: deps.Observer,
		logger:   logger.With(zap.String("run_id", runID)),
		runID:    runID,
	}
}

// RunID identifies this pipeline's log lines and failure entries
func (p *Pipeline) RunID() string {
	return p.runID
}

// RunResult summarises one attempt
type RunResult struct {
	RunID    string
	Outcomes []model.Outcome
}

// Succeeded counts verified proofs
func (r *RunResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.IsOk() {
			n++
		}
	}
	return n
}

// Failed counts excluded proofs
func (r *RunResult) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// Run generates and verifies every theorem for every temperature, model and
// prompt type. Per-proof failures are written to the side files and the run
// continues; only context cancellation and I/O on the results tree abort it.
func (p *Pipeline) Run(ctx context.Context, attempt int, theorems []model.Theorem) (*RunResult, error) {
	if err := ValidateAttempt(attempt); err != nil {
		return nil, err
	}
	if p.provider == nil || p.ensemble == nil {
		return nil, fmt.Errorf("pipeline needs a provider and an ensemble")
	}

	models := make([]string, len(p.config.Generation.Models))
	for i, m := range p.config.Generation.Models {
		models[i] = m.Name
	}
	if err := p.layout.Bootstrap(models, p.config.Generation.Temperatures); err != nil {
		return nil, err
	}

	result := &RunResult{RunID: p.runID}
	for _, temperature := range p.config.Generation.Temperatures {
		for _, m := range p.config.Generation.Models {
			outcomes, err := p.runConfiguration(ctx, attempt, m, temperature, theorems)
			result.Outcomes = append(result.Outcomes, outcomes...)
			if err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (p *Pipeline) runConfiguration(ctx context.Context, attempt int, m model.ModelConfig, temperature float64, theorems []model.Theorem) ([]model.Outcome, error) {
	paths := p.layout.Paths(m.Name, attempt, temperature)
	out, err := openSink(paths)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			p.logger.Warn("close result files", zap.String("dir", paths.Dir), zap.Error(cerr))
		}
	}()

	logger := p.logger.With(
		zap.String("model", m.Name),
		zap.Int("attempt", attempt),
		zap.Float64("temperature", temperature),
	)
	logger.Info("generating proofs", zap.Int("theorems", len(theorems)))

	gen := generate.NewGenerator(p.provider, generate.Options{
		Model:       m,
		Temperature: temperature,
		MaxTokens:   p.config.Generation.MaxTokens,
		MaxRetries:  p.config.Generation.MaxRetries,
		Limiter:     p.limiter,
		Observer:    p.observer,
		Logger:      logger,
	})

	var outcomes []model.Outcome
	for _, theorem := range theorems {
		for _, pt := range generate.PromptTypesFor(theorem) {
			if err := ctx.Err(); err != nil {
				return outcomes, err
			}

			outcome, err := p.runProof(ctx, gen, out, theorem, pt, logger)
			if err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes, nil
}

// runProof handles one (theorem, prompt type). The returned error is fatal
// to the run; per-proof failures come back as a failed outcome.
func (p *Pipeline) runProof(ctx context.Context, gen *generate.Generator, out *sink, theorem model.Theorem, pt model.PromptType, logger *zap.Logger) (model.Outcome, error) {
	key := model.RecordKey{ID: theorem.ID, PromptType: pt}

	proof, err := gen.Generate(ctx, theorem, pt)
	if err != nil {
		if ctx.Err() != nil {
			return model.Outcome{}, ctx.Err()
		}
		stage := model.StageGeneration
		var formatErr *model.ResponseFormatError
		if errors.As(err, &formatErr) {
			stage = model.StageParse
		}
		return p.fail(out, theorem, key, stage, err, logger)
	}

	if err := out.proofs.AppendValue(proof); err != nil {
		return model.Outcome{}, err
	}

	record, err := p.ensemble.Verify(ctx, proof)
	if err != nil {
		if ctx.Err() != nil {
			return model.Outcome{}, ctx.Err()
		}
		return p.fail(out, theorem, key, model.StageVerification, err, logger)
	}
	if err := p.ensemble.WriteResult(out.verification, record); err != nil {
		return model.Outcome{}, err
	}

	syntaxOK := true
	if p.checker != nil {
		syntax, err := p.checker.Check(ctx, out.paths.Tex, proof)
		if err != nil {
			logger.Warn("latex check could not run", zap.Int("id", key.ID), zap.String("prompt_type", string(pt)), zap.Error(err))
		} else {
			syntaxOK = syntax.Success
			if err := out.syntax.AppendValue(syntax); err != nil {
				return model.Outcome{}, err
			}
		}
	}

	if !record.Success || !syntaxOK {
		failed := model.FailedProof{ID: theorem.ID, PromptType: pt, Statement: theorem.Statement}
		if !syntaxOK {
			failed.Reason = latex.FailureReason
		}
		if err := out.failed.AppendValue(failed); err != nil {
			return model.Outcome{}, err
		}
	}

	return model.Ok(record), nil
}

func (p *Pipeline) fail(out *sink, theorem model.Theorem, key model.RecordKey, stage model.Stage, cause error, logger *zap.Logger) (model.Outcome, error) {
	logger.Warn("proof excluded from run",
		zap.Int("id", key.ID),
		zap.String("prompt_type", string(key.PromptType)),
		zap.String("stage", string(stage)),
		zap.Error(cause),
	)
	if p.observer != nil {
		p.observer.ObserveFailure(string(stage))
	}

	outcome := model.Failed(key, stage, cause)
	outcome.Failure.RunID = p.runID

	if stage == model.StageVerification {
		// verification failures go to the correction queue with their reason
		failed := model.FailedProof{ID: key.ID, PromptType: key.PromptType, Statement: theorem.Statement, Reason: cause.Error()}
		return outcome, out.failed.AppendValue(failed)
	}

	entry := GenerationError{
		ID:         key.ID,
		PromptType: key.PromptType,
		Statement:  theorem.Statement,
		Stage:      stage,
		Reason:     cause.Error(),
		At:         outcome.Failure.At,
		RunID:      p.runID,
	}
	if err := out.logGenerationFailure(entry); err != nil {
		return outcome, err
	}
	return outcome, nil
}
