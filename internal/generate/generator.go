package generate

import (
	"context"
	"fmt"

	"github.com/ppiankov/proofvote/internal/llm"
	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/retry"
	"github.com/ppiankov/proofvote/internal/worker"
	"go.uber.org/zap"
)

// Observer is told about every generation call
type Observer interface {
	ObserveGeneration(model string, err error)
}

// Generator turns theorems into structured proofs with one model at one
// temperature
type Generator struct {
	provider    llm.Provider
	model       model.ModelConfig
	temperature float64
	maxTokens   int
	limiter     *worker.Limiter
	retry       retry.Config
	observer    Observer
	logger      *zap.Logger
}

// Options configures a Generator
type Options struct {
	Model       model.ModelConfig
	Temperature float64
	MaxTokens   int
	MaxRetries  int
	Limiter     *worker.Limiter
	Observer    Observer
	Logger      *zap.Logger
}

// NewGenerator creates a generator
func NewGenerator(provider llm.Provider, opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := retry.DefaultConfig()
	if opts.MaxRetries > 0 {
		cfg.MaxAttempts = opts.MaxRetries
	}
	cfg.Retryable = llm.IsTransient
	cfg.Logger = logger

	return &Generator{
		provider:    provider,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		limiter:     opts.Limiter,
		retry:       cfg,
		observer:    opts.Observer,
		logger:      logger,
	}
}

// Generate asks the model for a proof of theorem. Transport failures are
// retried; a badly formatted answer is returned as *model.ResponseFormatError
// without another call.
func (g *Generator) Generate(ctx context.Context, theorem model.Theorem, pt model.PromptType) (model.Proof, error) {
	prompt, err := BuildPrompt(pt, theorem)
	if err != nil {
		return model.Proof{}, err
	}

	resp, err := retry.DoWithResult(ctx, g.retry, func(ctx context.Context) (*llm.CompletionResponse, error) {
		if err := g.limiter.Wait(ctx, g.model.Name); err != nil {
			return nil, err
		}
		return g.provider.Complete(ctx, llm.CompletionRequest{
			System:      SystemPrompt,
			Prompt:      prompt,
			Model:       g.model.Model,
			Temperature: g.temperature,
			MaxTokens:   g.maxTokens,
		})
	})
	if g.observer != nil {
		g.observer.ObserveGeneration(g.model.Name, err)
	}
	if err != nil {
		return model.Proof{}, fmt.Errorf("generate proof %d (%s): %w", theorem.ID, pt, err)
	}

	parsed, err := ParseResponse(resp.Text)
	if err != nil {
		return model.Proof{}, err
	}

	g.logger.Debug("proof generated",
		zap.Int("id", theorem.ID),
		zap.String("prompt_type", string(pt)),
		zap.String("model", g.model.Name),
		zap.Int("steps", len(parsed.Steps)),
		zap.Int("tokens", resp.TokensUsed),
	)

	return model.Proof{
		ID:         theorem.ID,
		PromptType: pt,
		ProofTypes: parsed.ProofTypes,
		Premise:    parsed.Premise,
		Steps:      parsed.Steps,
	}, nil
}
