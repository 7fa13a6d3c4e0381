package nli

import (
	"context"
	"errors"
	"time"

	"github.com/ppiankov/proofvote/internal/cache"
	"github.com/ppiankov/proofvote/internal/retry"
	"github.com/ppiankov/proofvote/internal/worker"
	"go.uber.org/zap"
)

// CachedScorer memoises scores per (classifier, premise, hypothesis)
type CachedScorer struct {
	id    string
	inner Scorer
	cache cache.Cache
}

// NewCachedScorer wraps inner with a score cache
func NewCachedScorer(id string, inner Scorer, c cache.Cache) *CachedScorer {
	return &CachedScorer{id: id, inner: inner, cache: c}
}

// Entailment returns a cached score or computes and stores it
func (s *CachedScorer) Entailment(ctx context.Context, premise, hypothesis string) (float64, error) {
	key := cache.ScoreKey(s.id, premise, hypothesis)
	if score, ok := s.cache.Get(key); ok {
		return score, nil
	}

	score, err := s.inner.Entailment(ctx, premise, hypothesis)
	if err != nil {
		return 0, err
	}

	// a failed cache write only costs a recomputation later
	_ = s.cache.Set(key, score, 0)
	return score, nil
}

// LimitedScorer waits on a shared limiter before every call
type LimitedScorer struct {
	key     string
	inner   Scorer
	limiter *worker.Limiter
}

// NewLimitedScorer wraps inner with rate limiting under key
func NewLimitedScorer(key string, inner Scorer, limiter *worker.Limiter) *LimitedScorer {
	return &LimitedScorer{key: key, inner: inner, limiter: limiter}
}

// Entailment waits for the limiter and delegates
func (s *LimitedScorer) Entailment(ctx context.Context, premise, hypothesis string) (float64, error) {
	if err := s.limiter.Wait(ctx, s.key); err != nil {
		return 0, err
	}
	return s.inner.Entailment(ctx, premise, hypothesis)
}

// RetryScorer retries transient transport failures
type RetryScorer struct {
	inner Scorer
	cfg   retry.Config
}

// NewRetryScorer wraps inner with retries
func NewRetryScorer(inner Scorer, cfg retry.Config) *RetryScorer {
	if cfg.Retryable == nil {
		cfg.Retryable = isTransient
	}
	return &RetryScorer{inner: inner, cfg: cfg}
}

// Entailment delegates with retries
func (s *RetryScorer) Entailment(ctx context.Context, premise, hypothesis string) (float64, error) {
	return retry.DoWithResult(ctx, s.cfg, func(ctx context.Context) (float64, error) {
		return s.inner.Entailment(ctx, premise, hypothesis)
	})
}

func isTransient(err error) bool {
	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return true
}

// ObservedScorer reports latency and errors of inner to an observer
type ObservedScorer struct {
	id       string
	inner    Scorer
	observer ScoreObserver
	logger   *zap.Logger
}

// NewObservedScorer wraps inner with observation
func NewObservedScorer(id string, inner Scorer, observer ScoreObserver, logger *zap.Logger) *ObservedScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservedScorer{id: id, inner: inner, observer: observer, logger: logger}
}

// Entailment delegates and records the call
func (s *ObservedScorer) Entailment(ctx context.Context, premise, hypothesis string) (float64, error) {
	start := time.Now()
	score, err := s.inner.Entailment(ctx, premise, hypothesis)
	elapsed := time.Since(start)

	if s.observer != nil {
		s.observer.ObserveScore(s.id, elapsed.Seconds(), err)
	}
	if err != nil {
		s.logger.Warn("entailment call failed", zap.String("classifier", s.id), zap.Error(err))
	} else {
		s.logger.Debug("entailment scored",
			zap.String("classifier", s.id),
			zap.Float64("score", score),
			zap.Duration("elapsed", elapsed),
		)
	}
	return score, err
}
