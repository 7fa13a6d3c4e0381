package nli

import (
	"fmt"
	"strings"

	"github.com/ppiankov/proofvote/internal/cache"
	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/retry"
	"github.com/ppiankov/proofvote/internal/worker"
	"go.uber.org/zap"
)

// Options carries the shared collaborators of every classifier
type Options struct {
	Cache    cache.Cache
	Limiter  *worker.Limiter
	Observer ScoreObserver
	Logger   *zap.Logger
}

// BuildClassifiers constructs one scorer per configured classifier, in
// configuration order. Each scorer is layered as
// cache -> observe -> retry -> rate limit -> HTTP.
func BuildClassifiers(verification model.VerificationConfig, nliCfg model.NLIConfig, opts Options) ([]Classifier, error) {
	if len(verification.Classifiers) == 0 {
		return nil, fmt.Errorf("no classifiers configured")
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = nliCfg.MaxRetries
	retryCfg.Logger = logger

	classifiers := make([]Classifier, 0, len(verification.Classifiers))
	for _, cc := range verification.Classifiers {
		if cc.ID == "" {
			return nil, fmt.Errorf("classifier %q has no id", cc.Model)
		}

		endpoint, err := endpointFor(cc, nliCfg.BaseURL)
		if err != nil {
			return nil, err
		}

		httpScorer, err := NewHTTPScorer(HTTPConfig{
			Endpoint:        endpoint,
			Token:           nliCfg.Token,
			EntailmentLabel: verification.EntailmentLabel,
			Timeout:         nliCfg.Timeout,
			HTTPProxy:       nliCfg.HTTPProxy,
			HTTPSProxy:      nliCfg.HTTPSProxy,
			NoProxy:         nliCfg.NoProxy,
		})
		if err != nil {
			return nil, fmt.Errorf("classifier %s: %w", cc.ID, err)
		}

		id := string(cc.ID)
		var scorer Scorer = httpScorer
		scorer = NewLimitedScorer(id, scorer, opts.Limiter)
		scorer = NewRetryScorer(scorer, retryCfg)
		scorer = NewObservedScorer(id, scorer, opts.Observer, logger)
		if opts.Cache != nil {
			scorer = NewCachedScorer(id, scorer, opts.Cache)
		}

		classifiers = append(classifiers, Classifier{ID: cc.ID, Scorer: scorer})
	}

	return classifiers, nil
}

func endpointFor(cc model.ClassifierConfig, baseURL string) (string, error) {
	if cc.Endpoint != "" {
		return cc.Endpoint, nil
	}
	if baseURL == "" {
		return "", fmt.Errorf("classifier %s: no endpoint and no NLI base URL", cc.ID)
	}
	if cc.Model == "" {
		return "", fmt.Errorf("classifier %s: model is required", cc.ID)
	}
	return strings.TrimSuffix(baseURL, "/") + "/models/" + cc.Model, nil
}
