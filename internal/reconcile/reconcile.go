// Package reconcile merges two independent attempts over the same proof set.
// An attempt-1 record that is not accepted is replaced by its attempt-2
// counterpart; without one it is excluded from every aggregate.
package reconcile

import (
	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/store"
	"go.uber.org/zap"
)

// Predicate decides whether an attempt-1 record stands on its own
type Predicate func(model.VerificationRecord) bool

// HumanConfirmed accepts records a reviewer marked correct
func HumanConfirmed(r model.VerificationRecord) bool { return r.SuccessHuman }

// EnsembleAccepted accepts records the ensemble voted correct
func EnsembleAccepted(r model.VerificationRecord) bool { return r.Success }

// PredicateByName maps a configuration value to a predicate
func PredicateByName(name string) (Predicate, bool) {
	switch name {
	case "", "human":
		return HumanConfirmed, true
	case "ensemble":
		return EnsembleAccepted, true
	}
	return nil, false
}

// Skip is an attempt-1 record dropped because attempt 2 had no match
type Skip struct {
	Key model.RecordKey
	Err error
}

// Result is the read-time join of two attempts. FromSecond[i] reports
// whether Records[i] came from attempt 2.
type Result struct {
	Records    []model.VerificationRecord
	FromSecond []bool
	Skipped    []Skip
}

// Reconciler joins attempts and reports the identities it had to drop
type Reconciler struct {
	logger *zap.Logger
}

// New creates a reconciler
func New(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Reconcile resolves every attempt-1 record, in attempt-1 order
func (r *Reconciler) Reconcile(first, second []model.VerificationRecord, accepted Predicate) Result {
	var result Result
	for _, rec := range first {
		if accepted(rec) {
			result.Records = append(result.Records, rec)
			result.FromSecond = append(result.FromSecond, false)
			continue
		}

		fallback, ok := store.Find(second, rec.ID, rec.PromptType)
		if !ok {
			key := rec.Key()
			r.logger.Warn("no attempt-2 record, excluding from aggregates",
				zap.Int("id", key.ID),
				zap.String("prompt_type", string(key.PromptType)),
			)
			result.Skipped = append(result.Skipped, Skip{Key: key, Err: &model.IdentityResolutionFailure{Key: key}})
			continue
		}

		result.Records = append(result.Records, fallback)
		result.FromSecond = append(result.FromSecond, true)
	}
	return result
}

// Resolve reconciles the attempts and extracts field from every resolved
// record. It is the one traversal all metrics are built on.
func Resolve[T any](r *Reconciler, first, second []model.VerificationRecord, accepted Predicate, field func(model.VerificationRecord) T) ([]T, []Skip) {
	result := r.Reconcile(first, second, accepted)
	values := make([]T, len(result.Records))
	for i, rec := range result.Records {
		values[i] = field(rec)
	}
	return values, result.Skipped
}
