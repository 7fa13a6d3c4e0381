package reconcile

import (
	"errors"
	"testing"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func clarity(r model.VerificationRecord) float64 { return r.Clarity }

func TestResolve_FallsBackToSecondAttempt(t *testing.T) {
	first := []model.VerificationRecord{{ID: 1, PromptType: model.PromptZeroShot, SuccessHuman: false, Clarity: 2}}
	second := []model.VerificationRecord{{ID: 1, PromptType: model.PromptZeroShot, SuccessHuman: true, Clarity: 5}}

	values, skipped := Resolve(New(nil), first, second, HumanConfirmed, clarity)
	assert.Empty(t, skipped)
	assert.Equal(t, []float64{5}, values)
}

func TestResolve_KeepsAcceptedFirstAttempt(t *testing.T) {
	first := []model.VerificationRecord{{ID: 1, PromptType: model.PromptZeroShot, SuccessHuman: true, Clarity: 2}}
	second := []model.VerificationRecord{{ID: 1, PromptType: model.PromptZeroShot, SuccessHuman: true, Clarity: 5}}

	values, _ := Resolve(New(nil), first, second, HumanConfirmed, clarity)
	assert.Equal(t, []float64{2}, values)
}

func TestReconcile_ExcludesMissingFallback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := New(zap.New(core))

	first := []model.VerificationRecord{
		{ID: 1, PromptType: model.PromptZeroShot, Clarity: 2},
		{ID: 2, PromptType: model.PromptFewShot, SuccessHuman: true, Clarity: 4},
	}
	second := []model.VerificationRecord{
		{ID: 1, PromptType: model.PromptFewShot, SuccessHuman: true, Clarity: 5},
	}

	result := r.Reconcile(first, second, HumanConfirmed)
	require.Len(t, result.Records, 1)
	assert.Equal(t, 2, result.Records[0].ID)
	assert.Equal(t, []bool{false}, result.FromSecond)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, model.RecordKey{ID: 1, PromptType: model.PromptZeroShot}, result.Skipped[0].Key)
	var failure *model.IdentityResolutionFailure
	assert.True(t, errors.As(result.Skipped[0].Err, &failure))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, int64(1), entry.ContextMap()["id"])
	assert.Equal(t, "zero shot", entry.ContextMap()["prompt_type"])
}

func TestReconcile_ReplacesWholeRecord(t *testing.T) {
	first := []model.VerificationRecord{{ID: 3, PromptType: model.PromptChainOfThought, Classifications: []bool{false, false, false}, Redundancy: 40}}
	second := []model.VerificationRecord{{ID: 3, PromptType: model.PromptChainOfThought, Classifications: []bool{true, true, false}, Success: true, SuccessHuman: true, Redundancy: 10}}

	result := New(nil).Reconcile(first, second, HumanConfirmed)
	require.Len(t, result.Records, 1)
	assert.Equal(t, second[0], result.Records[0])
	assert.Equal(t, []bool{true}, result.FromSecond)
}

func TestReconcile_WildcardPromptType(t *testing.T) {
	first := []model.VerificationRecord{{ID: 8, PromptType: model.PromptFewShot}}
	second := []model.VerificationRecord{{ID: 8, SuccessHuman: true, Clarity: 3}}

	values, skipped := Resolve(New(nil), first, second, HumanConfirmed, clarity)
	assert.Empty(t, skipped)
	assert.Equal(t, []float64{3}, values)
}

func TestReconcile_EnsemblePredicate(t *testing.T) {
	first := []model.VerificationRecord{{ID: 1, PromptType: model.PromptZeroShot, Success: true, Clarity: 2}}

	values, skipped := Resolve(New(nil), first, nil, EnsembleAccepted, clarity)
	assert.Empty(t, skipped)
	assert.Equal(t, []float64{2}, values)

	values, skipped = Resolve(New(nil), first, nil, HumanConfirmed, clarity)
	assert.Empty(t, values)
	assert.Len(t, skipped, 1)
}

func TestPredicateByName(t *testing.T) {
	p, ok := PredicateByName("ensemble")
	require.True(t, ok)
	assert.True(t, p(model.VerificationRecord{Success: true}))

	p, ok = PredicateByName("")
	require.True(t, ok)
	assert.False(t, p(model.VerificationRecord{Success: true}))

	_, ok = PredicateByName("majority")
	assert.False(t, ok)
}
