package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/proofvote/internal/model"
)

// mockVerifier implements Verifier
type mockVerifier struct {
	failID int
	delay  time.Duration
}

func (m *mockVerifier) Verify(ctx context.Context, proof model.Proof) (model.VerificationRecord, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if proof.ID == m.failID {
		return model.VerificationRecord{}, errors.New("classifier unavailable")
	}
	return model.VerificationRecord{
		ID:              proof.ID,
		PromptType:      proof.PromptType,
		Classifications: []bool{true},
		Success:         true,
	}, nil
}

func proofs(n int) []model.Proof {
	out := make([]model.Proof, n)
	for i := range out {
		out[i] = model.Proof{
			ID:         i + 1,
			PromptType: model.PromptZeroShot,
			Premise:    "Let n be an integer.",
			Steps:      []string{"n is even."},
		}
	}
	return out
}

func TestBatchProcessor_ProcessProofs(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{delay: time.Millisecond}, 3, nil)

	input := proofs(25)
	results := processor.ProcessProofs(context.Background(), input)

	if len(results) != len(input) {
		t.Fatalf("expected %d results, got %d", len(input), len(results))
	}

	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d out of order (index %d)", i, res.Index)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Key, res.Error)
			continue
		}
		if res.Record == nil || res.Record.ID != input[i].ID {
			t.Errorf("expected record for proof %d", input[i].ID)
		}
	}
}

func TestBatchProcessor_ProcessProofs_PartialFailure(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{failID: 2}, 2, NewLimiter(0, 1))

	results := processor.ProcessProofs(context.Background(), proofs(3))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Error == nil {
		t.Error("expected error for proof 2")
	}
	if results[1].Record != nil {
		t.Error("expected nil record on error")
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Error("expected the other proofs to succeed")
	}
}

func TestBatchProcessor_ProcessProofs_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{}, 2, nil)

	results := processor.ProcessProofs(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessProofs_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockVerifier{delay: 20 * time.Millisecond}, 1, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results := processor.ProcessProofs(ctx, proofs(10))
	if len(results) != 10 {
		t.Fatalf("expected a result slot per proof, got %d", len(results))
	}

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
		}
	}
	if failed == 0 {
		t.Error("expected proofs not run before the deadline to report an error")
	}
}
