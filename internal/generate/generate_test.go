package generate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ppiankov/proofvote/internal/llm"
	"github.com/ppiankov/proofvote/internal/model"
)

const answer = `**Variable definitions:**
Let $n$ be an integer.
Let $k$ be an integer with $n = 2k$.

Proof type(s):
Direct proof.

Proof:
Since $n = 2k$, we have $n^2 = 4k^2$. Then $n^2 = 2(2k^2)$.
Therefore $n^2$ is even, e.g. $3.5$ is not used.
QED`

func TestParseResponse(t *testing.T) {
	parsed, err := ParseResponse(answer)
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	if parsed.Premise != "Let $n$ be an integer.\nLet $k$ be an integer with $n = 2k$." {
		t.Errorf("unexpected premise %q", parsed.Premise)
	}
	if len(parsed.ProofTypes) != 1 || parsed.ProofTypes[0] != "Direct proof." {
		t.Errorf("unexpected proof types %q", parsed.ProofTypes)
	}

	want := []string{
		"Since $n = 2k$, we have $n^2 = 4k^2$.",
		"Then $n^2 = 2(2k^2)$.",
		"Therefore $n^2$ is even, e.g.",
		"$3.5$ is not used.",
	}
	if len(parsed.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d: %q", len(want), len(parsed.Steps), parsed.Steps)
	}
	for i := range want {
		if parsed.Steps[i] != want[i] {
			t.Errorf("step %d: expected %q, got %q", i, want[i], parsed.Steps[i])
		}
	}
}

func TestParseResponse_MissingMarker(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		marker string
	}{
		{"no definitions", "Proof type(s):\nDirect.\nProof:\nx.\nQED", MarkerDefinitions},
		{"no proof types", "Variable definitions:\nx.\nProof:\ny.\nQED", MarkerProofTypes},
		{"no QED", "Variable definitions:\nx.\nProof type(s):\nDirect.\nProof:\ny.", MarkerEnd},
		{"empty", "", MarkerDefinitions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.text)
			var formatErr *model.ResponseFormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("expected ResponseFormatError, got %v", err)
			}
			if formatErr.Marker != tt.marker {
				t.Errorf("expected marker %q, got %q", tt.marker, formatErr.Marker)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	theorem := model.Theorem{ID: 3, Statement: "The square of an even number is even.", Example: "Example proof."}

	zs, err := BuildPrompt(model.PromptZeroShot, theorem)
	if err != nil || zs != "Prove the following proposition: The square of an even number is even." {
		t.Errorf("unexpected zero shot prompt %q (%v)", zs, err)
	}

	cot, _ := BuildPrompt(model.PromptChainOfThought, theorem)
	if !strings.HasSuffix(cot, "\nLet's think step by step") {
		t.Errorf("unexpected chain of thought prompt %q", cot)
	}

	fs, _ := BuildPrompt(model.PromptFewShot, theorem)
	if !strings.HasPrefix(fs, "Here is an example:\n Example proof.\n") {
		t.Errorf("unexpected few shot prompt %q", fs)
	}

	if _, err := BuildPrompt(model.PromptFewShot, model.Theorem{Statement: "x"}); err == nil {
		t.Error("expected error for few shot without example")
	}
	if _, err := BuildPrompt("one shot", theorem); err == nil {
		t.Error("expected error for unknown prompt type")
	}
}

func TestPromptTypesFor(t *testing.T) {
	if got := PromptTypesFor(model.Theorem{}); len(got) != 2 {
		t.Errorf("expected 2 prompt types without example, got %v", got)
	}
	if got := PromptTypesFor(model.Theorem{Example: "e"}); len(got) != 3 || got[2] != model.PromptFewShot {
		t.Errorf("expected few shot last, got %v", got)
	}
}

type fakeProvider struct {
	calls   int32
	replies []func() (*llm.CompletionResponse, error)
	last    llm.CompletionRequest
}

func (p *fakeProvider) Name() string                         { return "fake" }
func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	n := atomic.AddInt32(&p.calls, 1)
	p.last = req
	return p.replies[int(n)-1]()
}

func reply(text string) func() (*llm.CompletionResponse, error) {
	return func() (*llm.CompletionResponse, error) { return &llm.CompletionResponse{Text: text}, nil }
}

func fail(err error) func() (*llm.CompletionResponse, error) {
	return func() (*llm.CompletionResponse, error) { return nil, err }
}

func TestGenerator_Generate(t *testing.T) {
	provider := &fakeProvider{replies: []func() (*llm.CompletionResponse, error){
		fail(&llm.APIError{Provider: "fake", StatusCode: 503, Message: "overloaded"}),
		reply(answer),
	}}
	g := NewGenerator(provider, Options{
		Model:       model.ModelConfig{Name: "GPT", Model: "openai/gpt-4.1"},
		Temperature: 0.4,
		MaxRetries:  3,
	})

	proof, err := g.Generate(context.Background(), model.Theorem{ID: 5, Statement: "n^2 is even"}, model.PromptChainOfThought)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected one retry, got %d calls", provider.calls)
	}
	if provider.last.Model != "openai/gpt-4.1" || provider.last.Temperature != 0.4 || provider.last.System != SystemPrompt {
		t.Errorf("unexpected request %+v", provider.last)
	}
	if proof.ID != 5 || proof.PromptType != model.PromptChainOfThought || len(proof.Steps) != 4 {
		t.Errorf("unexpected proof %+v", proof)
	}
}

func TestGenerator_FormatErrorNotRetried(t *testing.T) {
	provider := &fakeProvider{replies: []func() (*llm.CompletionResponse, error){
		reply("I cannot prove this."),
	}}
	g := NewGenerator(provider, Options{Model: model.ModelConfig{Name: "GPT"}, MaxRetries: 3})

	_, err := g.Generate(context.Background(), model.Theorem{ID: 1, Statement: "s"}, model.PromptZeroShot)
	var formatErr *model.ResponseFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected ResponseFormatError, got %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("expected a single call, got %d", provider.calls)
	}
}

func TestGenerator_PermanentError(t *testing.T) {
	provider := &fakeProvider{replies: []func() (*llm.CompletionResponse, error){
		fail(&llm.APIError{Provider: "fake", StatusCode: 401, Message: "bad key"}),
	}}
	g := NewGenerator(provider, Options{Model: model.ModelConfig{Name: "GPT"}, MaxRetries: 3})

	if _, err := g.Generate(context.Background(), model.Theorem{ID: 1, Statement: "s"}, model.PromptZeroShot); err == nil {
		t.Fatal("expected error")
	}
	if provider.calls != 1 {
		t.Errorf("expected no retry on 401, got %d calls", provider.calls)
	}
}
