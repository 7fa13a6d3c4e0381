package latex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/proofvote/internal/model"
)

func testProof() model.Proof {
	return model.Proof{
		ID:         2,
		PromptType: model.PromptFewShot,
		Premise:    "Let $n$ be even.",
		Steps:      []string{"Then $n = 2k$.", "So $n^2 = 4k^2$."},
	}
}

func TestRender(t *testing.T) {
	doc := Render(testProof())
	if !strings.Contains(doc, "Let $n$ be even. Then $n = 2k$. So $n^2 = 4k^2$.") {
		t.Errorf("proof text not rendered:\n%s", doc)
	}
	if !strings.HasPrefix(doc, `\documentclass{article}`) || !strings.Contains(doc, `\end{document}`) {
		t.Errorf("template not applied:\n%s", doc)
	}
}

func TestChecker_Success(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trial.tex")
	c := NewChecker(model.LaTeXConfig{Command: "true"}, nil)

	result, err := c.Check(context.Background(), path, testProof())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !result.Success || result.ID != 2 || result.PromptType != model.PromptFewShot {
		t.Errorf("unexpected result %+v", result)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Let $n$ be even.") {
		t.Error("tex file not written")
	}
}

func TestChecker_NonZeroExit(t *testing.T) {
	c := NewChecker(model.LaTeXConfig{Command: "false"}, nil)

	result, err := c.Check(context.Background(), filepath.Join(t.TempDir(), "trial.tex"), testProof())
	if err != nil {
		t.Fatalf("a failing typesetter is a result, not an error: %v", err)
	}
	if result.Success {
		t.Error("expected failed syntax result")
	}
}

func TestChecker_MissingCommand(t *testing.T) {
	c := NewChecker(model.LaTeXConfig{Command: "proofvote-no-such-typesetter"}, nil)

	if _, err := c.Check(context.Background(), filepath.Join(t.TempDir(), "trial.tex"), testProof()); err == nil {
		t.Error("expected error when the typesetter cannot be started")
	}
}
