// Package latex checks that a generated proof typesets
package latex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ppiankov/proofvote/internal/model"
	"go.uber.org/zap"
)

// Template wraps proof text in a minimal document
const Template = `\documentclass{article}
\usepackage[T1]{fontenc}
\usepackage[utf8]{inputenc}
\usepackage{amsmath}
\usepackage{amssymb}

\begin{document}
%s
\end{document}
`

// FailureReason is written to failed-proofs.jsonl when typesetting fails
const FailureReason = "Incorrect LaTeX syntax."

// Checker renders a proof into a .tex file and runs the typesetter on it
type Checker struct {
	command string
	args    []string
	logger  *zap.Logger
}

// NewChecker creates a checker running command with args and the .tex path
// appended
func NewChecker(cfg model.LaTeXConfig, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	command := cfg.Command
	if command == "" {
		command = "latexmk"
	}
	return &Checker{command: command, args: cfg.Args, logger: logger}
}

// Render returns the document for proof
func Render(proof model.Proof) string {
	contents := strings.Join(append([]string{proof.Premise}, proof.Steps...), " ")
	return fmt.Sprintf(Template, contents)
}

// Check writes the proof to texPath and typesets it. A non-zero exit is a
// failed result, not an error; errors are reserved for not being able to run
// the check at all.
func (c *Checker) Check(ctx context.Context, texPath string, proof model.Proof) (model.SyntaxResult, error) {
	result := model.SyntaxResult{ID: proof.ID, PromptType: proof.PromptType}

	if err := os.WriteFile(texPath, []byte(Render(proof)), 0o644); err != nil {
		return result, fmt.Errorf("write %s: %w", texPath, err)
	}

	args := append(append([]string(nil), c.args...), filepath.Base(texPath))
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Dir = filepath.Dir(texPath)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if err == nil {
		result.Success = true
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		c.logger.Debug("latex check failed",
			zap.Int("id", proof.ID),
			zap.String("prompt_type", string(proof.PromptType)),
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.String("output", tail(output.String(), 2000)),
		)
		return result, nil
	}
	return result, fmt.Errorf("run %s: %w", c.command, err)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
