package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File names inside one (model, attempt, temperature) directory
const (
	VerificationFile       = "verification.jsonl"
	ProofsFile             = "proofs.jsonl"
	SyntaxFile             = "syntax-verification.jsonl"
	FailedFile             = "failed-proofs.jsonl"
	GenerationErrorFile    = "generation-error.jsonl"
	GenerationErrorLogFile = "generation-error-log.txt"
	TexFile                = "trial.tex"
)

// Attempts are numbered 1 and 2
const (
	FirstAttempt  = 1
	SecondAttempt = 2
)

// Layout maps run coordinates to result directories:
// <root>/<MODEL>/Attempt <n>/Temperature-<t>/
type Layout struct {
	Root string
}

// Paths lists every file of one result directory
type Paths struct {
	Dir                string
	Verification       string
	Proofs             string
	Syntax             string
	Failed             string
	GenerationError    string
	GenerationErrorLog string
	Tex                string
}

// ValidateAttempt rejects attempts other than 1 and 2
func ValidateAttempt(attempt int) error {
	if attempt != FirstAttempt && attempt != SecondAttempt {
		return fmt.Errorf("invalid attempt %d (must be %d or %d)", attempt, FirstAttempt, SecondAttempt)
	}
	return nil
}

// Dir returns the result directory for one configuration
func (l Layout) Dir(model string, attempt int, temperature float64) string {
	return filepath.Join(l.Root, model, fmt.Sprintf("Attempt %d", attempt), "Temperature-"+FormatTemperature(temperature))
}

// Paths returns the file paths for one configuration
func (l Layout) Paths(model string, attempt int, temperature float64) Paths {
	return PathsIn(l.Dir(model, attempt, temperature))
}

// PathsIn returns the file paths inside dir
func PathsIn(dir string) Paths {
	return Paths{
		Dir:                dir,
		Verification:       filepath.Join(dir, VerificationFile),
		Proofs:             filepath.Join(dir, ProofsFile),
		Syntax:             filepath.Join(dir, SyntaxFile),
		Failed:             filepath.Join(dir, FailedFile),
		GenerationError:    filepath.Join(dir, GenerationErrorFile),
		GenerationErrorLog: filepath.Join(dir, GenerationErrorLogFile),
		Tex:                filepath.Join(dir, TexFile),
	}
}

// Bootstrap creates the directories of both attempts for every model and
// temperature
func (l Layout) Bootstrap(models []string, temperatures []float64) error {
	for _, model := range models {
		for _, attempt := range []int{FirstAttempt, SecondAttempt} {
			for _, t := range temperatures {
				if err := os.MkdirAll(l.Dir(model, attempt, t), 0o755); err != nil {
					return fmt.Errorf("create results directory: %w", err)
				}
			}
		}
	}
	return nil
}

// FormatTemperature renders a temperature with at least one decimal, so
// 0 becomes "0.0" and 0.4 stays "0.4"
func FormatTemperature(t float64) string {
	s := strconv.FormatFloat(t, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
