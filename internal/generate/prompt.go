// Package generate builds proof prompts, calls a generation provider and
// parses the structured answer into a Proof.
package generate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/proofvote/internal/model"
)

// SystemPrompt fixes the answer template that ParseResponse relies on
const SystemPrompt = `You are a mathematician with an excellent understanding of undergraduate and high-school level mathematics.
You write clear, concise and correct informal proofs in English that clearly explain the logic behind each step.

INSTRUCTIONS:
  - When you write proofs, each sentence is on a separate line.
  - When you write proofs, you do not embolden, italicize or underline any text.
  - When you are writing proofs, incorporate correct LaTeX code to represent mathematical notation.
  - When writing informal proofs, start by defining all the variables you will use within the proof.
  - When writing informal proofs, state whether you use direct proof, proof by contradiction, proof by contraposition, proof by mathematical induction or proof by exhaustion.
  - If you use a combination of the proof types above, list the approaches you have used.

When writing your proof, structure your proof using the following template:

Variable definitions:
<Your definitions here>

Proof type(s):
<Your approaches here>

Proof:
<Your proof here>
QED`

// BuildPrompt renders the user prompt for one theorem
func BuildPrompt(pt model.PromptType, theorem model.Theorem) (string, error) {
	statement := "Prove the following proposition: " + theorem.Statement

	switch pt {
	case model.PromptZeroShot:
		return statement, nil
	case model.PromptChainOfThought:
		return statement + "\nLet's think step by step", nil
	case model.PromptFewShot:
		if strings.TrimSpace(theorem.Example) == "" {
			return "", fmt.Errorf("theorem %d has no example for a few shot prompt", theorem.ID)
		}
		return "Here is an example:\n " + theorem.Example + "\n" + statement, nil
	default:
		return "", fmt.Errorf("invalid prompt type %q", pt)
	}
}

// PromptTypesFor lists the prompt types a theorem supports. Few shot needs
// an example.
func PromptTypesFor(theorem model.Theorem) []model.PromptType {
	types := []model.PromptType{model.PromptZeroShot, model.PromptChainOfThought}
	if strings.TrimSpace(theorem.Example) != "" {
		types = append(types, model.PromptFewShot)
	}
	return types
}
