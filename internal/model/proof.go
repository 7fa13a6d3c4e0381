package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// PromptType is the prompting strategy used to generate a proof
type PromptType string

const (
	PromptZeroShot       PromptType = "zero shot"
	PromptChainOfThought PromptType = "chain of thought"
	PromptFewShot        PromptType = "few shot"
)

// PromptTypes lists every prompt type in generation order
func PromptTypes() []PromptType {
	return []PromptType{PromptZeroShot, PromptChainOfThought, PromptFewShot}
}

// ParsePromptType accepts both the persisted spelling ("zero shot") and the
// hyphenated one ("zero-shot")
func ParsePromptType(s string) (PromptType, error) {
	normalized := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "-", " ")))
	for _, pt := range PromptTypes() {
		if string(pt) == normalized {
			return pt, nil
		}
	}
	return "", fmt.Errorf("unknown prompt type: %q", s)
}

// Theorem is one line of the generation input file
type Theorem struct {
	ID        int    `json:"id"`
	Statement string `json:"statement"`
	Example   string `json:"example"`
}

// Proof is a structured proof produced by the generation step
type Proof struct {
	ID         int        `json:"id"`
	PromptType PromptType `json:"prompt type"`
	ProofTypes []string   `json:"proof type,omitempty"`
	Premise    string     `json:"premise"`
	Steps      []string   `json:"proof"`
}

// Key returns the cross-attempt identity of the proof
func (p Proof) Key() RecordKey {
	return RecordKey{ID: p.ID, PromptType: p.PromptType}
}

// Text joins premise and steps the way they are typeset
func (p Proof) Text() string {
	return strings.Join(append([]string{p.Premise}, p.Steps...), " ")
}

// RecordKey identifies a proof across attempts
type RecordKey struct {
	ID         int        `json:"id"`
	PromptType PromptType `json:"prompt type"`
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%d/%s", k.ID, k.PromptType)
}

// ProofBody is the stored proof of a verification record. Human-annotated
// files may carry it as a list of steps or as a single string.
type ProofBody struct {
	Steps []string
	Text  string
}

// Len is the length of the stored representation: step count for a list,
// character count for a string.
func (b ProofBody) Len() int {
	if b.Steps != nil {
		return len(b.Steps)
	}
	return utf8.RuneCountInString(b.Text)
}

// IsZero reports whether no proof is stored
func (b ProofBody) IsZero() bool {
	return b.Steps == nil && b.Text == ""
}

// MarshalJSON writes steps as an array and text as a string
func (b ProofBody) MarshalJSON() ([]byte, error) {
	if b.Steps != nil {
		return json.Marshal(b.Steps)
	}
	if b.Text != "" {
		return json.Marshal(b.Text)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts an array of strings, a string or null
func (b *ProofBody) UnmarshalJSON(data []byte) error {
	*b = ProofBody{}
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, "["):
		var steps []string
		if err := json.Unmarshal(data, &steps); err != nil {
			return fmt.Errorf("proof steps: %w", err)
		}
		if steps == nil {
			steps = []string{}
		}
		b.Steps = steps
		return nil
	default:
		if err := json.Unmarshal(data, &b.Text); err != nil {
			return fmt.Errorf("proof text: %w", err)
		}
		return nil
	}
}
