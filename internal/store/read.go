package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/proofvote/internal/model"
)

// ReadJSONL decodes every non-blank line of path into a T. When validator is
// non-nil each line is checked against it first.
func ReadJSONL[T any](path string, validator *Validator) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	err = eachLine(f, func(line int, data []byte) error {
		if validator != nil {
			if err := validator.Validate(data); err != nil {
				return fmt.Errorf("%s line %d: %w", path, line, err)
			}
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadRecords loads a verification file
func ReadRecords(path string) ([]model.VerificationRecord, error) {
	return ReadJSONL[model.VerificationRecord](path, RecordValidator())
}

// ReadProofs loads a proofs file
func ReadProofs(path string) ([]model.Proof, error) {
	return ReadJSONL[model.Proof](path, ProofValidator())
}

// ReadTheorems loads a theorem input file
func ReadTheorems(path string) ([]model.Theorem, error) {
	return ReadJSONL[model.Theorem](path, TheoremValidator())
}

// ReadCalibrationProblems loads a ground-truth problem set
func ReadCalibrationProblems(path string) ([]model.CalibrationProblem, error) {
	return ReadJSONL[model.CalibrationProblem](path, CalibrationValidator())
}

// Find returns the first record with the given id whose prompt type matches.
// A record without a prompt type matches any prompt type.
func Find(records []model.VerificationRecord, id int, promptType model.PromptType) (model.VerificationRecord, bool) {
	for _, r := range records {
		if r.ID != id {
			continue
		}
		if r.PromptType == "" || r.PromptType == promptType {
			return r, true
		}
	}
	return model.VerificationRecord{}, false
}
