package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/store"
)

// GenerationError is one line of generation-error.jsonl
type GenerationError struct {
	ID         int              `json:"id"`
	PromptType model.PromptType `json:"prompt type"`
	Statement  string           `json:"statement"`
	Stage      model.Stage      `json:"stage"`
	Reason     string           `json:"reason"`
	At         time.Time        `json:"at"`
	RunID      string           `json:"run_id,omitempty"`
}

// sink holds the open side files of one result directory
type sink struct {
	paths        Paths
	verification *store.JSONLStore
	proofs       *store.JSONLStore
	syntax       *store.JSONLStore
	failed       *store.JSONLStore
	genErrors    *store.JSONLStore
	errorLog     *os.File
}

func openSink(paths Paths) (*sink, error) {
	s := &sink{paths: paths}

	var err error
	open := func(path string) *store.JSONLStore {
		if err != nil {
			return nil
		}
		var st *store.JSONLStore
		st, err = store.OpenJSONL(path)
		return st
	}

	s.verification = open(paths.Verification)
	s.proofs = open(paths.Proofs)
	s.syntax = open(paths.Syntax)
	s.failed = open(paths.Failed)
	s.genErrors = open(paths.GenerationError)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	s.errorLog, err = os.OpenFile(paths.GenerationErrorLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open error log: %w", err)
	}
	return s, nil
}

// logGenerationFailure appends a timestamped line to the text log and the
// structured entry to generation-error.jsonl
func (s *sink) logGenerationFailure(entry GenerationError) error {
	line := fmt.Sprintf("%s: Failed to generate proof for theorem %d prompt type %s: %s\n",
		entry.At.Format(time.RFC3339), entry.ID, entry.PromptType, entry.Reason)
	if _, err := s.errorLog.WriteString(line); err != nil {
		return fmt.Errorf("write error log: %w", err)
	}
	return s.genErrors.AppendValue(entry)
}

func (s *sink) Close() error {
	var errs []error
	for _, st := range []*store.JSONLStore{s.verification, s.proofs, s.syntax, s.failed, s.genErrors} {
		if st != nil {
			errs = append(errs, st.Close())
		}
	}
	if s.errorLog != nil {
		errs = append(errs, s.errorLog.Close())
	}
	return errors.Join(errs...)
}
