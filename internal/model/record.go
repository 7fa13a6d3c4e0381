package model

import "time"

// ClassifierID names one NLI classifier of the ensemble
type ClassifierID string

// Roster is the ordered identity list of an ensemble. Position k of every
// record's classifications belongs to Roster[k].
type Roster []ClassifierID

// Index returns the position of id in the roster, or -1
func (r Roster) Index(id ClassifierID) int {
	for i, candidate := range r {
		if candidate == id {
			return i
		}
	}
	return -1
}

// VerificationRecord is the persisted verdict for one proof.
// SuccessHuman, Clarity, Descriptiveness and Redundancy are filled in later by
// human review and are never computed here.
type VerificationRecord struct {
	ID              int        `json:"id"`
	PromptType      PromptType `json:"prompt type,omitempty"`
	Classifications []bool     `json:"classifications"`
	Success         bool       `json:"success"`
	SuccessHuman    bool       `json:"success-human"`
	Clarity         float64    `json:"clarity"`
	Descriptiveness float64    `json:"descriptiveness"`
	Redundancy      float64    `json:"redundancy"`
	Proof           ProofBody  `json:"proof"`
}

// Key returns the record identity
func (r VerificationRecord) Key() RecordKey {
	return RecordKey{ID: r.ID, PromptType: r.PromptType}
}

// SyntaxResult is the outcome of typesetting a proof
type SyntaxResult struct {
	ID         int        `json:"id"`
	PromptType PromptType `json:"prompt type"`
	Success    bool       `json:"success"`
}

// FailedProof is queued for human correction. Reason stays blank unless the
// failure was mechanical (e.g. LaTeX syntax).
type FailedProof struct {
	ID         int        `json:"id"`
	PromptType PromptType `json:"prompt type"`
	Statement  string     `json:"statement"`
	Reason     string     `json:"reason"`
}

// Stage names where a proof failed in a run
type Stage string

const (
	StageGeneration   Stage = "generation"
	StageParse        Stage = "parse"
	StageVerification Stage = "verification"
	StagePersist      Stage = "persist"
)

// Failure describes why a proof was excluded from a run
type Failure struct {
	Key    RecordKey `json:"key"`
	Stage  Stage     `json:"stage"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
	RunID  string    `json:"run_id,omitempty"`
}

// Outcome is either a verified record or a failure, never both
type Outcome struct {
	Key     RecordKey
	Record  *VerificationRecord
	Failure *Failure
}

// Ok wraps a successful verification
func Ok(record VerificationRecord) Outcome {
	return Outcome{Key: record.Key(), Record: &record}
}

// Failed wraps a failure
func Failed(key RecordKey, stage Stage, err error) Outcome {
	return Outcome{
		Key: key,
		Failure: &Failure{
			Key:    key,
			Stage:  stage,
			Reason: err.Error(),
			At:     time.Now().UTC(),
		},
	}
}

// IsOk reports whether the outcome carries a record
func (o Outcome) IsOk() bool {
	return o.Record != nil
}
