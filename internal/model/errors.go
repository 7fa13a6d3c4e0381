package model

import (
	"errors"
	"fmt"
)

// ErrUndefinedScore is returned when a ratio has a zero denominator even
// though records were resolved (e.g. F1 over true negatives only).
var ErrUndefinedScore = errors.New("score undefined: zero denominator")

// MalformedProofError marks a proof that cannot be verified
type MalformedProofError struct {
	Key    RecordKey
	Reason string
}

func (e *MalformedProofError) Error() string {
	return fmt.Sprintf("malformed proof %s: %s", e.Key, e.Reason)
}

// IdentityResolutionFailure is recorded when a fallback record cannot be found
// in the second attempt
type IdentityResolutionFailure struct {
	Key RecordKey
}

func (e *IdentityResolutionFailure) Error() string {
	return fmt.Sprintf("no attempt-2 record for id %d prompt type %q", e.Key.ID, e.Key.PromptType)
}

// NoResolvedRecordsError is returned by a metric that had nothing to aggregate
type NoResolvedRecordsError struct {
	Metric  string
	Skipped int
}

func (e *NoResolvedRecordsError) Error() string {
	return fmt.Sprintf("%s: no resolved records (%d skipped)", e.Metric, e.Skipped)
}

// ResponseFormatError is returned when a model response lacks a section marker
type ResponseFormatError struct {
	Marker string
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("response format: missing marker %q", e.Marker)
}

// MalformedRecordError marks a stored record that a metric cannot use
type MalformedRecordError struct {
	Key    RecordKey
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %s: %s", e.Key, e.Reason)
}
