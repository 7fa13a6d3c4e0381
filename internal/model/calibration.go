package model

// CalibrationProblem is one known-correct worked solution used to measure
// the ensemble against ground truth
type CalibrationProblem struct {
	Problem  string `json:"problem"`
	Type     string `json:"type"`
	Solution string `json:"solution"`
}

// CalibrationRecord is one line of math-verification.jsonl. ID is the
// problem text.
type CalibrationRecord struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Classifications []bool `json:"classifications"`
	Success         bool   `json:"success"`
}
