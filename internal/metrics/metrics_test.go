package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ObserveScore("bart", 0.2, nil)
	r.ObserveScore("bart", 0.3, errors.New("timeout"))
	r.ObserveVerdict("bart", true)
	r.ObserveVote(false)
	r.ObserveVote(false)
	r.ObserveFailure("generation")
	r.ObserveGeneration("GPT", nil)

	text := textfile(t, r)
	for _, want := range []string{
		`proofvote_entailment_calls_total{classifier="bart",status="error"} 1`,
		`proofvote_entailment_calls_total{classifier="bart",status="ok"} 1`,
		`proofvote_classifier_verdicts_total{classifier="bart",verdict="pass"} 1`,
		`proofvote_ensemble_votes_total{verdict="fail"} 2`,
		`proofvote_proof_failures_total{stage="generation"} 1`,
		`proofvote_generations_total{model="GPT",status="ok"} 1`,
		`proofvote_entailment_duration_seconds_count{classifier="bart"} 2`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}
}

func textfile(t *testing.T, r *Recorder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "proofvote.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveVote(true)
	r.SetReportValue("F1-score of ensemble model", 0.75)

	text := textfile(t, r)
	if !strings.Contains(text, `proofvote_ensemble_votes_total{verdict="pass"} 1`) {
		t.Errorf("missing vote counter in:\n%s", text)
	}
	if !strings.Contains(text, `proofvote_report_value{metric="F1-score of ensemble model"} 0.75`) {
		t.Errorf("missing report gauge in:\n%s", text)
	}
}
