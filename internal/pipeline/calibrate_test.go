package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/nli"
	"github.com/ppiankov/proofvote/internal/store"
	"github.com/ppiankov/proofvote/internal/verify"
)

func TestSplitSolution(t *testing.T) {
	got := SplitSolution(`Thus $x = 2.$ Then \[y = 3.\] Done.`)
	want := []string{"Thus $x = 2$", `Then \[y = 3\]`, "Done"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSolution = %q, want %q", got, want)
	}

	if steps := SplitSolution(" . . "); len(steps) != 0 {
		t.Errorf("expected no steps, got %q", steps)
	}
}

// hardRejecting passes every step unless the problem is marked hard
func hardRejecting(ctx context.Context, premise, hypothesis string) (float64, error) {
	if strings.Contains(premise, "hard") {
		return 0.1, nil
	}
	return 0.9, nil
}

func calibrationEnsemble(t *testing.T) *verify.EnsembleVerifier {
	t.Helper()
	always := nli.ScorerFunc(func(ctx context.Context, premise, hypothesis string) (float64, error) {
		return 0.9, nil
	})
	e, err := verify.NewEnsembleVerifier([]nli.Classifier{
		{ID: "prism", Scorer: always},
		{ID: "bart", Scorer: nli.ScorerFunc(hardRejecting)},
		{ID: "deberta-base", Scorer: nli.ScorerFunc(hardRejecting)},
	}, 50, nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestCalibrator_Calibrate(t *testing.T) {
	dir := t.TempDir()
	problems := []model.CalibrationProblem{
		{Problem: "easy one", Type: "Algebra", Solution: "We add. The answer is $5$."},
		{Problem: "easy two", Type: "Number Theory", Solution: "Divide by 2. The remainder is $1$."},
		{Problem: "hard three", Type: "Algebra", Solution: "Factor. Then solve."},
		{Problem: "empty four", Type: "Algebra", Solution: "..."},
	}

	result, err := NewCalibrator(calibrationEnsemble(t), 2, 0, nil).Calibrate(context.Background(), problems, dir)
	if err != nil {
		t.Fatalf("Calibrate failed: %v", err)
	}

	// every solution is correct, so rejections are false negatives only
	if result.Ensemble.TP != 2 || result.Ensemble.FN != 1 || result.Ensemble.FP != 0 {
		t.Errorf("unexpected ensemble confusion %+v", result.Ensemble)
	}
	if result.EnsembleF1 != 0.8 {
		t.Errorf("expected ensemble F1 0.8, got %v", result.EnsembleF1)
	}
	if result.BaselineF1 != 1 {
		t.Errorf("expected baseline F1 1, got %v", result.BaselineF1)
	}
	if result.Excluded != 1 {
		t.Errorf("expected 1 excluded problem, got %d", result.Excluded)
	}

	scores, err := os.ReadFile(filepath.Join(dir, F1ScoresFile))
	if err != nil {
		t.Fatal(err)
	}
	want := "F1-score of ensemble model: 0.8\nF1-score of baseline: 1\n"
	if string(scores) != want {
		t.Errorf("f1-scores.txt = %q, want %q", scores, want)
	}

	records, err := store.ReadJSONL[model.CalibrationRecord](filepath.Join(dir, CalibrationFile), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[2].ID != "hard three" || records[2].Success || !reflect.DeepEqual(records[2].Classifications, []bool{true, false, false}) {
		t.Errorf("unexpected record %+v", records[2])
	}

	failed, err := store.ReadJSONL[model.FailedProof](filepath.Join(dir, FailedFile), nil)
	if err != nil || len(failed) != 1 || failed[0].Statement != "empty four" {
		t.Errorf("expected one failed problem, got %+v (%v)", failed, err)
	}
}

func TestCalibrator_NoProblems(t *testing.T) {
	_, err := NewCalibrator(calibrationEnsemble(t), 1, 0, nil).Calibrate(context.Background(), nil, t.TempDir())
	if !errors.Is(err, model.ErrUndefinedScore) {
		t.Errorf("expected ErrUndefinedScore, got %v", err)
	}
}

func TestCalibrator_BaselineOutOfRange(t *testing.T) {
	problems := []model.CalibrationProblem{{Problem: "easy", Solution: "Done."}}
	if _, err := NewCalibrator(calibrationEnsemble(t), 1, 3, nil).Calibrate(context.Background(), problems, t.TempDir()); err == nil {
		t.Error("expected error for baseline outside roster")
	}
	if _, err := NewCalibrator(calibrationEnsemble(t), 1, -1, nil).Calibrate(context.Background(), problems, t.TempDir()); err == nil {
		t.Error("expected error for negative baseline")
	}
}
