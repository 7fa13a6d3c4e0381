package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/stats"
	"github.com/ppiankov/proofvote/internal/store"
	"github.com/ppiankov/proofvote/internal/verify"
	"github.com/ppiankov/proofvote/internal/worker"
	"go.uber.org/zap"
)

// Calibration output files
const (
	CalibrationFile = "math-verification.jsonl"
	F1ScoresFile    = "f1-scores.txt"
)

// GroundTruthPrompt tags calibration proofs, which were written by people
// rather than generated
const GroundTruthPrompt model.PromptType = "ground truth"

// CalibrationResult holds the ensemble's and the baseline's agreement with a
// set of solutions that are all correct. Every rejection is a false negative.
type CalibrationResult struct {
	Records    []model.CalibrationRecord
	Excluded   int
	Ensemble   stats.Confusion
	Baseline   stats.Confusion
	EnsembleF1 float64
	BaselineF1 float64
}

// Calibrator measures the ensemble on known-correct worked solutions
type Calibrator struct {
	ensemble    *verify.EnsembleVerifier
	concurrency int
	baseline    int
	logger      *zap.Logger
}

// NewCalibrator creates a calibrator; baseline is the roster position
// scored on its own
func NewCalibrator(ensemble *verify.EnsembleVerifier, concurrency, baseline int, logger *zap.Logger) *Calibrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calibrator{
		ensemble:    ensemble,
		concurrency: concurrency,
		baseline:    baseline,
		logger:      logger,
	}
}

// SplitSolution turns a worked solution into proof steps. A period that
// closes inline or display math is moved outside the delimiter first so the
// split does not break the formula.
func SplitSolution(solution string) []string {
	s := strings.ReplaceAll(solution, ".$", "$.")
	s = strings.ReplaceAll(s, `.\]`, `\].`)

	var steps []string
	for _, part := range strings.Split(s, ".") {
		if part = strings.TrimSpace(part); part != "" {
			steps = append(steps, part)
		}
	}
	return steps
}

// Calibrate verifies every problem's solution, appends one record per problem
// to outDir/math-verification.jsonl and writes outDir/f1-scores.txt.
// Problems that cannot be verified go to outDir/failed-proofs.jsonl and are
// left out of both scores.
func (c *Calibrator) Calibrate(ctx context.Context, problems []model.CalibrationProblem, outDir string) (*CalibrationResult, error) {
	roster := c.ensemble.Roster()
	if c.baseline < 0 || c.baseline >= len(roster) {
		return nil, fmt.Errorf("baseline index %d outside roster of %d classifiers", c.baseline, len(roster))
	}

	paths := PathsIn(outDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	records, err := store.OpenJSONL(filepath.Join(outDir, CalibrationFile))
	if err != nil {
		return nil, err
	}
	defer func() { _ = records.Close() }()

	failed, err := store.OpenJSONL(paths.Failed)
	if err != nil {
		return nil, err
	}
	defer func() { _ = failed.Close() }()

	proofs := make([]model.Proof, len(problems))
	for i, p := range problems {
		proofs[i] = model.Proof{
			ID:         i,
			PromptType: GroundTruthPrompt,
			Premise:    p.Problem,
			Steps:      SplitSolution(p.Solution),
		}
	}

	c.logger.Info("calibrating ensemble",
		zap.Int("problems", len(problems)),
		zap.String("baseline", string(roster[c.baseline])),
	)

	processor := worker.NewBatchProcessor(c.ensemble, c.concurrency, nil)
	results := processor.ProcessProofs(ctx, proofs)

	result := &CalibrationResult{}
	for i, r := range results {
		if r.Error != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			c.logger.Warn("problem excluded from calibration", zap.Int("index", i), zap.Error(r.Error))
			entry := model.FailedProof{ID: i, PromptType: GroundTruthPrompt, Statement: problems[i].Problem, Reason: r.Error.Error()}
			if err := failed.AppendValue(entry); err != nil {
				return result, fmt.Errorf("record failure of problem %d: %w", i, err)
			}
			result.Excluded++
			continue
		}

		rec := model.CalibrationRecord{
			ID:              problems[i].Problem,
			Type:            problems[i].Type,
			Classifications: r.Record.Classifications,
			Success:         r.Record.Success,
		}
		if err := records.AppendValue(rec); err != nil {
			return result, err
		}
		result.Records = append(result.Records, rec)
		result.Ensemble.Add(rec.Success, true)
		result.Baseline.Add(rec.Classifications[c.baseline], true)
	}

	if result.EnsembleF1, err = result.Ensemble.F1(); err != nil {
		return result, fmt.Errorf("%s: %w", stats.MetricEnsembleF1, err)
	}
	if result.BaselineF1, err = result.Baseline.F1(); err != nil {
		return result, fmt.Errorf("%s: %w", stats.MetricBaselineF1, err)
	}

	f, err := os.Create(filepath.Join(outDir, F1ScoresFile))
	if err != nil {
		return result, fmt.Errorf("create %s: %w", F1ScoresFile, err)
	}
	if err := WriteF1Scores(f, result.EnsembleF1, result.BaselineF1); err != nil {
		_ = f.Close()
		return result, err
	}
	if err := f.Close(); err != nil {
		return result, fmt.Errorf("close %s: %w", F1ScoresFile, err)
	}
	return result, nil
}

// WriteF1Scores writes the two F1 lines of f1-scores.txt
func WriteF1Scores(w io.Writer, ensemble, baseline float64) error {
	_, err := fmt.Fprintf(w, "%s: %s\n%s: %s\n",
		stats.MetricEnsembleF1, strconv.FormatFloat(ensemble, 'f', -1, 64),
		stats.MetricBaselineF1, strconv.FormatFloat(baseline, 'f', -1, 64),
	)
	return err
}
