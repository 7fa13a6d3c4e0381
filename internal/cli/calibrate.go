package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ppiankov/proofvote/internal/metrics"
	"github.com/ppiankov/proofvote/internal/pipeline"
	"github.com/ppiankov/proofvote/internal/stats"
	"github.com/ppiankov/proofvote/internal/store"
	"github.com/spf13/cobra"
)

var (
	calibrateOut      string
	calibrateBaseline int
)

// calibrateCmd represents the calibrate command
var calibrateCmd = &cobra.Command{
	Use:   "calibrate <problems.jsonl>",
	Short: "Measure the ensemble on known-correct worked solutions",
	Long: `Calibrate runs the NLI ensemble over a ground-truth set of worked solutions
(one {"problem", "type", "solution"} object per line, e.g. a MATH subset):
- Split each solution into steps on "."
- Verify every solution with the ensemble
- Append {id, type, classifications, success} to math-verification.jsonl
- Write f1-scores.txt with the ensemble's and the baseline classifier's F1

Every solution is correct, so each rejection counts as a false negative.

Example:
  proofvote calibrate math.jsonl
  proofvote calibrate math.jsonl --out ./calibration --baseline 1 --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runCalibrate,
}

func init() {
	rootCmd.AddCommand(calibrateCmd)

	calibrateCmd.Flags().StringVar(&calibrateOut, "out", "./calibration", "output directory")
	calibrateCmd.Flags().IntVar(&calibrateBaseline, "baseline", -1, "classifier position used as the baseline (default: stats.baseline_index)")
	calibrateCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	calibrateCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the entailment score cache")
	calibrateCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when done")
}

func runCalibrate(cmd *cobra.Command, args []string) error {
	problemsPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if metricsFile != "" {
		cfg.Output.MetricsFile = metricsFile
	}
	if calibrateBaseline < 0 {
		calibrateBaseline = cfg.Stats.BaselineIndex
	}
	if concurrency < 1 {
		concurrency = cfg.Concurrency.Workers
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	problems, err := store.ReadCalibrationProblems(problemsPath)
	if err != nil {
		return fmt.Errorf("read problems: %w", err)
	}

	printBanner("proofvote calibrate")
	fmt.Fprintf(os.Stderr, "  Problems:     %s (%d)\n", problemsPath, len(problems))
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", calibrateOut)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Baseline:     %d\n", calibrateBaseline)
	fmt.Fprintf(os.Stderr, "\n")

	recorder := metrics.New()
	ensemble, err := buildEnsemble(cfg, recorder, logger)
	if err != nil {
		return err
	}

	calibrator := pipeline.NewCalibrator(ensemble, concurrency, calibrateBaseline, logger)
	result, calErr := calibrator.Calibrate(ctx, problems, calibrateOut)

	if calErr == nil {
		printBanner("Calibration Complete")
		fmt.Fprintf(os.Stderr, "  Verified:  %d problems\n", len(result.Records))
		fmt.Fprintf(os.Stderr, "  Excluded:  %d\n", result.Excluded)
		fmt.Fprintf(os.Stderr, "  Ensemble:  tp=%d fn=%d\n", result.Ensemble.TP, result.Ensemble.FN)
		fmt.Fprintf(os.Stderr, "  Baseline:  tp=%d fn=%d\n", result.Baseline.TP, result.Baseline.FN)
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", filepath.Join(calibrateOut, pipeline.F1ScoresFile))
		fmt.Fprintf(os.Stderr, "\n")

		if err := pipeline.WriteF1Scores(os.Stdout, result.EnsembleF1, result.BaselineF1); err != nil {
			return err
		}
		recorder.SetReportValue(stats.MetricEnsembleF1, result.EnsembleF1)
		recorder.SetReportValue(stats.MetricBaselineF1, result.BaselineF1)
	}

	if err := writeMetrics(recorder, cfg.Output.MetricsFile, logger); err != nil && calErr == nil {
		calErr = err
	}
	if calErr != nil {
		return fmt.Errorf("calibrate failed: %w", calErr)
	}
	return nil
}
