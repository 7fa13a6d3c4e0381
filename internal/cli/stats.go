package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/proofvote/internal/metrics"
	"github.com/ppiankov/proofvote/internal/pipeline"
	"github.com/ppiankov/proofvote/internal/reconcile"
	"github.com/ppiankov/proofvote/internal/stats"
	"github.com/ppiankov/proofvote/internal/store"
	"github.com/spf13/cobra"
)

var (
	firstPath   string
	secondPath  string
	statsModel  string
	statsTemp   float64
	baseline    int
	quality     string
	outJSON     bool
	statsOutput string
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Reconcile two attempts and compute accuracy, F1 and quality metrics",
	Long: `Stats reads the verification records of attempt 1 and attempt 2,
replaces every attempt-1 record that was not accepted by its attempt-2
counterpart and computes:
- Math accuracy
- F1-score of the ensemble and of one baseline classifier
- Clarity, descriptiveness and length-weighted redundancy

Records without a counterpart in attempt 2 are excluded and counted per metric.

Example:
  proofvote stats --model GPT --temperature 0.4
  proofvote stats --attempt1 a1/verification.jsonl --attempt2 a2/verification.jsonl --baseline 2
  proofvote stats --model GPT --temperature 0 --json --out report.json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&firstPath, "attempt1", "", "attempt 1 verification.jsonl")
	statsCmd.Flags().StringVar(&secondPath, "attempt2", "", "attempt 2 verification.jsonl")
	statsCmd.Flags().StringVar(&statsModel, "model", "", "model name; resolves both files under the output root")
	statsCmd.Flags().Float64Var(&statsTemp, "temperature", 0, "temperature used with --model")
	statsCmd.Flags().IntVar(&baseline, "baseline", -1, "classifier position used as the baseline (default: stats.baseline_index)")
	statsCmd.Flags().StringVar(&quality, "quality", "", "records kept for quality metrics: human or ensemble (default: stats.quality_predicate)")
	statsCmd.Flags().BoolVar(&outJSON, "json", false, "write the report as JSON")
	statsCmd.Flags().StringVar(&statsOutput, "out", "", "write the report to this file instead of stdout")
	statsCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write report values as Prometheus gauges to this textfile")
}

func runStats(cmd *cobra.Command, args []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if metricsFile != "" {
		cfg.Output.MetricsFile = metricsFile
	}
	if baseline < 0 {
		baseline = cfg.Stats.BaselineIndex
	}
	if quality == "" {
		quality = cfg.Stats.QualityPredicate
	}

	if statsModel != "" {
		layout := pipeline.Layout{Root: cfg.Output.Root}
		if firstPath == "" {
			firstPath = layout.Paths(statsModel, pipeline.FirstAttempt, statsTemp).Verification
		}
		if secondPath == "" {
			secondPath = layout.Paths(statsModel, pipeline.SecondAttempt, statsTemp).Verification
		}
	}
	if firstPath == "" || secondPath == "" {
		return fmt.Errorf("both attempts are required: use --model or --attempt1 and --attempt2")
	}

	predicate, ok := reconcile.PredicateByName(quality)
	if !ok {
		return fmt.Errorf("unknown quality predicate %q (supported: human, ensemble)", quality)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	first, err := store.ReadRecords(firstPath)
	if err != nil {
		return fmt.Errorf("read attempt 1: %w", err)
	}
	second, err := store.ReadRecords(secondPath)
	if err != nil {
		return fmt.Errorf("read attempt 2: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Attempt 1: %s (%d records)\n", firstPath, len(first))
		fmt.Fprintf(os.Stderr, "Attempt 2: %s (%d records)\n", secondPath, len(second))
		fmt.Fprintln(os.Stderr)
	}

	aggregator := stats.NewAggregator(reconcile.New(logger), first, second, predicate)
	report := aggregator.Compute(baseline)
	if roster := cfg.Verification.Roster(); baseline >= 0 && baseline < len(roster) {
		report.Baseline = roster[baseline]
	}

	out := os.Stdout
	if statsOutput != "" {
		f, createErr := os.Create(statsOutput)
		if createErr != nil {
			return fmt.Errorf("create report file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close report file: %w", closeErr)
			}
		}()
		out = f
	}

	if outJSON {
		err = report.WriteJSON(out)
	} else {
		err = report.WriteText(out)
	}
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if cfg.Output.MetricsFile != "" {
		recorder := metrics.New()
		for _, m := range report.Metrics {
			if m.Value != nil {
				recorder.SetReportValue(m.Name, *m.Value)
			}
		}
		if err := writeMetrics(recorder, cfg.Output.MetricsFile, logger); err != nil {
			return err
		}
	}

	return nil
}
