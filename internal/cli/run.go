package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/proofvote/internal/cache"
	"github.com/ppiankov/proofvote/internal/latex"
	"github.com/ppiankov/proofvote/internal/llm"
	"github.com/ppiankov/proofvote/internal/metrics"
	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/nli"
	"github.com/ppiankov/proofvote/internal/pipeline"
	"github.com/ppiankov/proofvote/internal/store"
	"github.com/ppiankov/proofvote/internal/verify"
	"github.com/ppiankov/proofvote/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	attempt      int
	theoremsPath string
	noLaTeX      bool
	noCache      bool
	metricsFile  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate proofs for a theorem set and verify them with the ensemble",
	Long: `Run generates one proof per theorem, prompt type, model and temperature,
verifies every proof with the NLI ensemble and checks its LaTeX syntax.

Results are written under the output root as
  <MODEL>/Attempt <n>/Temperature-<t>/verification.jsonl
Proofs that fail generation or verification are written to the side files
of the same directory and the run continues.

Example:
  proofvote run --theorems theorems.jsonl --attempt 1
  proofvote run --theorems theorems.jsonl --attempt 2 --out ./results --no-latex
  proofvote run --theorems theorems.jsonl --metrics-file run.prom`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&attempt, "attempt", pipeline.FirstAttempt, "attempt number (1 or 2)")
	runCmd.Flags().StringVar(&theoremsPath, "theorems", "theorems.jsonl", "theorems JSONL file")
	runCmd.Flags().String("out", "", "results root directory (overrides output.root)")
	runCmd.Flags().BoolVar(&noLaTeX, "no-latex", false, "skip the LaTeX syntax check")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the entailment score cache")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when done")

	_ = viper.BindPFlag("output.root", runCmd.Flags().Lookup("out"))
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := pipeline.ValidateAttempt(attempt); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noLaTeX {
		cfg.LaTeX.Enabled = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if metricsFile != "" {
		cfg.Output.MetricsFile = metricsFile
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printBanner(fmt.Sprintf("proofvote run (attempt %d)", attempt))
	fmt.Fprintf(os.Stderr, "  Theorems:     %s\n", theoremsPath)
	fmt.Fprintf(os.Stderr, "  Output root:  %s\n", cfg.Output.Root)
	fmt.Fprintf(os.Stderr, "  Models:       %d\n", len(cfg.Generation.Models))
	fmt.Fprintf(os.Stderr, "  Temperatures: %v\n", cfg.Generation.Temperatures)
	fmt.Fprintf(os.Stderr, "  Classifiers:  %d\n", len(cfg.Verification.Classifiers))
	fmt.Fprintf(os.Stderr, "  LaTeX check:  %v\n", cfg.LaTeX.Enabled)
	fmt.Fprintf(os.Stderr, "\n")

	theorems, err := store.ReadTheorems(theoremsPath)
	if err != nil {
		return fmt.Errorf("read theorems: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d theorems\n", len(theorems))

	recorder := metrics.New()
	ensemble, err := buildEnsemble(cfg, recorder, logger)
	if err != nil {
		return err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.Generation, cfg.NLI), logger)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}
	if !provider.IsAvailable(ctx) {
		return fmt.Errorf("provider %s is not available (missing API key?)", provider.Name())
	}

	var checker *latex.Checker
	if cfg.LaTeX.Enabled {
		checker = latex.NewChecker(cfg.LaTeX, logger)
	}

	p := pipeline.NewPipeline(cfg, pipeline.Dependencies{
		Provider: provider,
		Ensemble: ensemble,
		Checker:  checker,
		Limiter:  worker.NewLimiter(cfg.Generation.RequestsPerSecond, cfg.Generation.BurstSize),
		Observer: recorder,
		Logger:   logger,
	})

	fmt.Fprintf(os.Stderr, "⚙️  Generating and verifying (run %s)...\n", p.RunID())
	result, runErr := p.Run(ctx, attempt, theorems)

	if result != nil {
		printBanner("Run Complete")
		fmt.Fprintf(os.Stderr, "  Run ID:    %s\n", result.RunID)
		fmt.Fprintf(os.Stderr, "  Total:     %d proofs\n", len(result.Outcomes))
		fmt.Fprintf(os.Stderr, "  Verified:  %d\n", result.Succeeded())
		fmt.Fprintf(os.Stderr, "  Excluded:  %d\n", result.Failed())
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Root)
		fmt.Fprintf(os.Stderr, "\n")
	}

	if err := writeMetrics(recorder, cfg.Output.MetricsFile, logger); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// buildEnsemble wires the classifiers with a shared score cache, a rate
// limiter keyed by classifier and the metrics recorder
func buildEnsemble(cfg *model.Config, recorder *metrics.Recorder, logger *zap.Logger) (*verify.EnsembleVerifier, error) {
	opts := nli.Options{
		Limiter:  worker.NewLimiter(cfg.NLI.RequestsPerSecond, cfg.NLI.BurstSize),
		Observer: recorder,
		Logger:   logger,
	}
	if cfg.Cache.Enabled {
		opts.Cache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	classifiers, err := nli.BuildClassifiers(cfg.Verification, cfg.NLI, opts)
	if err != nil {
		return nil, fmt.Errorf("build classifiers: %w", err)
	}

	ensemble, err := verify.NewEnsembleVerifier(classifiers, cfg.Verification.GradeThreshold, logger)
	if err != nil {
		return nil, err
	}
	return ensemble.WithObserver(recorder), nil
}

// writeMetrics exports the recorder when a textfile path is configured
func writeMetrics(recorder *metrics.Recorder, path string, logger *zap.Logger) error {
	if path == "" {
		return nil
	}
	if err := recorder.WriteTextfile(path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	logger.Debug("metrics written", zap.String("path", path))
	return nil
}
