package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ppiankov/proofvote/internal/metrics"
	"github.com/ppiankov/proofvote/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	verifyOut     string
	concurrency   int
	verifyTimeout time.Duration
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <proofs.jsonl>",
	Short: "Verify an existing proofs file with the NLI ensemble",
	Long: `Verify re-runs the ensemble over proofs that were already generated:
- Read proofs from a JSONL file (validated per line)
- Verify proofs in parallel with a configurable worker count
- Append one record per proof to verification.jsonl, in input order
- Write proofs that cannot be verified to failed-proofs.jsonl

Records already present in verification.jsonl are not written twice.

Example:
  proofvote verify results/GPT/Attempt\ 1/Temperature-0.0/proofs.jsonl
  proofvote verify proofs.jsonl --out ./reverified --concurrency 8`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyOut, "out", "", "output directory (default: directory of the proofs file)")
	verifyCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	verifyCmd.Flags().DurationVar(&verifyTimeout, "timeout", time.Hour, "total timeout for verification")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the entailment score cache")
	verifyCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when done")
}

func runVerify(cmd *cobra.Command, args []string) error {
	proofsPath := args[0]
	outDir := verifyOut
	if outDir == "" {
		outDir = filepath.Dir(proofsPath)
	}

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
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	printBanner("proofvote verify")
	fmt.Fprintf(os.Stderr, "  Proofs:       %s\n", proofsPath)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outDir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Threshold:    %.1f\n", cfg.Verification.GradeThreshold)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	recorder := metrics.New()
	ensemble, err := buildEnsemble(cfg, recorder, logger)
	if err != nil {
		return err
	}

	verifier := pipeline.NewVerifier(ensemble, concurrency, nil, recorder, logger)
	outcomes, verifyErr := verifier.VerifyFile(ctx, proofsPath, outDir)

	accepted, failed := 0, 0
	for _, o := range outcomes {
		switch {
		case !o.IsOk():
			failed++
			fmt.Fprintf(os.Stderr, "✗ proof %d (%s): %s\n", o.Key.ID, o.Key.PromptType, o.Failure.Reason)
		case o.Record.Success:
			accepted++
		}
	}

	printBanner("Verification Complete")
	fmt.Fprintf(os.Stderr, "  Total:     %d proofs\n", len(outcomes))
	fmt.Fprintf(os.Stderr, "  Accepted:  %d\n", accepted)
	fmt.Fprintf(os.Stderr, "  Rejected:  %d\n", len(outcomes)-accepted-failed)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outDir)
	fmt.Fprintf(os.Stderr, "\n")

	if err := writeMetrics(recorder, cfg.Output.MetricsFile, logger); err != nil && verifyErr == nil {
		verifyErr = err
	}
	if verifyErr != nil {
		return fmt.Errorf("verify failed: %w", verifyErr)
	}
	return nil
}
