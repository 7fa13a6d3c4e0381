// Test program to demonstrate chained entailment against a live NLI endpoint
// This shows per-classifier chain scores and the ensemble's majority verdict
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/nli"
	"github.com/ppiankov/proofvote/internal/verify"
)

func main() {
	fmt.Println("=== NLI Ensemble Chain Test ===")
	fmt.Println()

	cfg := model.DefaultConfig()
	if baseURL := os.Getenv("PROOFVOTE_NLI_BASE_URL"); baseURL != "" {
		cfg.NLI.BaseURL = baseURL
	}
	cfg.NLI.Token = os.Getenv("HF_TOKEN")

	// Proofs with a known expected verdict
	testProofs := []model.Proof{
		{
			ID:         1,
			PromptType: model.PromptZeroShot,
			Premise:    "Let n be an even integer.",
			Steps: []string{
				"Then n = 2k for some integer k.",
				"Squaring gives n^2 = 4k^2 = 2(2k^2).",
				"Therefore n^2 is even.",
			},
		},
		{
			ID:         2,
			PromptType: model.PromptZeroShot,
			Premise:    "Let n be an even integer.",
			Steps: []string{
				"Then n = 2k for some integer k.",
				"Therefore every prime number is odd.",
			},
		},
	}

	classifiers, err := nli.BuildClassifiers(cfg.Verification, cfg.NLI, nli.Options{})
	if err != nil {
		fmt.Printf("Build classifiers error: %v\n", err)
		os.Exit(1)
	}
	ensemble, err := verify.NewEnsembleVerifier(classifiers, cfg.Verification.GradeThreshold, nil)
	if err != nil {
		fmt.Printf("Build ensemble error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, proof := range testProofs {
		fmt.Printf("Proof %d: %s\n", proof.ID, proof.Premise)
		fmt.Println(strings.Repeat("-", 60))

		// Per-classifier chain scores
		for _, c := range classifiers {
			score, err := verify.NewChainVerifier(c.Scorer, cfg.Verification.GradeThreshold).Score(ctx, proof)
			if err != nil {
				fmt.Printf("  %-20s error: %v\n", c.ID, err)
				continue
			}
			mark := "✗"
			if score.Pass {
				mark = "✓"
			}
			fmt.Printf("  %s %-20s avg %.3f over %d step(s)\n", mark, c.ID, score.Average, score.Scored)
		}

		record, err := ensemble.Verify(ctx, proof)
		if err != nil {
			fmt.Printf("\n  Ensemble error: %v\n\n", err)
			continue
		}
		if record.Success {
			fmt.Printf("\n  ✓ ENSEMBLE ACCEPTS (%v)\n", record.Classifications)
		} else {
			fmt.Printf("\n  ⚠️  ENSEMBLE REJECTS (%v)\n", record.Classifications)
		}
		fmt.Println()
	}

	fmt.Println("=== Test Complete ===")
	fmt.Println()
	fmt.Println("Note: requires an NLI inference endpoint (PROOFVOTE_NLI_BASE_URL).")
}
