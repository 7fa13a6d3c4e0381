package worker

import (
	"context"
	"sort"

	"github.com/ppiankov/proofvote/internal/model"
)

// Verifier turns one proof into a verification record
type Verifier interface {
	Verify(ctx context.Context, proof model.Proof) (model.VerificationRecord, error)
}

// VerifyJob verifies a single proof
type VerifyJob struct {
	Index    int
	Proof    model.Proof
	Verifier Verifier
	Limiter  *Limiter
}

// Execute runs the verification
func (j *VerifyJob) Execute(ctx context.Context) Result {
	result := &VerifyResult{Index: j.Index, Key: j.Proof.Key()}

	if err := j.Limiter.Wait(ctx, "verify"); err != nil {
		result.Error = err
		return result
	}

	record, err := j.Verifier.Verify(ctx, j.Proof)
	if err != nil {
		result.Error = err
		return result
	}
	result.Record = &record
	return result
}

// VerifyResult is the outcome of one VerifyJob
type VerifyResult struct {
	Index  int
	Key    model.RecordKey
	Record *model.VerificationRecord
	Error  error
}

// GetError returns the verification error
func (r *VerifyResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many proofs concurrently
type BatchProcessor struct {
	verifier    Verifier
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor; limiter may be nil
func NewBatchProcessor(verifier Verifier, concurrency int, limiter *Limiter) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// ProcessProofs verifies every proof and returns one result per proof, in
// input order. Proofs not run because ctx ended carry ctx's error.
func (b *BatchProcessor) ProcessProofs(ctx context.Context, proofs []model.Proof) []*VerifyResult {
	if len(proofs) == 0 {
		return []*VerifyResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, proof := range proofs {
			if !pool.Submit(&VerifyJob{Index: i, Proof: proof, Verifier: b.verifier, Limiter: b.limiter}) {
				return
			}
		}
	}()

	// Wait closes the queue, so submission has to finish first
	results := b.collect(pool, len(proofs))

	ordered := make([]*VerifyResult, len(proofs))
	for _, result := range results {
		switch r := result.(type) {
		case *VerifyResult:
			ordered[r.Index] = r
		case *PanicResult:
			if job, ok := r.Job.(*VerifyJob); ok {
				ordered[job.Index] = &VerifyResult{Index: job.Index, Key: job.Proof.Key(), Error: r.GetError()}
			}
		}
	}

	for i, r := range ordered {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			ordered[i] = &VerifyResult{Index: i, Key: proofs[i].Key(), Error: err}
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	return ordered
}

func (b *BatchProcessor) collect(pool *Pool, expected int) []Result {
	results := make([]Result, 0, expected)
	for len(results) < expected {
		select {
		case result := <-pool.results:
			results = append(results, result)
		case <-pool.ctx.Done():
			pool.Shutdown()
			for result := range pool.results {
				results = append(results, result)
			}
			return results
		}
	}
	pool.Shutdown()
	return results
}
