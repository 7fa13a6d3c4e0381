// Package stats turns reconciled verification records into dataset-level
// scores: accuracy, F1, clarity, descriptiveness and weighted redundancy.
package stats

import (
	"fmt"
	"math"

	"github.com/ppiankov/proofvote/internal/model"
	"github.com/ppiankov/proofvote/internal/reconcile"
)

// Metric names used in reports
const (
	MetricAccuracy        = "Math accuracy"
	MetricEnsembleF1      = "F1-score of ensemble model"
	MetricBaselineF1      = "F1-score of baseline"
	MetricClarity         = "Clarity"
	MetricDescriptiveness = "Descriptiveness"
	MetricRedundancy      = "Redundancy"
)

// Stat is one computed scalar and how many records went into it
type Stat struct {
	Value    float64
	Resolved int
	Skipped  int
}

// Aggregator computes metrics over two attempts of the same proof set.
// Correctness metrics trust human review; quality metrics use the configured
// predicate to pick between attempts.
type Aggregator struct {
	reconciler *reconcile.Reconciler
	first      []model.VerificationRecord
	second     []model.VerificationRecord
	quality    reconcile.Predicate
}

// NewAggregator creates an aggregator. A nil quality predicate means
// HumanConfirmed.
func NewAggregator(reconciler *reconcile.Reconciler, first, second []model.VerificationRecord, quality reconcile.Predicate) *Aggregator {
	if quality == nil {
		quality = reconcile.HumanConfirmed
	}
	if reconciler == nil {
		reconciler = reconcile.New(nil)
	}
	return &Aggregator{reconciler: reconciler, first: first, second: second, quality: quality}
}

// Average is the mean of field over resolved records
func (a *Aggregator) Average(metric string, field func(model.VerificationRecord) float64) (Stat, error) {
	values, skipped := reconcile.Resolve(a.reconciler, a.first, a.second, a.quality, field)
	if len(values) == 0 {
		return Stat{Skipped: len(skipped)}, &model.NoResolvedRecordsError{Metric: metric, Skipped: len(skipped)}
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return Stat{Value: sum / float64(len(values)), Resolved: len(values), Skipped: len(skipped)}, nil
}

// Clarity is the mean human clarity rating
func (a *Aggregator) Clarity() (Stat, error) {
	return a.Average(MetricClarity, func(r model.VerificationRecord) float64 { return r.Clarity })
}

// Descriptiveness is the mean human descriptiveness rating
func (a *Aggregator) Descriptiveness() (Stat, error) {
	return a.Average(MetricDescriptiveness, func(r model.VerificationRecord) float64 { return r.Descriptiveness })
}

type weighted struct {
	redundancy float64
	length     int
}

// LengthWeightedRedundancy weights each record's redundancy percentage by
// the length of its stored proof: sum(redundancy*len/100) / sum(len).
func (a *Aggregator) LengthWeightedRedundancy() (Stat, error) {
	values, skipped := reconcile.Resolve(a.reconciler, a.first, a.second, a.quality,
		func(r model.VerificationRecord) weighted {
			return weighted{redundancy: r.Redundancy, length: r.Proof.Len()}
		})
	stat := Stat{Resolved: len(values), Skipped: len(skipped)}
	if len(values) == 0 {
		return stat, &model.NoResolvedRecordsError{Metric: MetricRedundancy, Skipped: len(skipped)}
	}

	var mass, weight float64
	for _, v := range values {
		mass += v.redundancy * float64(v.length) / 100
		weight += float64(v.length)
	}
	if weight == 0 {
		return stat, fmt.Errorf("%s: %w", MetricRedundancy, model.ErrUndefinedScore)
	}
	stat.Value = mass / weight
	return stat, nil
}

// Confusion counts predictions against human truth. True negatives are not
// tracked.
type Confusion struct {
	TP int
	FP int
	FN int
}

// Add records one prediction
func (c *Confusion) Add(predicted, truth bool) {
	switch {
	case predicted && truth:
		c.TP++
	case predicted && !truth:
		c.FP++
	case !predicted && truth:
		c.FN++
	}
}

// Precision is tp/(tp+fp)
func (c Confusion) Precision() (float64, error) {
	return ratio(c.TP, c.TP+c.FP)
}

// Recall is tp/(tp+fn)
func (c Confusion) Recall() (float64, error) {
	return ratio(c.TP, c.TP+c.FN)
}

// F1 is 2tp/(2tp+fp+fn)
func (c Confusion) F1() (float64, error) {
	return ratio(2*c.TP, 2*c.TP+c.FP+c.FN)
}

func ratio(num, den int) (float64, error) {
	if den == 0 {
		return 0, model.ErrUndefinedScore
	}
	return float64(num) / float64(den), nil
}

type labelled struct {
	key       model.RecordKey
	predicted bool
	truth     bool
	err       error
}

// EnsembleF1 scores the ensemble verdict against human review
func (a *Aggregator) EnsembleF1() (Stat, Confusion, error) {
	return a.f1(MetricEnsembleF1, func(r model.VerificationRecord) labelled {
		return labelled{key: r.Key(), predicted: r.Success, truth: r.SuccessHuman}
	})
}

// BaselineF1 scores a single classifier, by roster position, against human
// review
func (a *Aggregator) BaselineF1(index int) (Stat, Confusion, error) {
	return a.f1(MetricBaselineF1, func(r model.VerificationRecord) labelled {
		if index < 0 || index >= len(r.Classifications) {
			return labelled{key: r.Key(), err: &model.MalformedRecordError{
				Key:    r.Key(),
				Reason: fmt.Sprintf("no classification at position %d (have %d)", index, len(r.Classifications)),
			}}
		}
		return labelled{key: r.Key(), predicted: r.Classifications[index], truth: r.SuccessHuman}
	})
}

func (a *Aggregator) f1(metric string, label func(model.VerificationRecord) labelled) (Stat, Confusion, error) {
	values, skipped := reconcile.Resolve(a.reconciler, a.first, a.second, reconcile.HumanConfirmed, label)
	stat := Stat{Resolved: len(values), Skipped: len(skipped)}
	if len(values) == 0 {
		return stat, Confusion{}, &model.NoResolvedRecordsError{Metric: metric, Skipped: len(skipped)}
	}

	var c Confusion
	for _, v := range values {
		if v.err != nil {
			return stat, c, fmt.Errorf("%s: %w", metric, v.err)
		}
		c.Add(v.predicted, v.truth)
	}

	f1, err := c.F1()
	if err != nil {
		return stat, c, fmt.Errorf("%s: %w", metric, err)
	}
	stat.Value = f1
	return stat, c, nil
}

// MathAccuracy is the percentage of resolved proofs a reviewer confirmed,
// rounded to two decimals
func (a *Aggregator) MathAccuracy() (Stat, error) {
	values, skipped := reconcile.Resolve(a.reconciler, a.first, a.second, reconcile.HumanConfirmed,
		func(r model.VerificationRecord) bool { return r.SuccessHuman })
	stat := Stat{Resolved: len(values), Skipped: len(skipped)}
	if len(values) == 0 {
		return stat, &model.NoResolvedRecordsError{Metric: MetricAccuracy, Skipped: len(skipped)}
	}

	correct := 0
	for _, ok := range values {
		if ok {
			correct++
		}
	}
	stat.Value = round2(100 * float64(correct) / float64(len(values)))
	return stat, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
