package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ppiankov/proofvote/internal/model"
)

// Metric is one line of a report. Value is nil when the metric could not be
// computed; Error then says why.
type Metric struct {
	Name     string   `json:"name"`
	Value    *float64 `json:"value,omitempty"`
	Resolved int      `json:"resolved"`
	Skipped  int      `json:"skipped"`
	Error    string   `json:"error,omitempty"`
}

// Report collects every metric of one reconciliation
type Report struct {
	BaselineIndex int                `json:"baseline_index"`
	Baseline      model.ClassifierID `json:"baseline,omitempty"`
	Metrics       []Metric           `json:"metrics"`
	Ensemble      Confusion          `json:"ensemble_confusion"`
	BaselineCM    Confusion          `json:"baseline_confusion"`
}

// Compute runs every metric. A failing metric is recorded in the report and
// does not stop the others.
func (a *Aggregator) Compute(baselineIndex int) *Report {
	report := &Report{BaselineIndex: baselineIndex}

	accuracy, err := a.MathAccuracy()
	report.add(MetricAccuracy, accuracy, err)

	ensemble, cm, err := a.EnsembleF1()
	report.Ensemble = cm
	report.add(MetricEnsembleF1, ensemble, err)

	baseline, cm, err := a.BaselineF1(baselineIndex)
	report.BaselineCM = cm
	report.add(MetricBaselineF1, baseline, err)

	clarity, err := a.Clarity()
	report.add(MetricClarity, clarity, err)

	descriptiveness, err := a.Descriptiveness()
	report.add(MetricDescriptiveness, descriptiveness, err)

	redundancy, err := a.LengthWeightedRedundancy()
	report.add(MetricRedundancy, redundancy, err)

	return report
}

func (r *Report) add(name string, stat Stat, err error) {
	m := Metric{Name: name, Resolved: stat.Resolved, Skipped: stat.Skipped}
	if err != nil {
		m.Error = err.Error()
	} else {
		v := stat.Value
		m.Value = &v
	}
	r.Metrics = append(r.Metrics, m)
}

// Get returns the named metric
func (r *Report) Get(name string) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// WriteText prints one "<name>: <value>" line per metric
func (r *Report) WriteText(w io.Writer) error {
	if r.Baseline != "" {
		if _, err := fmt.Fprintf(w, "Baseline classifier: %s\n", r.Baseline); err != nil {
			return err
		}
	}
	for _, m := range r.Metrics {
		var err error
		if m.Value != nil {
			_, err = fmt.Fprintf(w, "%s: %s\n", m.Name, strconv.FormatFloat(*m.Value, 'f', -1, 64))
		} else {
			_, err = fmt.Fprintf(w, "%s: n/a (%s)\n", m.Name, m.Error)
		}
		if err != nil {
			return err
		}
		if m.Skipped > 0 {
			if _, err := fmt.Fprintf(w, "  excluded %d proof(s) without an attempt-2 match\n", m.Skipped); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
