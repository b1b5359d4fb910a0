// Package threshold gates on aggregate coverage, independent of any diff.
package threshold

import (
	"github.com/zjy-dev/covgate/internal/lcov"
)

// Metric is a covered/total pair for one kind of coverage record.
type Metric struct {
	Covered int `json:"covered"`
	Total   int `json:"total"`
}

// Pct returns the covered share in percent, 0 when nothing is known.
func (m Metric) Pct() float64 {
	if m.Total <= 0 {
		return 0
	}
	return float64(m.Covered) / float64(m.Total) * 100
}

// Totals aggregates every metric across a whole report.
type Totals struct {
	Lines      Metric
	Statements Metric
	Branches   Metric
	Functions  Metric
}

// MetricResult is one metric as reported in a Result.
type MetricResult struct {
	Metric
	Pct float64 `json:"pct"`
}

func newMetricResult(m Metric) MetricResult {
	return MetricResult{Metric: m, Pct: m.Pct()}
}

// Result is the verdict of the aggregate gate. Only Lines gates Passed; the
// other metrics are informational.
type Result struct {
	Percentage float64      `json:"percentage"`
	Passed     bool         `json:"passed"`
	Threshold  float64      `json:"threshold"`
	Lines      MetricResult `json:"lines"`
	Statements MetricResult `json:"statements"`
	Branches   MetricResult `json:"branches"`
	Functions  MetricResult `json:"functions"`
}

// Shortfall returns how many percentage points the line coverage is below
// the threshold, 0 when it passed.
func (r *Result) Shortfall() float64 {
	if r.Passed {
		return 0
	}
	return r.Threshold - r.Percentage
}

// Evaluate compares line coverage against min. The boundary is inclusive.
func Evaluate(t Totals, min float64) *Result {
	pct := t.Lines.Pct()
	return &Result{
		Percentage: pct,
		Passed:     pct >= min,
		Threshold:  min,
		Lines:      newMetricResult(t.Lines),
		Statements: newMetricResult(t.Statements),
		Branches:   newMetricResult(t.Branches),
		Functions:  newMetricResult(t.Functions),
	}
}

// FromReport sums an LCOV report: distinct known and executed lines per
// file, plus function and branch counts. LCOV carries no statement records,
// so Statements stays empty.
func FromReport(r *lcov.Report) Totals {
	var t Totals
	for _, f := range r.Files() {
		t.Lines.Total += f.Known.Len()
		t.Lines.Covered += f.Executed.Len()
		t.Functions.Total += f.FunctionsFound
		t.Functions.Covered += f.FunctionsHit
		t.Branches.Total += f.BranchesFound
		t.Branches.Covered += f.BranchesHit
	}
	return t
}
