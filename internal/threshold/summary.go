package threshold

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrSummaryNotFound is returned when the summary file does not exist.
var ErrSummaryNotFound = errors.New("coverage summary not found")

// summaryMetric mirrors one entry of an istanbul json-summary report.
type summaryMetric struct {
	Covered int `json:"covered"`
	Total   int `json:"total"`
}

type summaryFile struct {
	Total *struct {
		Lines      summaryMetric `json:"lines"`
		Statements summaryMetric `json:"statements"`
		Branches   summaryMetric `json:"branches"`
		Functions  summaryMetric `json:"functions"`
	} `json:"total"`
}

// ParseSummary reads the "total" block of an istanbul/monocart
// coverage-summary.json document. Missing metrics stay zero.
func ParseSummary(data []byte) (Totals, error) {
	var doc summaryFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return Totals{}, fmt.Errorf("failed to parse coverage summary: %w", err)
	}
	if doc.Total == nil {
		return Totals{}, errors.New("coverage summary has no \"total\" entry")
	}
	return Totals{
		Lines:      Metric(doc.Total.Lines),
		Statements: Metric(doc.Total.Statements),
		Branches:   Metric(doc.Total.Branches),
		Functions:  Metric(doc.Total.Functions),
	}, nil
}

// LoadSummary reads and parses the summary file at path.
func LoadSummary(path string) (Totals, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Totals{}, fmt.Errorf("%w at %s", ErrSummaryNotFound, path)
		}
		return Totals{}, fmt.Errorf("failed to read coverage summary %s: %w", path, err)
	}
	return ParseSummary(data)
}
