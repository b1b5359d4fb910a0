package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjy-dev/covgate/internal/threshold"
)

// Summary is the persisted form of a threshold result.
type Summary struct {
	*threshold.Result
	GeneratedAt time.Time `json:"generated_at"`
}

// WriteSummary saves r as indented JSON at path, creating the directory.
func WriteSummary(path string, r *threshold.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	data, err := json.MarshalIndent(Summary{Result: r, GeneratedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary file: %w", err)
	}
	s := &Summary{Result: &threshold.Result{}}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return s, nil
}
