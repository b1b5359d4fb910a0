package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zjy-dev/covgate/internal/gate"
	"github.com/zjy-dev/covgate/internal/threshold"
)

// maxMarkdownRows bounds the uncovered-line table in a job summary.
const maxMarkdownRows = 200

// MarkdownReporter appends reports to a markdown file, such as the file named
// by GITHUB_STEP_SUMMARY.
type MarkdownReporter struct {
	path string
}

// NewMarkdownReporter creates a MarkdownReporter appending to path.
func NewMarkdownReporter(path string) *MarkdownReporter {
	return &MarkdownReporter{path: path}
}

// Patch appends the patch verdict.
func (r *MarkdownReporter) Patch(v *gate.Verdict) error {
	var content strings.Builder
	content.WriteString("## Patch coverage\n\n")

	switch v.Kind {
	case gate.Skipped:
		fmt.Fprintf(&content, "Skipped: %s\n\n", v.Reason)
	case gate.NoChanges:
		content.WriteString("No source changes to check.\n\n")
	case gate.Passed:
		fmt.Fprintf(&content, "All %d added line(s) in %d file(s) were executed.\n\n", v.Lines, v.Files)
	case gate.Failed:
		fmt.Fprintf(&content, "**%d of %d added line(s) were not executed.**\n\n", len(v.Uncovered), v.Lines)
		content.WriteString("| File | Line |\n|---|---|\n")
		for i, e := range v.Uncovered {
			if i == maxMarkdownRows {
				fmt.Fprintf(&content, "| ... | %d more |\n", len(v.Uncovered)-maxMarkdownRows)
				break
			}
			fmt.Fprintf(&content, "| `%s` | %d |\n", e.File, e.Line)
		}
		content.WriteString("\n")
		if len(v.Unmatched) > 0 {
			content.WriteString("Files with no coverage entry:\n\n")
			for _, f := range v.Unmatched {
				fmt.Fprintf(&content, "- `%s`\n", f)
			}
			content.WriteString("\n")
		}
	}
	return r.append(content.String())
}

// Threshold appends the aggregate result as a metrics table.
func (r *MarkdownReporter) Threshold(res *threshold.Result) error {
	var content strings.Builder
	content.WriteString("## Coverage threshold\n\n")

	status := "passed"
	if !res.Passed {
		status = fmt.Sprintf("failed, %.2f points short", res.Shortfall())
	}
	fmt.Fprintf(&content, "Line coverage **%.2f%%** against threshold %.2f%%: %s.\n\n", res.Percentage, res.Threshold, status)

	content.WriteString("| Metric | Covered | Total | % |\n|---|---|---|---|\n")
	for _, m := range []struct {
		name string
		res  threshold.MetricResult
	}{
		{"Lines", res.Lines},
		{"Statements", res.Statements},
		{"Branches", res.Branches},
		{"Functions", res.Functions},
	} {
		fmt.Fprintf(&content, "| %s | %d | %d | %.2f |\n", m.name, m.res.Covered, m.res.Total, m.res.Pct)
	}
	content.WriteString("\n")
	return r.append(content.String())
}

func (r *MarkdownReporter) append(content string) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open markdown report: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return f.Close()
}
