package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/zjy-dev/covgate/internal/gate"
	"github.com/zjy-dev/covgate/internal/logger"
	"github.com/zjy-dev/covgate/internal/threshold"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

const barWidth = 30

// Console writes plain-text reports, colorized when the writer is a terminal.
type Console struct {
	out   io.Writer
	color bool
}

// NewConsole creates a Console on w. Colors follow logger.ColorSupported.
func NewConsole(w io.Writer) *Console {
	return &Console{out: w, color: logger.ColorSupported(w)}
}

// SetColor overrides the terminal detection done by NewConsole.
func (c *Console) SetColor(enable bool) {
	c.color = enable
}

// Patch prints one "  file:line" row per uncovered line.
func (c *Console) Patch(v *gate.Verdict) error {
	var sb strings.Builder
	switch v.Kind {
	case gate.Skipped:
		fmt.Fprintf(&sb, "%s %s\n", c.colorize("Patch coverage skipped:", colorYellow), v.Reason)
	case gate.NoChanges:
		sb.WriteString("No source changes to check.\n")
	case gate.Passed:
		fmt.Fprintf(&sb, "%s all %d added line(s) in %d file(s) executed.\n",
			c.colorize("Patch coverage OK:", colorGreen), v.Lines, v.Files)
	case gate.Failed:
		fmt.Fprintf(&sb, "%s %d of %d added line(s) not executed:\n",
			c.colorize("Patch coverage FAILED:", colorBold+colorRed), len(v.Uncovered), v.Lines)
		for _, e := range v.Uncovered {
			fmt.Fprintf(&sb, "  %s\n", e)
		}
	}
	_, err := io.WriteString(c.out, sb.String())
	return err
}

// Threshold prints the line coverage against the threshold followed by the
// informational metrics.
func (c *Console) Threshold(r *threshold.Result) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Line coverage %.2f%% (%d/%d) %s\n",
		r.Percentage, r.Lines.Covered, r.Lines.Total, c.bar(r.Percentage))
	if r.Passed {
		fmt.Fprintf(&sb, "%s meets threshold %.2f%%\n", c.colorize("OK:", colorGreen), r.Threshold)
	} else {
		fmt.Fprintf(&sb, "%s below threshold %.2f%% by %.2f points\n",
			c.colorize("FAILED:", colorBold+colorRed), r.Threshold, r.Shortfall())
	}

	for _, m := range []struct {
		name string
		res  threshold.MetricResult
	}{
		{"statements", r.Statements},
		{"branches", r.Branches},
		{"functions", r.Functions},
	} {
		if m.res.Total == 0 {
			fmt.Fprintf(&sb, "  %-10s %s\n", m.name, c.colorize("n/a", colorDim))
			continue
		}
		fmt.Fprintf(&sb, "  %-10s %6.2f%% (%d/%d)\n", m.name, m.res.Pct, m.res.Covered, m.res.Total)
	}

	_, err := io.WriteString(c.out, sb.String())
	return err
}

func (c *Console) bar(pct float64) string {
	filled := int(float64(barWidth) * pct / 100)
	filled = min(max(filled, 0), barWidth)
	return "[" + c.colorize(strings.Repeat("#", filled), colorGreen) +
		c.colorize(strings.Repeat(".", barWidth-filled), colorDim) + "]"
}

// colorize wraps text with ANSI color codes when colors are enabled.
func (c *Console) colorize(text, color string) string {
	if !c.color {
		return text
	}
	return color + text + colorReset
}
