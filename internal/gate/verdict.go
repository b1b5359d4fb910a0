// Package gate decides whether every line added by a change was executed by
// the test run.
package gate

import (
	"fmt"

	"github.com/zjy-dev/covgate/internal/logger"
	"github.com/zjy-dev/covgate/internal/pathmatch"
	"github.com/zjy-dev/covgate/internal/unidiff"
)

// Kind identifies which outcome a Verdict carries.
type Kind int

const (
	Skipped Kind = iota
	NoChanges
	Passed
	Failed
)

func (k Kind) String() string {
	switch k {
	case Skipped:
		return "skipped"
	case NoChanges:
		return "no-changes"
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// UncoveredEntry names one added line that never executed.
type UncoveredEntry struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

func (e UncoveredEntry) String() string {
	return fmt.Sprintf("%s:%d", e.File, e.Line)
}

// Verdict is the outcome of one patch gate invocation.
type Verdict struct {
	Kind Kind
	// Reason explains a Skipped verdict.
	Reason string
	// Uncovered is ordered by file as encountered in the diff, then by line.
	Uncovered []UncoveredEntry
	// Unmatched lists changed files the coverage report has no entry for.
	// Their lines are also in Uncovered.
	Unmatched []string
	// Files and Lines count what was checked.
	Files int
	Lines int
}

// ExitCode maps the verdict to a process exit status.
func (v *Verdict) ExitCode() int {
	if v.Kind == Failed {
		return 1
	}
	return 0
}

// Evaluate checks every added line in changes against the executed lines in
// idx. Paths are reconciled with m.
func Evaluate(changes *unidiff.Result, idx pathmatch.Index, m *pathmatch.Matcher) *Verdict {
	if changes.NoChanges() {
		return &Verdict{Kind: NoChanges}
	}

	v := &Verdict{Kind: Passed}
	for _, fc := range changes.Files {
		executed, rule, ok := m.Match(fc.Path, idx)
		if ok {
			logger.Debug("%s matched coverage entry by %s rule", fc.Path, rule)
		} else {
			v.Unmatched = append(v.Unmatched, fc.Path)
		}

		v.Files++
		v.Lines += fc.Added.Len()
		for _, line := range fc.Added.Difference(executed) {
			v.Uncovered = append(v.Uncovered, UncoveredEntry{File: fc.Path, Line: line})
		}
	}

	if len(v.Uncovered) > 0 {
		v.Kind = Failed
	}
	return v
}
