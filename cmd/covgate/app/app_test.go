package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjy-dev/covgate/internal/lcov"
	"github.com/zjy-dev/covgate/internal/report"
)

const changeDiff = `diff --git a/src/a.js b/src/a.js
index 1111111..2222222 100644
--- a/src/a.js
+++ b/src/a.js
@@ -8,3 +8,5 @@
 line8
 line9
+added10
+added11
 line12
diff --git a/docs/readme.md b/docs/readme.md
--- a/docs/readme.md
+++ b/docs/readme.md
@@ -1 +1,2 @@
 title
+more
`

const partialLCOV = `TN:
SF:src/a.js
DA:9,1
DA:10,1
DA:11,0
DA:12,1
end_of_record
`

// setupProject writes files into a fresh root and clears the environment
// the command reads.
func setupProject(t *testing.T, files map[string]string) string {
	t.Helper()
	for _, e := range []string{"SKIP_PATCH_COVERAGE", "GITHUB_BASE_REF", "COVERAGE_THRESHOLD", "COVGATE_LOG_LEVEL", "GITHUB_STEP_SUMMARY"} {
		t.Setenv(e, "")
	}

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCovgateCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPatchCommand(t *testing.T) {
	t.Run("uncovered added line fails", func(t *testing.T) {
		root := setupProject(t, map[string]string{
			"change.diff":               changeDiff,
			"coverage/report/lcov.info": partialLCOV,
		})

		out, err := execute(t, "patch", "--root", root, "--diff-file", "change.diff")
		assert.ErrorIs(t, err, ErrGateFailed)
		assert.Contains(t, out, "1 of 2 added line(s) not executed")
		assert.Contains(t, out, "\n  src/a.js:11\n")
		assert.NotContains(t, out, "readme")
	})

	t.Run("covered lines pass", func(t *testing.T) {
		root := setupProject(t, map[string]string{
			"change.diff": changeDiff,
			"lcov.info":   "SF:src/a.js\nDA:10,1\nDA:11,2\nend_of_record\n",
		})

		out, err := execute(t, "patch", "--root", root, "--diff-file", "change.diff", "--lcov", "lcov.info")
		require.NoError(t, err)
		assert.Contains(t, out, "all 2 added line(s) in 1 file(s) executed")
	})

	t.Run("absolute coverage paths are reconciled", func(t *testing.T) {
		root := setupProject(t, map[string]string{"change.diff": changeDiff})
		abs := filepath.Join(root, "src", "a.js")
		require.NoError(t, os.WriteFile(filepath.Join(root, "lcov.info"),
			[]byte("SF:"+abs+"\nDA:10,1\nDA:11,1\nend_of_record\n"), 0644))

		_, err := execute(t, "patch", "--root", root, "--diff-file", "change.diff", "--lcov", "lcov.info")
		assert.NoError(t, err)
	})

	t.Run("skip reads no input", func(t *testing.T) {
		root := setupProject(t, nil)
		t.Setenv("SKIP_PATCH_COVERAGE", "1")

		out, err := execute(t, "patch", "--root", root, "--diff-file", "missing.diff", "--lcov", "missing.info")
		require.NoError(t, err)
		assert.Contains(t, out, "skipped")
	})

	t.Run("no color flag", func(t *testing.T) {
		root := setupProject(t, map[string]string{
			"change.diff": changeDiff,
			"lcov.info":   partialLCOV,
		})

		out, err := execute(t, "patch", "--root", root, "--no-color", "--diff-file", "change.diff", "--lcov", "lcov.info")
		assert.ErrorIs(t, err, ErrGateFailed)
		assert.NotContains(t, out, "\033[")
		assert.Contains(t, out, "Patch coverage FAILED:")
	})

	t.Run("skip flag", func(t *testing.T) {
		root := setupProject(t, nil)
		_, err := execute(t, "patch", "--root", root, "--skip", "--diff-file", "missing.diff")
		assert.NoError(t, err)
	})

	t.Run("empty diff passes", func(t *testing.T) {
		root := setupProject(t, map[string]string{
			"change.diff":               "empty diff\n",
			"coverage/report/lcov.info": partialLCOV,
		})

		out, err := execute(t, "patch", "--root", root, "--diff-file", "change.diff")
		require.NoError(t, err)
		assert.Contains(t, out, "No source changes to check.")
	})

	t.Run("empty diff without a report fails", func(t *testing.T) {
		root := setupProject(t, map[string]string{"change.diff": "empty diff\n"})

		out, err := execute(t, "patch", "--root", root, "--diff-file", "change.diff", "--lcov", "does/not/exist.info")
		assert.ErrorIs(t, err, lcov.ErrReportNotFound)
		assert.NotContains(t, out, "No source changes")
	})

	t.Run("missing report is an error", func(t *testing.T) {
		root := setupProject(t, map[string]string{"change.diff": changeDiff})

		_, err := execute(t, "patch", "--root", root, "--diff-file", "change.diff")
		require.Error(t, err)
		assert.ErrorIs(t, err, lcov.ErrReportNotFound)
		assert.NotErrorIs(t, err, ErrGateFailed)
	})

	t.Run("missing diff file is an error", func(t *testing.T) {
		root := setupProject(t, map[string]string{"coverage/report/lcov.info": partialLCOV})
		_, err := execute(t, "patch", "--root", root, "--diff-file", "nope.diff")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get diff")
	})

	t.Run("invalid backend", func(t *testing.T) {
		root := setupProject(t, nil)
		_, err := execute(t, "patch", "--root", root, "--backend", "svn")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})

	t.Run("job summary", func(t *testing.T) {
		root := setupProject(t, map[string]string{
			"change.diff": changeDiff,
			"lcov.info":   partialLCOV,
		})
		summary := filepath.Join(root, "step_summary.md")
		t.Setenv("GITHUB_STEP_SUMMARY", summary)

		_, err := execute(t, "patch", "--root", root, "--diff-file", "change.diff", "--lcov", "lcov.info")
		assert.ErrorIs(t, err, ErrGateFailed)

		content, err := os.ReadFile(summary)
		require.NoError(t, err)
		assert.Contains(t, string(content), "| `src/a.js` | 11 |")
	})
}

func TestThresholdCommand(t *testing.T) {
	t.Run("passes and writes summary", func(t *testing.T) {
		root := setupProject(t, map[string]string{"coverage/report/lcov.info": partialLCOV})

		out, err := execute(t, "threshold", "--root", root, "--min", "70")
		require.NoError(t, err)
		assert.Contains(t, out, "Line coverage 75.00% (3/4)")

		s, err := report.ReadSummary(filepath.Join(root, "coverage", "summary.json"))
		require.NoError(t, err)
		assert.True(t, s.Passed)
		assert.Equal(t, 75.0, s.Percentage)
		assert.Equal(t, 70.0, s.Threshold)
	})

	t.Run("below default threshold fails", func(t *testing.T) {
		root := setupProject(t, map[string]string{"coverage/report/lcov.info": partialLCOV})

		out, err := execute(t, "threshold", "--root", root)
		assert.ErrorIs(t, err, ErrGateFailed)
		assert.Contains(t, out, "below threshold 80.00% by 5.00 points")

		s, err := report.ReadSummary(filepath.Join(root, "coverage", "summary.json"))
		require.NoError(t, err)
		assert.False(t, s.Passed)
	})

	t.Run("threshold from environment", func(t *testing.T) {
		root := setupProject(t, map[string]string{"coverage/report/lcov.info": partialLCOV})
		t.Setenv("COVERAGE_THRESHOLD", "75")

		_, err := execute(t, "threshold", "--root", root, "--output", "")
		assert.NoError(t, err)
		assert.NoFileExists(t, filepath.Join(root, "coverage", "summary.json"))
	})

	t.Run("json summary input", func(t *testing.T) {
		root := setupProject(t, map[string]string{
			"coverage/coverage-summary.json": `{"total":{"lines":{"total":10,"covered":9},"statements":{"total":12,"covered":10}}}`,
		})

		out, err := execute(t, "threshold", "--root", root, "--summary-json", "coverage/coverage-summary.json")
		require.NoError(t, err)
		assert.Contains(t, out, "Line coverage 90.00% (9/10)")
		assert.Contains(t, out, "83.33% (10/12)")
	})

	t.Run("missing report", func(t *testing.T) {
		root := setupProject(t, nil)
		_, err := execute(t, "threshold", "--root", root)
		assert.ErrorIs(t, err, lcov.ErrReportNotFound)
	})

	t.Run("out of range threshold", func(t *testing.T) {
		root := setupProject(t, nil)
		_, err := execute(t, "threshold", "--root", root, "--min", "120")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "threshold.min")
	})
}

func TestChangesCommand(t *testing.T) {
	root := setupProject(t, map[string]string{"change.diff": changeDiff})

	out, err := execute(t, "changes", "--root", root, "--diff-file", "change.diff")
	require.NoError(t, err)
	assert.Equal(t, "src/a.js: 10-11\n2 added line(s) in 1 file(s)\n", out)

	out, err = execute(t, "changes", "--root", root, "--diff-file", "change.diff", "--subtree", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "docs/readme.md: 2\n")
}

func TestFormatChanges(t *testing.T) {
	root := setupProject(t, map[string]string{
		"empty.diff": "",
		"del.diff":   "--- a/src/gone.js\n+++ b/src/gone.js\n@@ -1,1 +0,0 @@\n-x\n",
	})

	out, err := execute(t, "changes", "--root", root, "--diff-file", "empty.diff")
	require.NoError(t, err)
	assert.Equal(t, "No changes.\n", out)

	out, err = execute(t, "changes", "--root", root, "--diff-file", "del.diff")
	require.NoError(t, err)
	assert.Contains(t, out, "src/gone.js: (no added lines)\n")
}
