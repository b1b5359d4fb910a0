package unidiff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioA = `diff --git a/src/a.js b/src/a.js
index 1111111..2222222 100644
--- a/src/a.js
+++ b/src/a.js
@@ -8,3 +8,5 @@ function f() {
 line8
 line9
+added10
+added11
 line12
`

const multiFile = `diff --git a/README.md b/README.md
index 3333333..4444444 100644
--- a/README.md
+++ b/README.md
@@ -1,2 +1,3 @@
 # title
++++ not a header
 text
diff --git a/src/b.js b/src/b.js
index 5555555..6666666 100644
--- a/src/b.js
+++ b/src/b.js
@@ -1,4 +1,4 @@
 one
-two
+TWO
 three
 four
@@ -20,3 +20,4 @@ function g() {
 x
-y
+Y1
+Y2
 z
diff --git a/src/new.js b/src/new.js
new file mode 100644
index 0000000..7777777
--- /dev/null
+++ b/src/new.js
@@ -0,0 +1,2 @@
+a
+b
`

// added flattens a result into path -> lines for comparison.
func added(r *Result) map[string][]int {
	out := make(map[string][]int)
	for _, f := range r.Files {
		out[f.Path] = f.Added.Lines()
	}
	return out
}

func TestParse_ScenarioA(t *testing.T) {
	r := Parse(scenarioA, "src")
	require.False(t, r.NoChanges())
	require.Len(t, r.Files, 1)
	assert.Equal(t, "src/a.js", r.Files[0].Path)
	assert.Equal(t, []int{10, 11}, r.Files[0].Added.Lines())
	assert.Equal(t, 2, r.AddedLines())
}

func TestParse_MultipleFilesAndHunks(t *testing.T) {
	r := Parse(multiFile, "src")

	want := map[string][]int{
		"src/b.js":   {2, 21, 22},
		"src/new.js": {1, 2},
	}
	if diff := cmp.Diff(want, added(r)); diff != "" {
		t.Errorf("added lines mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"src/b.js", "src/new.js"}, r.Touched)
	assert.Equal(t, "src/b.js", r.Files[0].Path, "files keep diff order")

	ls, ok := r.Lookup("src/new.js")
	require.True(t, ok)
	assert.Equal(t, 2, ls.Len())
	_, ok = r.Lookup("README.md")
	assert.False(t, ok, "files outside the subtree are skipped")
}

func TestParse_EmptySubtreeKeepsEverything(t *testing.T) {
	r := Parse(multiFile, "")
	got := added(r)
	assert.Contains(t, got, "README.md")
	assert.Equal(t, []int{2}, got["README.md"])
}

func TestParse_SubtreeSpellings(t *testing.T) {
	for _, subtree := range []string{"src", "src/", "./src", `src\`} {
		r := Parse(scenarioA, subtree)
		assert.Len(t, r.Files, 1, subtree)
	}
	assert.True(t, Parse(scenarioA, "lib").NoChanges())
	assert.True(t, Parse(scenarioA, "sr").NoChanges(), "prefix match is per directory")
}

func TestParse_MarkerLinesInsideHunk(t *testing.T) {
	text := `--- a/src/c.js
+++ b/src/c.js
@@ -1,2 +1,3 @@
--- comment
 keep
+++counter;
+--decrement;
`
	r := Parse(text, "src")
	require.Len(t, r.Files, 1)
	assert.Equal(t, "src/c.js", r.Files[0].Path)
	assert.Equal(t, []int{2, 3}, r.Files[0].Added.Lines())
	assert.Equal(t, []string{"src/c.js"}, r.Touched)
}

func TestParse_FileHeaderAfterShortHunk(t *testing.T) {
	// The first hunk claims five old and six new lines but stops after two.
	text := `--- a/src/a.js
+++ b/src/a.js
@@ -1,5 +1,6 @@
 ctx
+added2
--- a/src/b.js
+++ b/src/b.js
@@ -1 +1,2 @@
 x
+b2
`
	r := Parse(text, "src")
	assert.Equal(t, []string{"src/a.js", "src/b.js"}, r.Touched)

	a, ok := r.Lookup("src/a.js")
	require.True(t, ok)
	assert.Equal(t, []int{2}, a.Lines(), "the next file header is not an added line")

	b, ok := r.Lookup("src/b.js")
	require.True(t, ok)
	assert.Equal(t, []int{2}, b.Lines())
}

func TestParse_DeletionsOnly(t *testing.T) {
	text := `diff --git a/src/b.js b/src/b.js
--- a/src/b.js
+++ b/src/b.js
@@ -1,3 +1,2 @@
 one
-two
 three
diff --git a/src/gone.js b/src/gone.js
deleted file mode 100644
--- a/src/gone.js
+++ /dev/null
@@ -1,2 +0,0 @@
-a
-b
`
	r := Parse(text, "src")
	assert.False(t, r.NoChanges(), "deletions are still changes")
	assert.Empty(t, r.Files)
	assert.Equal(t, []string{"src/b.js", "src/gone.js"}, r.Touched)
	assert.Zero(t, r.AddedLines())
}

func TestParse_NoChanges(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"blank", ""},
		{"whitespace", "\n\n"},
		{"terminator", "OK empty diff\n"},
		{"only out of scope", "--- a/docs/x.md\n+++ b/docs/x.md\n@@ -1 +1,2 @@\n x\n+y\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Parse(tt.text, "src")
			assert.True(t, r.NoChanges())
			assert.Empty(t, r.Files)
		})
	}
}

func TestParse_NoNewlineMarker(t *testing.T) {
	text := `--- a/src/d.js
+++ b/src/d.js
@@ -3 +3 @@
-foo
\ No newline at end of file
+bar
\ No newline at end of file
`
	r := Parse(text, "src")
	require.Len(t, r.Files, 1)
	assert.Equal(t, []int{3}, r.Files[0].Added.Lines())
}

func TestParse_MalformedHunkHeader(t *testing.T) {
	text := `--- a/src/e.js
+++ b/src/e.js
@@ -x +y @@
+lost
@@ -1,1 +1,2 @@
 kept
+found
`
	r := Parse(text, "src")
	assert.Equal(t, 1, r.HunkErrors)
	require.Len(t, r.Files, 1)
	assert.Equal(t, []int{2}, r.Files[0].Added.Lines())
}

func TestParse_HeaderTimestampsAndCRLF(t *testing.T) {
	text := "--- a/src/f.js\t2024-01-01 00:00:00\r\n+++ b/src/f.js\t2024-01-02 00:00:00\r\n@@ -1,0 +1,1 @@\r\n+x\r\n"
	r := Parse(text, "src")
	require.Len(t, r.Files, 1)
	assert.Equal(t, "src/f.js", r.Files[0].Path)
	assert.Equal(t, []int{1}, r.Files[0].Added.Lines())
}

func TestParse_Idempotent(t *testing.T) {
	first := Parse(multiFile, "src")
	second := Parse(multiFile, "src")
	if diff := cmp.Diff(added(first), added(second)); diff != "" {
		t.Errorf("parse not idempotent:\n%s", diff)
	}
	assert.Equal(t, first.Touched, second.Touched)
}

func TestParser_CursorInvariant(t *testing.T) {
	body := []string{
		"--- a/src/g.js",
		"+++ b/src/g.js",
		"@@ -10,7 +12,8 @@",
		" a",
		"-b",
		"-c",
		"+B",
		"+C",
		"+D",
		" e",
		"-f",
		" g",
		"+h",
		" i",
	}
	p := newParser("src")
	for _, l := range body {
		p.line(l)
	}

	h, ok := ParseHunkHeader(body[2])
	require.True(t, ok)
	assert.Equal(t, h.NewStart+h.NewCount, p.cursor)
	assert.False(t, p.inHunk(), "hunk fully consumed")
	assert.Equal(t, []int{13, 14, 15, 18}, p.added["src/g.js"].Set().Lines())
}

func TestParseHunkHeader(t *testing.T) {
	tests := []struct {
		line string
		want HunkHeader
		ok   bool
	}{
		{"@@ -1,3 +1,4 @@", HunkHeader{1, 3, 1, 4}, true},
		{"@@ -5 +7 @@ func x()", HunkHeader{5, 1, 7, 1}, true},
		{"@@ -0,0 +1,12 @@", HunkHeader{0, 0, 1, 12}, true},
		{"@@ -1,2 +0,0 @@", HunkHeader{1, 2, 0, 0}, true},
		{"@@ bogus @@", HunkHeader{}, false},
		{"@@@ -1,2 -1,2 +1,3 @@@", HunkHeader{}, false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.line), func(t *testing.T) {
			got, ok := ParseHunkHeader(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
