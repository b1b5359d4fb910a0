// Package unidiff extracts newly added line numbers from unified diff text.
//
// Line numbers are expressed in the coordinate space of the post-change file,
// which is what a coverage report taken after the change refers to.
package unidiff

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zjy-dev/covgate/internal/lineset"
)

// EmptyDiffMarker terminates the diff text of a subtree with no changes.
const EmptyDiffMarker = "empty diff"

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// FileChange lists the lines a diff adds to one file.
type FileChange struct {
	Path  string
	Added lineset.LineSet
}

// Result is the parsed form of one diff.
type Result struct {
	// Files lists in-scope files with at least one added line, in the
	// order they appear in the diff.
	Files []FileChange
	// Touched lists every in-scope file the diff mentions, including files
	// that only lose lines.
	Touched []string
	// HunkErrors counts hunk headers that could not be read.
	HunkErrors int

	terminated bool
}

// NoChanges reports whether the diff holds nothing to check: blank text, the
// empty-diff terminator, or no file under the subtree.
func (r *Result) NoChanges() bool {
	return r.terminated || len(r.Touched) == 0
}

// AddedLines returns the number of added lines across all files.
func (r *Result) AddedLines() int {
	n := 0
	for _, f := range r.Files {
		n += f.Added.Len()
	}
	return n
}

// Lookup returns the added lines for path.
func (r *Result) Lookup(path string) (lineset.LineSet, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f.Added, true
		}
	}
	return lineset.LineSet{}, false
}

// HunkHeader is the decoded "@@ -a,b +c,d @@" line.
type HunkHeader struct {
	OldStart, OldCount int
	NewStart, NewCount int
}

// ParseHunkHeader decodes a hunk header. Omitted counts default to 1.
func ParseHunkHeader(line string) (HunkHeader, bool) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return HunkHeader{}, false
	}
	h := HunkHeader{OldCount: 1, NewCount: 1}
	h.OldStart, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		h.OldCount, _ = strconv.Atoi(m[2])
	}
	h.NewStart, _ = strconv.Atoi(m[3])
	if m[4] != "" {
		h.NewCount, _ = strconv.Atoi(m[4])
	}
	return h, true
}

// parser carries the scan cursors. It is reset for every file section.
type parser struct {
	prefix string

	target  string // active in-scope file, "" when skipping
	cursor  int    // next line number in the new file
	oldLeft int    // old-side lines still expected in the current hunk
	newLeft int    // new-side lines still expected in the current hunk

	order   []string
	added   map[string]*lineset.Builder
	touched map[string]bool
	result  *Result
}

// Parse reads unified diff text, keeping only files under subtree (a
// repository-relative directory such as "src"). An empty subtree keeps every
// file.
func Parse(text, subtree string) *Result {
	p := newParser(subtree)
	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		// A "--- "/"+++ " pair always starts a new file, even when the
		// previous hunk header promised more lines than it delivered.
		if p.inHunk() && strings.HasPrefix(line, "--- ") &&
			i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ") {
			p.oldLeft, p.newLeft = 0, 0
		}
		p.line(line)
	}

	for _, path := range p.order {
		if b := p.added[path]; b != nil && b.Len() > 0 {
			p.result.Files = append(p.result.Files, FileChange{Path: path, Added: b.Set()})
		}
	}
	return p.result
}

func newParser(subtree string) *parser {
	return &parser{
		prefix:  scopePrefix(subtree),
		added:   make(map[string]*lineset.Builder),
		touched: make(map[string]bool),
		result:  &Result{},
	}
}

func (p *parser) inHunk() bool {
	return p.oldLeft > 0 || p.newLeft > 0
}

func (p *parser) line(line string) {
	if strings.HasPrefix(line, "diff --git ") {
		p.target, p.cursor = "", 0
		p.oldLeft, p.newLeft = 0, 0
		return
	}
	if !p.inHunk() && p.header(line) {
		return
	}
	if strings.HasPrefix(line, "@@") {
		p.hunk(line)
		return
	}

	active := p.target != ""
	switch {
	case strings.HasPrefix(line, "+"):
		if active {
			p.added[p.target].Add(p.cursor)
			p.cursor++
		}
		p.newLeft--
	case strings.HasPrefix(line, "-"):
		p.oldLeft--
	case strings.HasPrefix(line, `\`):
		// "\ No newline at end of file" annotates the previous line and does
		// not move the cursor, so a full hunk ends at NewStart+NewCount.
	default:
		if active {
			p.cursor++
		}
		p.oldLeft--
		p.newLeft--
	}
	p.oldLeft = max(p.oldLeft, 0)
	p.newLeft = max(p.newLeft, 0)
}

// header handles lines that can only appear between hunks. It reports
// whether line was consumed.
func (p *parser) header(line string) bool {
	switch {
	case strings.HasPrefix(line, "--- "):
		if path, ok := stripSide(line[4:], "a/"); ok && p.inScope(path) {
			p.touch(path)
		}
		return true
	case strings.HasPrefix(line, "+++ "):
		p.target, p.cursor = "", 0
		if path, ok := stripSide(line[4:], "b/"); ok && p.inScope(path) {
			p.target = path
			p.touch(path)
		}
		return true
	case strings.HasSuffix(strings.TrimSpace(line), EmptyDiffMarker) && len(p.result.Touched) == 0:
		p.result.terminated = true
		return true
	}
	return false
}

func (p *parser) hunk(line string) {
	h, ok := ParseHunkHeader(line)
	if !ok {
		p.result.HunkErrors++
		return
	}
	if p.target != "" {
		p.cursor = h.NewStart
	}
	p.oldLeft, p.newLeft = h.OldCount, h.NewCount
}

func (p *parser) touch(path string) {
	if p.touched[path] {
		return
	}
	p.touched[path] = true
	p.order = append(p.order, path)
	p.added[path] = &lineset.Builder{}
	p.result.Touched = append(p.result.Touched, path)
}

func (p *parser) inScope(path string) bool {
	return p.prefix == "" || strings.HasPrefix(path, p.prefix)
}

// stripSide removes the "a/" or "b/" side prefix and any trailing timestamp.
// "/dev/null" is never a file.
func stripSide(raw, side string) (string, bool) {
	path := raw
	if i := strings.IndexByte(path, '\t'); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if len(path) >= 2 && path[0] == '"' && path[len(path)-1] == '"' {
		if unq, err := strconv.Unquote(path); err == nil {
			path = unq
		}
	}
	if path == "" || path == "/dev/null" {
		return "", false
	}
	return strings.TrimPrefix(path, side), true
}

func scopePrefix(subtree string) string {
	subtree = strings.Trim(strings.ReplaceAll(subtree, `\`, "/"), "/")
	subtree = strings.TrimPrefix(subtree, "./")
	if subtree == "" || subtree == "." {
		return ""
	}
	return subtree + "/"
}
