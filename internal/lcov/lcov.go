// Package lcov parses LCOV tracefiles into per-file sets of executed lines.
//
// The parser is lenient: records it cannot interpret are skipped, never
// reported as errors. An unreadable data point simply leaves its line out of
// the executed set, so it can only ever surface as missing coverage.
//
// Record format reference (geninfo(1)):
//
//	TN:<test name>
//	SF:<path to source file>
//	FN:<line>,[<end line>,]<function name>
//	FNDA:<execution count>,<function name>
//	FNF:<functions found>
//	FNH:<functions hit>
//	BRDA:<line>,<block>,<branch>,<taken | ->
//	BRF:<branches found>
//	BRH:<branches hit>
//	DA:<line>,<execution count>[,<checksum>]
//	LF:<lines found>
//	LH:<lines hit>
//	end_of_record
package lcov

import (
	"strconv"
	"strings"

	"github.com/zjy-dev/covgate/internal/lineset"
	"github.com/zjy-dev/covgate/internal/pathmatch"
)

// File holds everything recorded for one source file.
type File struct {
	// Path is the source path relative to the report root, "/" separated.
	Path string
	// Known holds every line with a well-formed DA record.
	Known lineset.LineSet
	// Executed holds the lines whose DA hit count is greater than zero.
	Executed lineset.LineSet

	FunctionsFound int
	FunctionsHit   int
	BranchesFound  int
	BranchesHit    int
}

// Report is a parsed LCOV tracefile. It is immutable once returned by Parse.
type Report struct {
	files []*File
	byKey map[string]*File
}

// Files returns the source files in order of first appearance.
func (r *Report) Files() []*File {
	return r.files
}

// Len returns the number of distinct source files.
func (r *Report) Len() int {
	return len(r.files)
}

// File returns the entry recorded under exactly path.
func (r *Report) File(path string) (*File, bool) {
	f, ok := r.byKey[path]
	return f, ok
}

// Lookup returns the executed lines recorded under exactly key.
func (r *Report) Lookup(key string) (lineset.LineSet, bool) {
	f, ok := r.File(key)
	if !ok {
		return lineset.LineSet{}, false
	}
	return f.Executed, true
}

// Paths returns every file key in order of first appearance.
func (r *Report) Paths() []string {
	paths := make([]string, len(r.files))
	for i, f := range r.files {
		paths[i] = f.Path
	}
	return paths
}

var _ pathmatch.Index = (*Report)(nil)

// fileState is the mutable accumulator behind a File during parsing.
type fileState struct {
	known, executed lineset.Builder

	functions    map[string]bool
	branches     map[string]bool
	summaryFNF   int
	summaryFNH   int
	summaryBRF   int
	summaryBRH   int
	sawFunctions bool
	sawBranches  bool
}

// Parse reads LCOV text. Relative SF paths are resolved against root and all
// paths are stored relative to root with "/" separators; an empty root keeps
// paths as recorded (cleaned, "/" separated).
func Parse(text, root string) *Report {
	var (
		order   []string
		states  = make(map[string]*fileState)
		current *fileState
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")

		tag, value, found := strings.Cut(line, ":")
		if !found {
			// end_of_record and blank lines carry no data.
			continue
		}

		if tag == "SF" {
			key := pathmatch.RootRelative(root, strings.TrimSpace(value))
			if key == "" {
				current = nil
				continue
			}
			st, ok := states[key]
			if !ok {
				st = &fileState{functions: make(map[string]bool), branches: make(map[string]bool)}
				states[key] = st
				order = append(order, key)
			}
			current = st
			continue
		}
		if current == nil {
			continue
		}

		switch tag {
		case "DA":
			if rec := parseLineData(value); rec.ok {
				current.known.Add(rec.line)
				if rec.hits > 0 {
					current.executed.Add(rec.line)
				}
			}
		case "FN":
			if name, ok := parseFunctionName(value); ok {
				current.sawFunctions = true
				if _, seen := current.functions[name]; !seen {
					current.functions[name] = false
				}
			}
		case "FNDA":
			if rec := parseCountedName(value); rec.ok {
				current.sawFunctions = true
				current.functions[rec.name] = current.functions[rec.name] || rec.count > 0
			}
		case "BRDA":
			if rec := parseBranch(value); rec.ok {
				current.sawBranches = true
				current.branches[rec.key] = current.branches[rec.key] || rec.taken
			}
		case "FNF":
			current.summaryFNF = max(current.summaryFNF, parseCount(value))
		case "FNH":
			current.summaryFNH = max(current.summaryFNH, parseCount(value))
		case "BRF":
			current.summaryBRF = max(current.summaryBRF, parseCount(value))
		case "BRH":
			current.summaryBRH = max(current.summaryBRH, parseCount(value))
		}
	}

	r := &Report{byKey: make(map[string]*File, len(order))}
	for _, key := range order {
		f := states[key].freeze(key)
		r.files = append(r.files, f)
		r.byKey[key] = f
	}
	return r
}

func (s *fileState) freeze(key string) *File {
	f := &File{
		Path:     key,
		Known:    s.known.Set(),
		Executed: s.executed.Set(),
	}
	if s.sawFunctions {
		f.FunctionsFound = len(s.functions)
		f.FunctionsHit = countTrue(s.functions)
	} else {
		f.FunctionsFound, f.FunctionsHit = s.summaryFNF, s.summaryFNH
	}
	if s.sawBranches {
		f.BranchesFound = len(s.branches)
		f.BranchesHit = countTrue(s.branches)
	} else {
		f.BranchesFound, f.BranchesHit = s.summaryBRF, s.summaryBRH
	}
	return f
}

// lineData is the outcome of one attempt to read a DA record.
type lineData struct {
	line, hits int
	ok         bool
}

func parseLineData(value string) lineData {
	fields := strings.Split(value, ",")
	if len(fields) < 2 {
		return lineData{}
	}
	line, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil || line < 1 {
		return lineData{}
	}
	hits, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return lineData{}
	}
	return lineData{line: line, hits: hits, ok: true}
}

// parseFunctionName accepts both "FN:<line>,<name>" and the lcov 2.x
// "FN:<line>,<end line>,<name>" forms.
func parseFunctionName(value string) (string, bool) {
	fields := strings.SplitN(value, ",", 3)
	if len(fields) < 2 {
		return "", false
	}
	if _, err := strconv.Atoi(fields[0]); err != nil {
		return "", false
	}
	name := fields[len(fields)-1]
	if len(fields) == 3 {
		if _, err := strconv.Atoi(fields[1]); err != nil {
			name = fields[1] + "," + fields[2]
		}
	}
	name = strings.TrimSpace(name)
	return name, name != ""
}

type countedName struct {
	count int
	name  string
	ok    bool
}

func parseCountedName(value string) countedName {
	countStr, name, found := strings.Cut(value, ",")
	if !found || strings.TrimSpace(name) == "" {
		return countedName{}
	}
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil {
		return countedName{}
	}
	return countedName{count: count, name: strings.TrimSpace(name), ok: true}
}

type branchData struct {
	key   string
	taken bool
	ok    bool
}

func parseBranch(value string) branchData {
	fields := strings.Split(value, ",")
	if len(fields) < 4 {
		return branchData{}
	}
	if _, err := strconv.Atoi(strings.TrimSpace(fields[0])); err != nil {
		return branchData{}
	}
	taken := strings.TrimSpace(fields[len(fields)-1])
	rec := branchData{key: strings.Join(fields[:len(fields)-1], ","), ok: true}
	if taken != "-" {
		n, err := strconv.Atoi(taken)
		rec.taken = err == nil && n > 0
	}
	return rec
}

func parseCount(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func countTrue(m map[string]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}
