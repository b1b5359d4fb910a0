// Package lineset holds sets of 1-based line numbers.
package lineset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LineSet is an immutable, sorted, deduplicated set of positive line numbers.
// The zero value is the empty set.
type LineSet struct {
	lines []int
}

// New creates a LineSet from individual line numbers. Non-positive numbers
// are dropped.
func New(lines ...int) LineSet {
	return LineSet{lines: normalize(lines)}
}

// Has reports whether line is a member of the set.
func (ls LineSet) Has(line int) bool {
	i := sort.SearchInts(ls.lines, line)
	return i < len(ls.lines) && ls.lines[i] == line
}

// IsEmpty returns true if the set contains no lines.
func (ls LineSet) IsEmpty() bool {
	return len(ls.lines) == 0
}

// Len returns the number of lines in the set.
func (ls LineSet) Len() int {
	return len(ls.lines)
}

// Lines returns the line numbers in ascending order. The caller must not
// modify the returned slice.
func (ls LineSet) Lines() []int {
	return ls.lines
}

// Difference returns the lines of ls that are not in other, ascending.
func (ls LineSet) Difference(other LineSet) []int {
	var out []int
	for _, l := range ls.lines {
		if !other.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// String returns compact range notation, e.g. "5,7-8,12".
func (ls LineSet) String() string {
	return compact(ls.lines)
}

// compact renders ascending line numbers as "5,7-8,12".
func compact(lines []int) string {
	if len(lines) == 0 {
		return ""
	}
	var parts []string
	for i := 0; i < len(lines); i++ {
		start, end := lines[i], lines[i]
		for i+1 < len(lines) && lines[i+1] == end+1 {
			i++
			end = lines[i]
		}
		if start == end {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
	}
	return strings.Join(parts, ",")
}

// Builder accumulates line numbers while a parser scans its input.
type Builder struct {
	seen map[int]struct{}
}

// Add inserts line into the builder. Non-positive numbers are ignored.
func (b *Builder) Add(line int) {
	if line <= 0 {
		return
	}
	if b.seen == nil {
		b.seen = make(map[int]struct{})
	}
	b.seen[line] = struct{}{}
}

// Len returns the number of distinct lines added so far.
func (b *Builder) Len() int {
	return len(b.seen)
}

// Set freezes the accumulated lines into a LineSet.
func (b *Builder) Set() LineSet {
	lines := make([]int, 0, len(b.seen))
	for l := range b.seen {
		lines = append(lines, l)
	}
	return New(lines...)
}

func normalize(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, 0, len(in))
	for _, l := range in {
		if l > 0 {
			out = append(out, l)
		}
	}
	sort.Ints(out)
	j := 0
	for i := range out {
		if i == 0 || out[i] != out[j-1] {
			out[j] = out[i]
			j++
		}
	}
	if j == 0 {
		return nil
	}
	return out[:j]
}
