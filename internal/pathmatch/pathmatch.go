// Package pathmatch reconciles file paths recorded by a diff with the paths
// recorded by a coverage report.
//
// A diff names files relative to the repository root, while coverage tools
// may record absolute paths, paths relative to another working directory, or
// Windows separators. Matching runs an explicit, ordered list of rules and the
// first rule that finds an entry wins.
package pathmatch

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/zjy-dev/covgate/internal/lineset"
)

// Index is the read-only view of a coverage report the matcher needs.
type Index interface {
	// Lookup returns the executed lines recorded under exactly key.
	Lookup(key string) (lineset.LineSet, bool)
	// Paths returns every key in the order it was first recorded.
	Paths() []string
}

// Rule is one step of the reconciliation chain.
type Rule struct {
	Name string
	// Candidate derives the key to look up, or "" when the rule does not apply.
	Candidate func(root, p string) string
	// Scan, when set, replaces the single lookup with a walk over all keys.
	Scan func(root, p string, idx Index) (lineset.LineSet, bool)
}

// DefaultRules returns the reconciliation chain in priority order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "exact", Candidate: func(_, p string) string { return p }},
		{Name: "root-relative", Candidate: RootRelative},
		{Name: "absolute", Candidate: Resolve},
		{Name: "normalized-scan", Scan: normalizedScan},
	}
}

// Matcher resolves diff paths against a coverage index.
type Matcher struct {
	Root  string
	Rules []Rule
}

// New creates a Matcher rooted at root using DefaultRules.
func New(root string) *Matcher {
	return &Matcher{Root: root, Rules: DefaultRules()}
}

// Match returns the executed lines for p and the name of the rule that found
// them. When no rule matches it returns an empty set and ok == false.
func (m *Matcher) Match(p string, idx Index) (lines lineset.LineSet, rule string, ok bool) {
	for _, r := range m.Rules {
		if r.Scan != nil {
			if ls, found := r.Scan(m.Root, p, idx); found {
				return ls, r.Name, true
			}
			continue
		}
		key := r.Candidate(m.Root, p)
		if key == "" {
			continue
		}
		if ls, found := idx.Lookup(key); found {
			return ls, r.Name, true
		}
	}
	return lineset.LineSet{}, "", false
}

// Slash converts both Windows and host separators to "/".
func Slash(p string) string {
	return filepath.ToSlash(strings.ReplaceAll(p, `\`, "/"))
}

// Resolve returns p as an absolute path, joining it onto root when relative.
// With an empty root, p is returned cleaned.
func Resolve(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) || root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// RootRelative resolves p against root and returns it relative to root with
// "/" separators. Paths outside root keep their "../" prefix; paths that
// cannot be made relative are returned in slash form.
func RootRelative(root, p string) string {
	if p == "" {
		return ""
	}
	p = Slash(p)
	if root == "" {
		return path.Clean(p)
	}
	rel, err := filepath.Rel(root, Resolve(root, filepath.FromSlash(p)))
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

func normalizedScan(_ string, p string, idx Index) (lineset.LineSet, bool) {
	target := path.Clean(Slash(p))
	for _, key := range idx.Paths() {
		if path.Clean(Slash(key)) == target {
			return idx.Lookup(key)
		}
	}
	return lineset.LineSet{}, false
}
