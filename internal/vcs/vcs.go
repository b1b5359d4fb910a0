// Package vcs produces the unified diff between a base reference and HEAD.
package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjy-dev/covgate/internal/config"
	"github.com/zjy-dev/covgate/internal/exec"
)

// Differ returns the three-dot diff base...HEAD restricted to subtree.
type Differ interface {
	Diff(ctx context.Context, base, subtree string) (string, error)
}

// New returns the Differ for backend, operating on the repository at root.
// Output larger than maxSize bytes is an error.
func New(backend, root string, maxSize int) (Differ, error) {
	switch backend {
	case "", config.BackendGit:
		return NewGitCLI(exec.NewCommandExecutor(root, maxSize)), nil
	case config.BackendGoGit:
		return &GoGit{Dir: root, MaxSize: maxSize}, nil
	default:
		return nil, fmt.Errorf("unknown diff backend %q", backend)
	}
}

// pathspec turns a subtree into the directory form used to limit a diff.
// An empty subtree limits nothing.
func pathspec(subtree string) string {
	subtree = strings.Trim(strings.ReplaceAll(subtree, `\`, "/"), "/")
	subtree = strings.TrimPrefix(subtree, "./")
	if subtree == "" || subtree == "." {
		return ""
	}
	return subtree + "/"
}
