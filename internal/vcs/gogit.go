package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/zjy-dev/covgate/internal/exec"
	"github.com/zjy-dev/covgate/internal/logger"
)

// GoGit computes the diff in process, without a git binary.
type GoGit struct {
	// Dir is any directory inside the work tree.
	Dir string
	// MaxSize caps the encoded diff in bytes. Zero means no cap.
	MaxSize int
}

// Diff computes the patch from the merge base of base and HEAD to HEAD,
// keeping only files under subtree.
func (g *GoGit) Diff(ctx context.Context, base, subtree string) (string, error) {
	repo, err := git.PlainOpenWithOptions(g.Dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", g.Dir, err)
	}

	baseCommit, err := resolveCommit(repo, base)
	if err != nil {
		return "", err
	}
	headCommit, err := resolveCommit(repo, "HEAD")
	if err != nil {
		return "", err
	}

	bases, err := baseCommit.MergeBase(headCommit)
	if err != nil {
		return "", fmt.Errorf("failed to find merge base of %s and HEAD: %w", base, err)
	}
	if len(bases) == 0 {
		return "", fmt.Errorf("%s and HEAD have no common ancestor", base)
	}
	logger.Debug("merge base of %s and HEAD is %s", base, bases[0].Hash)

	patch, err := bases[0].PatchContext(ctx, headCommit)
	if err != nil {
		return "", fmt.Errorf("failed to compute patch: %w", err)
	}

	var buf strings.Builder
	filtered := scopedPatch{patch: patch, prefix: pathspec(subtree)}
	if err := fdiff.NewUnifiedEncoder(&buf, fdiff.DefaultContextLines).Encode(filtered); err != nil {
		return "", fmt.Errorf("failed to encode patch: %w", err)
	}
	if g.MaxSize > 0 && buf.Len() > g.MaxSize {
		return "", fmt.Errorf("diff of %s...HEAD: %w (%d bytes)", base, exec.ErrOutputLimit, g.MaxSize)
	}
	return buf.String(), nil
}

func resolveCommit(repo *git.Repository, rev string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", hash, err)
	}
	return commit, nil
}

// scopedPatch drops file patches with neither side under prefix.
type scopedPatch struct {
	patch  fdiff.Patch
	prefix string
}

func (p scopedPatch) Message() string {
	return ""
}

func (p scopedPatch) FilePatches() []fdiff.FilePatch {
	all := p.patch.FilePatches()
	if p.prefix == "" {
		return all
	}
	var kept []fdiff.FilePatch
	for _, fp := range all {
		from, to := fp.Files()
		if p.under(from) || p.under(to) {
			kept = append(kept, fp)
		}
	}
	return kept
}

func (p scopedPatch) under(f fdiff.File) bool {
	return f != nil && strings.HasPrefix(f.Path(), p.prefix)
}
