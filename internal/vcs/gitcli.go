package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/zjy-dev/covgate/internal/exec"
	"github.com/zjy-dev/covgate/internal/logger"
)

// GitCLI shells out to the git binary.
type GitCLI struct {
	executor exec.Executor
}

// NewGitCLI creates a GitCLI that runs git through executor.
func NewGitCLI(executor exec.Executor) *GitCLI {
	return &GitCLI{executor: executor}
}

// Diff runs `git diff <base>...HEAD -- <subtree>/`.
func (g *GitCLI) Diff(ctx context.Context, base, subtree string) (string, error) {
	args := []string{"diff", "--no-color", "--no-ext-diff", base + "...HEAD"}
	if spec := pathspec(subtree); spec != "" {
		args = append(args, "--", spec)
	}
	logger.Debug("running git %s", strings.Join(args, " "))

	result, err := g.executor.Run(ctx, "git", args...)
	if err != nil {
		return "", fmt.Errorf("failed to run git diff: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("git diff %s...HEAD exited with status %d: %s",
			base, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	return result.Stdout, nil
}
