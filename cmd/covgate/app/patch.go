package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covgate/internal/config"
	"github.com/zjy-dev/covgate/internal/gate"
	"github.com/zjy-dev/covgate/internal/lcov"
	"github.com/zjy-dev/covgate/internal/logger"
	"github.com/zjy-dev/covgate/internal/pathmatch"
	"github.com/zjy-dev/covgate/internal/vcs"
)

// NewPatchCommand creates the "patch" subcommand.
func NewPatchCommand() *cobra.Command {
	var (
		lcovPath string
		diffFile string
		subtree  string
		backend  string
		skip     bool
	)

	cmd := &cobra.Command{
		Use:   "patch [base-ref]",
		Short: "Fail when lines added since base-ref were not executed by the tests.",
		Long: `Diffs base-ref...HEAD under the source subtree and checks every added line
against the executed lines of an LCOV report.

The base reference is, in order: the base-ref argument, origin/$GITHUB_BASE_REF,
then the configured default (origin/main).

Set SKIP_PATCH_COVERAGE=1 (or --skip) to bypass the check without reading any
input.

Examples:
  # Check the current branch against origin/main
  covgate patch

  # Check against a specific ref with a custom report
  covgate patch origin/release --lcov build/lcov.info

  # Check a diff produced elsewhere
  git diff origin/main...HEAD -- src/ | covgate patch --diff-file -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// Command line flags override config
			if cmd.Flags().Changed("lcov") {
				cfg.Patch.LCOVPath = lcovPath
			}
			if cmd.Flags().Changed("diff-file") {
				cfg.Patch.DiffFile = diffFile
			}
			if cmd.Flags().Changed("subtree") {
				cfg.Patch.Subtree = subtree
			}
			if cmd.Flags().Changed("backend") {
				cfg.Patch.Backend = backend
			}
			if cmd.Flags().Changed("skip") {
				cfg.Patch.Skip = skip
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			var baseArg string
			if len(args) > 0 {
				baseArg = args[0]
			}
			return runPatch(cmd, cfg, baseArg)
		},
	}

	cmd.Flags().StringVar(&lcovPath, "lcov", config.DefaultLCOVPath, "LCOV report to read (- for stdin)")
	cmd.Flags().StringVar(&diffFile, "diff-file", "", "Read the unified diff from a file instead of running git (- for stdin)")
	cmd.Flags().StringVar(&subtree, "subtree", config.DefaultSubtree, "Repository directory whose changes are checked")
	cmd.Flags().StringVar(&backend, "backend", config.BackendGit, "Diff backend: git or go-git")
	cmd.Flags().BoolVar(&skip, "skip", false, "Bypass the check")

	return cmd
}

func runPatch(cmd *cobra.Command, cfg *config.Config, baseArg string) error {
	in := gate.InputFuncs{
		DiffFunc: func(ctx context.Context) (string, error) {
			return loadDiff(ctx, cfg, baseArg)
		},
		CoverageFunc: func(context.Context) (pathmatch.Index, error) {
			path := cfg.Resolve(cfg.Patch.LCOVPath)
			logger.Debug("reading coverage from %s", path)
			r, err := lcov.ParseFile(path, cfg.Root)
			if err != nil {
				return nil, err
			}
			logger.Debug("coverage report lists %d file(s)", r.Len())
			return r, nil
		},
	}

	v, err := gate.Run(cmd.Context(), cfg.Patch, in, pathmatch.New(cfg.Root))
	if err != nil {
		return err
	}
	for _, f := range v.Unmatched {
		logger.Warn("no coverage entry for %s; all its added lines count as uncovered", f)
	}

	if err := reporterFor(cmd, cfg).Patch(v); err != nil {
		return fmt.Errorf("failed to report: %w", err)
	}
	if v.ExitCode() != 0 {
		return ErrGateFailed
	}
	return nil
}

// loadDiff reads the configured diff file, or asks the VCS backend for the
// diff against the resolved base reference.
func loadDiff(ctx context.Context, cfg *config.Config, baseArg string) (string, error) {
	if cfg.Patch.DiffFile != "" {
		return readInput(cfg.Resolve(cfg.Patch.DiffFile))
	}

	base := cfg.Patch.BaseRef(baseArg)
	differ, err := vcs.New(cfg.Patch.Backend, cfg.Root, cfg.Patch.MaxDiffSize)
	if err != nil {
		return "", err
	}
	logger.Info("Comparing %s...HEAD under %s/", base, cfg.Patch.Subtree)
	return differ.Diff(ctx, base, cfg.Patch.Subtree)
}

func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
