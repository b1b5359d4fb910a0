package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covgate/internal/config"
	"github.com/zjy-dev/covgate/internal/unidiff"
)

// NewChangesCommand creates the "changes" subcommand.
func NewChangesCommand() *cobra.Command {
	var (
		diffFile string
		subtree  string
		backend  string
	)

	cmd := &cobra.Command{
		Use:   "changes [base-ref]",
		Short: "Print the added lines the patch gate would check.",
		Long: `Parses the same diff the patch gate uses and prints every in-scope file with
its added line numbers. Useful when a patch gate result looks wrong.

Examples:
  covgate changes
  covgate changes --diff-file my.patch --subtree lib`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
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

			var baseArg string
			if len(args) > 0 {
				baseArg = args[0]
			}
			text, err := loadDiff(cmd.Context(), cfg, baseArg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), formatChanges(unidiff.Parse(text, cfg.Patch.Subtree)))
			return err
		},
	}

	cmd.Flags().StringVar(&diffFile, "diff-file", "", "Read the unified diff from a file instead of running git (- for stdin)")
	cmd.Flags().StringVar(&subtree, "subtree", config.DefaultSubtree, "Repository directory whose changes are listed")
	cmd.Flags().StringVar(&backend, "backend", config.BackendGit, "Diff backend: git or go-git")

	return cmd
}

func formatChanges(r *unidiff.Result) string {
	if r.NoChanges() {
		return "No changes.\n"
	}

	var sb strings.Builder
	for _, path := range r.Touched {
		added, _ := r.Lookup(path)
		if added.IsEmpty() {
			fmt.Fprintf(&sb, "%s: (no added lines)\n", path)
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", path, added)
	}
	fmt.Fprintf(&sb, "%d added line(s) in %d file(s)\n", r.AddedLines(), len(r.Files))
	if r.HunkErrors > 0 {
		fmt.Fprintf(&sb, "%d malformed hunk header(s) ignored\n", r.HunkErrors)
	}
	return sb.String()
}
