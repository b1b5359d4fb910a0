package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covgate/internal/config"
	"github.com/zjy-dev/covgate/internal/logger"
	"github.com/zjy-dev/covgate/internal/report"
)

// ErrGateFailed is returned when a gate ran and its check did not pass.
var ErrGateFailed = errors.New("coverage gate failed")

// NewCovgateCommand creates the root command for the covgate tool.
func NewCovgateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "covgate",
		Short: "Coverage gates for CI.",
		Long: `covgate fails a CI job when a change adds source lines the test run never
executed (patch gate), or when aggregate line coverage drops below a minimum
(threshold gate). It reads a unified diff and an LCOV report; it never runs
tests or computes coverage itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file (default: .covgate.yaml in the root)")
	cmd.PersistentFlags().String("root", "", "Project root paths are resolved against (default: working directory)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(NewPatchCommand())
	cmd.AddCommand(NewThresholdCommand())
	cmd.AddCommand(NewChangesCommand())

	return cmd
}

// loadConfig builds the invocation's configuration from the persistent flags
// and initializes logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	root, _ := cmd.Flags().GetString("root")
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(root, configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	logger.Init(cfg.LogLevel)
	logger.SetLevel(cfg.LogLevel)
	if noColor(cmd) {
		logger.SetColorEnable(false)
	}
	logger.Debug("root: %s", cfg.Root)
	return cfg, nil
}

// reporterFor returns the console reporter plus the job summary when one is
// configured.
func reporterFor(cmd *cobra.Command, cfg *config.Config) report.Reporter {
	console := report.NewConsole(cmd.OutOrStdout())
	if noColor(cmd) {
		console.SetColor(false)
	}
	reporters := report.Multi{console}
	if cfg.StepSummary != "" {
		reporters = append(reporters, report.NewMarkdownReporter(cfg.StepSummary))
	}
	return reporters
}

func noColor(cmd *cobra.Command) bool {
	disabled, _ := cmd.Flags().GetBool("no-color")
	return disabled
}
