package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjy-dev/covgate/internal/config"
	"github.com/zjy-dev/covgate/internal/lcov"
	"github.com/zjy-dev/covgate/internal/logger"
	"github.com/zjy-dev/covgate/internal/report"
	"github.com/zjy-dev/covgate/internal/threshold"
)

// NewThresholdCommand creates the "threshold" subcommand.
func NewThresholdCommand() *cobra.Command {
	var (
		lcovPath    string
		summaryJSON string
		minPct      float64
		output      string
	)

	cmd := &cobra.Command{
		Use:   "threshold",
		Short: "Fail when aggregate line coverage is below a minimum percentage.",
		Long: `Sums the known and executed lines of a coverage report and compares the
percentage with the threshold (inclusive). The result is written as JSON.

The threshold comes from --min, COVERAGE_THRESHOLD, or the config file
(default 80).

Examples:
  # Gate on the default LCOV report
  covgate threshold --min 75

  # Gate on an istanbul json-summary report instead
  covgate threshold --summary-json coverage/coverage-summary.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			// Command line flags override config
			if cmd.Flags().Changed("lcov") {
				cfg.Threshold.LCOVPath = lcovPath
			}
			if cmd.Flags().Changed("summary-json") {
				cfg.Threshold.SummaryJSON = summaryJSON
			}
			if cmd.Flags().Changed("min") {
				cfg.Threshold.Min = minPct
			}
			if cmd.Flags().Changed("output") {
				cfg.Threshold.Output = output
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			return runThreshold(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&lcovPath, "lcov", config.DefaultLCOVPath, "LCOV report to read (- for stdin)")
	cmd.Flags().StringVar(&summaryJSON, "summary-json", "", "Read totals from a json-summary report instead of LCOV")
	cmd.Flags().Float64Var(&minPct, "min", config.DefaultThreshold, "Minimum line coverage percentage")
	cmd.Flags().StringVar(&output, "output", config.DefaultSummaryPath, "Where to write the JSON result (empty to skip)")

	return cmd
}

func runThreshold(cmd *cobra.Command, cfg *config.Config) error {
	totals, err := loadTotals(cfg)
	if err != nil {
		return err
	}

	result := threshold.Evaluate(totals, cfg.Threshold.Min)
	if cfg.Threshold.Output != "" {
		path := cfg.Resolve(cfg.Threshold.Output)
		if err := report.WriteSummary(path, result); err != nil {
			return err
		}
		logger.Debug("summary written to %s", path)
	}

	if err := reporterFor(cmd, cfg).Threshold(result); err != nil {
		return fmt.Errorf("failed to report: %w", err)
	}
	if !result.Passed {
		return ErrGateFailed
	}
	return nil
}

func loadTotals(cfg *config.Config) (threshold.Totals, error) {
	if cfg.Threshold.SummaryJSON != "" {
		path := cfg.Resolve(cfg.Threshold.SummaryJSON)
		logger.Debug("reading coverage summary from %s", path)
		return threshold.LoadSummary(path)
	}

	path := cfg.Resolve(cfg.Threshold.LCOVPath)
	logger.Debug("reading coverage from %s", path)
	r, err := lcov.ParseFile(path, cfg.Root)
	if err != nil {
		return threshold.Totals{}, err
	}
	return threshold.FromReport(r), nil
}
