package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// FileName is the base name of the optional project config file.
	FileName = ".covgate"

	DefaultLCOVPath    = "coverage/report/lcov.info"
	DefaultSubtree     = "src"
	DefaultBaseRef     = "origin/main"
	DefaultThreshold   = 80.0
	DefaultSummaryPath = "coverage/summary.json"
	DefaultMaxDiffSize = 10 * 1024 * 1024

	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// PatchConfig controls the patch gate.
type PatchConfig struct {
	// Skip bypasses the check entirely (SKIP_PATCH_COVERAGE=1).
	Skip bool `mapstructure:"skip"`
	// DefaultBase is used when neither the CLI nor CI names a base ref.
	DefaultBase string `mapstructure:"default_base"`
	// CIBaseBranch is the pull request target branch (GITHUB_BASE_REF).
	CIBaseBranch string `mapstructure:"ci_base_branch"`
	Subtree      string `mapstructure:"subtree"`
	LCOVPath     string `mapstructure:"lcov"`
	// DiffFile, when set, is read instead of running the VCS ("-" is stdin).
	DiffFile    string `mapstructure:"diff_file"`
	Backend     string `mapstructure:"backend"`
	MaxDiffSize int    `mapstructure:"max_diff_size"`
}

// ThresholdConfig controls the aggregate gate.
type ThresholdConfig struct {
	Min      float64 `mapstructure:"min"`
	LCOVPath string  `mapstructure:"lcov"`
	// SummaryJSON is an istanbul-style coverage-summary.json used instead of
	// the LCOV report when set.
	SummaryJSON string `mapstructure:"summary_json"`
	Output      string `mapstructure:"output"`
}

// Config is built once per invocation and passed to every component.
type Config struct {
	// Root is the working root paths are resolved against.
	Root      string          `mapstructure:"root"`
	LogLevel  string          `mapstructure:"log_level"`
	Patch     PatchConfig     `mapstructure:"patch"`
	Threshold ThresholdConfig `mapstructure:"threshold"`

	// StepSummary is a markdown file reports are appended to
	// (GITHUB_STEP_SUMMARY). Empty disables it.
	StepSummary string `mapstructure:"step_summary"`
}

// envBindings maps config keys to the environment variables CI sets.
var envBindings = map[string][]string{
	"config.patch.skip":           {"SKIP_PATCH_COVERAGE"},
	"config.patch.ci_base_branch": {"GITHUB_BASE_REF"},
	"config.threshold.min":        {"COVERAGE_THRESHOLD"},
	"config.log_level":            {"COVGATE_LOG_LEVEL"},
	"config.step_summary":         {"GITHUB_STEP_SUMMARY"},
}

// Load builds the configuration for an invocation rooted at root. A ".env"
// file in root is loaded into the environment first (existing variables win),
// then the optional ".covgate.yaml" (or configFile when non-empty) is read
// under its top-level "config" key, then environment variables override.
func Load(root, configFile string) (*Config, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	if err := godotenv.Load(filepath.Join(absRoot, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(absRoot)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var wrapper struct {
		Config Config `mapstructure:"config"`
	}
	if err := v.Unmarshal(&wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	cfg := &wrapper.Config
	if cfg.Root == "" {
		cfg.Root = absRoot
	} else if !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(absRoot, cfg.Root)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config.log_level", "info")
	v.SetDefault("config.patch.skip", false)
	v.SetDefault("config.patch.default_base", DefaultBaseRef)
	v.SetDefault("config.patch.subtree", DefaultSubtree)
	v.SetDefault("config.patch.lcov", DefaultLCOVPath)
	v.SetDefault("config.patch.backend", BackendGit)
	v.SetDefault("config.patch.max_diff_size", DefaultMaxDiffSize)
	v.SetDefault("config.threshold.min", DefaultThreshold)
	v.SetDefault("config.threshold.lcov", DefaultLCOVPath)
	v.SetDefault("config.threshold.output", DefaultSummaryPath)
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Threshold.Min < 0 || c.Threshold.Min > 100 {
		result = multierror.Append(result, fmt.Errorf("threshold.min must be between 0 and 100, got %g", c.Threshold.Min))
	}
	switch c.Patch.Backend {
	case BackendGit, BackendGoGit:
	default:
		result = multierror.Append(result, fmt.Errorf("patch.backend must be %q or %q, got %q", BackendGit, BackendGoGit, c.Patch.Backend))
	}
	if c.Patch.MaxDiffSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("patch.max_diff_size must be positive, got %d", c.Patch.MaxDiffSize))
	}
	if strings.Contains(c.Patch.Subtree, "..") {
		result = multierror.Append(result, fmt.Errorf("patch.subtree must stay inside the repository, got %q", c.Patch.Subtree))
	}
	if c.Patch.LCOVPath == "" && !c.Patch.Skip {
		result = multierror.Append(result, errors.New("patch.lcov must name the coverage report"))
	}

	return result.ErrorOrNil()
}

// BaseRef picks the diff base: an explicit CLI argument, else the CI target
// branch on origin, else the configured default.
func (p PatchConfig) BaseRef(cliArg string) string {
	if ref := strings.TrimSpace(cliArg); ref != "" {
		return ref
	}
	if branch := strings.TrimSpace(p.CIBaseBranch); branch != "" {
		return "origin/" + branch
	}
	if p.DefaultBase != "" {
		return p.DefaultBase
	}
	return DefaultBaseRef
}

// Resolve returns p joined onto the config root unless it is absolute or "-".
func (c *Config) Resolve(p string) string {
	if p == "" || p == "-" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}
