package reporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/testlist"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
)

// DefaultConfigFile is looked up in the root dir when --config is not set
const DefaultConfigFile = ".op-reporter.yaml"

// FileConfig is the optional YAML config file
type FileConfig struct {
	ReportDir string             `yaml:"report_dir"`
	XFail     []runner.XFailRule `yaml:"xfail"`
}

// Config holds the application configuration
type Config struct {
	RootDir     string   // Project root, the report dir is created below it
	ReportDir   string   // Report directory name, or an absolute path
	ConfigFile  string   // YAML file the config was merged from, empty if none
	Reporters   []string // Enabled reporters, see flags.ValidReporters
	Capture     bool     // Copy test output into case.log
	RawEvents   bool     // Keep the raw go test -json stream
	Summary     bool     // Print a results table at the end
	GoBinary    string
	Timeout     time.Duration
	RunPattern  string
	Input       string   // Recorded stream to read instead of running go test
	Packages    []string // Package patterns passed to go test
	HealthzAddr string
	Stdin       bool // watch: read tagged lines from stdin
	XFail       []runner.XFailRule

	MetricsConfig opmetrics.CLIConfig
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	rootDir, err := resolveRoot(ctx.String(flags.Root.Name))
	if err != nil {
		return nil, err
	}

	configFile := ctx.String(flags.ConfigFile.Name)
	explicitConfig := configFile != ""
	if !explicitConfig {
		configFile = filepath.Join(rootDir, DefaultConfigFile)
	}
	fileCfg, err := LoadFileConfig(configFile)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicitConfig:
		configFile = ""
		fileCfg = &FileConfig{}
	default:
		return nil, err
	}

	reportDir := fileCfg.ReportDir
	if ctx.IsSet(flags.ReportDir.Name) || reportDir == "" {
		reportDir = ctx.String(flags.ReportDir.Name)
	}
	if reportDir == "" {
		reportDir = logging.DefaultReportDir
	}

	reporters := ctx.StringSlice(flags.Reporters.Name)
	if len(reporters) == 0 {
		reporters = []string{flags.ReporterFile}
	}
	for _, r := range reporters {
		if !slices.Contains(flags.ValidReporters(), r) {
			return nil, fmt.Errorf("invalid reporter %q, must be one of %v", r, flags.ValidReporters())
		}
	}

	input := ctx.String(flags.Input.Name)
	if input != "" && input != "-" {
		if input, err = filepath.Abs(input); err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for input '%s': %w", ctx.String(flags.Input.Name), err)
		}
	}

	if _, err := runner.NewXFailRules(fileCfg.XFail); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configFile, err)
	}

	return &Config{
		RootDir:       rootDir,
		ReportDir:     reportDir,
		ConfigFile:    configFile,
		Reporters:     reporters,
		Capture:       ctx.Bool(flags.Capture.Name),
		RawEvents:     ctx.Bool(flags.RawEvents.Name),
		Summary:       ctx.Bool(flags.Summary.Name),
		GoBinary:      ctx.String(flags.GoBinary.Name),
		Timeout:       ctx.Duration(flags.Timeout.Name),
		RunPattern:    ctx.String(flags.RunPattern.Name),
		Input:         input,
		Packages:      ctx.Args().Slice(),
		HealthzAddr:   ctx.String(flags.HealthzAddr.Name),
		Stdin:         ctx.Bool(flags.Stdin.Name),
		XFail:         fileCfg.XFail,
		MetricsConfig: opmetrics.ReadCLIConfig(ctx),
		Log:           log,
	}, nil
}

// HasReporter reports whether the named reporter is enabled
func (c *Config) HasReporter(name string) bool {
	return slices.Contains(c.Reporters, name)
}

// ReportPath returns the absolute report directory
func (c *Config) ReportPath() string {
	if filepath.IsAbs(c.ReportDir) {
		return c.ReportDir
	}
	return filepath.Join(c.RootDir, c.ReportDir)
}

// LoadFileConfig reads a YAML config file
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// resolveRoot returns the absolute root dir. Without an explicit root the
// nearest directory with a go.mod is used, falling back to the working directory.
func resolveRoot(root string) (string, error) {
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return "", fmt.Errorf("failed to resolve absolute path for root '%s': %w", root, err)
		}
		return abs, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	moduleRoot, err := testlist.FindModuleRoot(wd)
	if errors.Is(err, testlist.ErrNoModule) {
		return wd, nil
	}
	if err != nil {
		return "", err
	}
	return moduleRoot, nil
}
