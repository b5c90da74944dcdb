package flags

import (
	"fmt"
	"slices"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/op-reporter/runner"
)

const EnvVarPrefix = "OP_REPORTER"

// Reporter names accepted by --reporter
const (
	ReporterFile   = "file"
	ReporterStream = "stream"
)

func ValidReporters() []string {
	return []string{ReporterFile, ReporterStream}
}

var (
	Root = &cli.StringFlag{
		Name:    "root",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ROOT"),
		Usage:   "Project root holding the report directory. Defaults to the nearest directory with a go.mod",
	}
	ReportDir = &cli.StringFlag{
		Name:    "report-dir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_DIR"),
		Usage:   "Report directory, relative to the root unless absolute (default: report)",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to a YAML config file (default: <root>/.op-reporter.yaml if present)",
	}
	Reporters = &cli.StringSliceFlag{
		Name:    "reporter",
		Value:   cli.NewStringSlice(ReporterFile),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORTER"),
		Usage:   fmt.Sprintf("Reporters to enable, any of %v", ValidReporters()),
		Action: func(ctx *cli.Context, values []string) error {
			for _, v := range values {
				if !slices.Contains(ValidReporters(), v) {
					return fmt.Errorf("invalid reporter %q, must be one of %v", v, ValidReporters())
				}
			}
			return nil
		},
	}
	Capture = &cli.BoolFlag{
		Name:    "capture",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CAPTURE"),
		Usage:   "Copy all test output into <session>/case.log (file reporter only)",
	}
	RawEvents = &cli.BoolFlag{
		Name:    "raw-events",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RAW_EVENTS"),
		Usage:   "Store the go test -json stream in <session>/raw_go_events.log (file reporter only)",
	}
	Summary = &cli.BoolFlag{
		Name:    "summary",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUMMARY"),
		Usage:   "Print a results table to stderr when the run finishes",
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   runner.DefaultGoBinary,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "GO_BINARY"),
		Usage:   "Path to the Go binary to use for running tests",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   runner.DefaultTestTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT"),
		Usage:   "Timeout passed to go test. Set to 0 to use the go test default",
	}
	RunPattern = &cli.StringFlag{
		Name:    "run",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN"),
		Usage:   "Only run tests matching this regular expression (go test -run)",
	}
	Input = &cli.StringFlag{
		Name:    "input",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "INPUT"),
		Usage:   "Read a recorded go test -json stream from this file ('-' for stdin) instead of running go test",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Serve /healthz on this address (e.g. '0.0.0.0:8080'). Disabled when empty",
	}
	Stdin = &cli.BoolFlag{
		Name:    "stdin",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STDIN"),
		Usage:   "Render tagged status lines read from stdin instead of watching the report directory",
	}
)

// Flags are shared by all commands
var Flags []cli.Flag

// RunFlags are the flags of the run command
var RunFlags = []cli.Flag{
	Reporters,
	Capture,
	RawEvents,
	Summary,
	GoBinary,
	Timeout,
	RunPattern,
	Input,
}

// WatchFlags are the flags of the watch command
var WatchFlags = []cli.Flag{
	Stdin,
}

func init() {
	Flags = append(Flags, Root, ReportDir, ConfigFile, HealthzAddr)
	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)
	Flags = append(Flags, opmetrics.CLIFlags(EnvVarPrefix)...)
}

// AllFlags returns every flag of every command
func AllFlags() []cli.Flag {
	all := slices.Clone(Flags)
	all = append(all, RunFlags...)
	return append(all, WatchFlags...)
}
