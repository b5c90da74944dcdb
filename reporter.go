package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/reporting"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/service"
	"github.com/ethereum-optimism/infra/op-reporter/testlist"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// reporter implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &reporter{}

// reporter runs go test once and publishes the results through the enabled plugins.
type reporter struct {
	config  *Config
	version string
	streams

	metrics *metrics.Metrics
	service *service.Service
	summary *types.RunSummary

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

type streams struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func defaultStreams(opts []Option) streams {
	s := streams{stdout: os.Stdout, stderr: os.Stderr, stdin: os.Stdin}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option customizes the lifecycles
type Option func(*streams)

// WithOutput replaces the process's standard streams
func WithOutput(stdout, stderr io.Writer, stdin io.Reader) Option {
	return func(s *streams) {
		s.stdout = stdout
		s.stderr = stderr
		s.stdin = stdin
	}
}

func New(config *Config, version string, shutdownCallback func(error), opts ...Option) (*reporter, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}
	config.Log.Debug("Creating reporter",
		"root", config.RootDir,
		"reportDir", config.ReportDir,
		"reporters", config.Reporters,
		"input", config.Input)

	r := &reporter{
		config:           config,
		version:          version,
		streams:          defaultStreams(opts),
		metrics:          metrics.NewMetrics(config.Log),
		service:          service.New(config.Log),
		shutdownCallback: shutdownCallback,
	}
	return r, nil
}

// Start runs the tests once and signals shutdown when done.
// Start implements the cliapp.Lifecycle interface.
func (r *reporter) Start(ctx context.Context) error {
	r.running.Store(true)
	r.config.Log.Info("Starting op-reporter", "version", r.version)

	if err := r.service.Start(r.config.HealthzAddr, r.metrics.Registry(), r.config.MetricsConfig); err != nil {
		r.metrics.RecordErrorDetails("service", err)
		return NewRuntimeError(err)
	}

	summary, err := r.run(ctx)
	r.summary = summary
	if err != nil {
		r.config.Log.Error("Runtime error running tests", "error", err)
		r.metrics.RecordErrorDetails("run", err)
		return NewRuntimeError(err)
	}

	r.config.Log.Info("Test run completed", "run_id", summary.RunID, "summary", summary.String())
	if summary.HasFailures() {
		return NewTestFailureError(summary.String())
	}

	go func() {
		r.shutdownCallback(nil)
	}()
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (r *reporter) Stop(ctx context.Context) error {
	if !r.running.Swap(false) {
		r.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	r.config.Log.Info("Stopping op-reporter")
	return r.service.Shutdown(ctx)
}

// Stopped implements the cliapp.Lifecycle interface.
func (r *reporter) Stopped() bool {
	return !r.running.Load()
}

// Summary returns the summary of the last run
func (r *reporter) Summary() *types.RunSummary {
	return r.summary
}

func (r *reporter) run(ctx context.Context) (*types.RunSummary, error) {
	rc := runner.NewRunContext(r.config.RootDir, r.config.ReportDir, r.config.Log, logging.NewConsolePrinter(r.stdout))
	xfail, err := runner.NewXFailRules(r.config.XFail)
	if err != nil {
		return nil, err
	}
	rc.XFail = xfail

	plugins, err := r.plugins()
	if err != nil {
		return nil, err
	}
	r.config.Log.Debug("Registered plugins", "plugins", plugins.Names())

	source, closeSource, err := r.source()
	if err != nil {
		return nil, err
	}
	defer closeSource()

	resolver, err := testlist.NewResolver(r.config.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read module: %w", err)
	}

	testRunner, err := runner.NewRunner(rc, plugins, source, resolver)
	if err != nil {
		return nil, err
	}
	return testRunner.Run(ctx)
}

// plugins registers the plugins of the enabled reporters. The file sink comes
// first so the report dir is printed before output capture starts.
func (r *reporter) plugins() (*runner.PluginManager, error) {
	pm := runner.NewPluginManager()
	register := func(name string, plugin any) error {
		if err := pm.Register(name, plugin); err != nil {
			return fmt.Errorf("failed to register plugin: %w", err)
		}
		return nil
	}

	if r.config.HasReporter(flags.ReporterFile) {
		if err := register(reporting.FileSinkName, reporting.NewFileSink(r.config.Log)); err != nil {
			return nil, err
		}
		if r.config.Capture {
			if err := register(reporting.CaptureSinkName, reporting.NewCaptureSink(r.config.Log)); err != nil {
				return nil, err
			}
		}
		if r.config.RawEvents {
			if err := register(reporting.RawEventSinkName, reporting.NewRawEventSink(r.config.Log)); err != nil {
				return nil, err
			}
		}
	}
	if r.config.HasReporter(flags.ReporterStream) {
		if err := register(reporting.StreamSinkName, reporting.NewStreamSink(r.stdout)); err != nil {
			return nil, err
		}
	}
	if err := register(reporting.MetricsSinkName, reporting.NewMetricsSink(r.metrics)); err != nil {
		return nil, err
	}
	if r.config.Summary {
		if err := register(reporting.SummarySinkName, reporting.NewSummarySink(r.stderr)); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

func (r *reporter) source() (runner.Source, func(), error) {
	switch r.config.Input {
	case "":
		src, err := runner.NewGoTestSource(runner.GoTestConfig{
			Dir:      r.config.RootDir,
			GoBinary: r.config.GoBinary,
			Packages: r.config.Packages,
			Run:      r.config.RunPattern,
			Timeout:  r.config.Timeout,
			Log:      r.config.Log,
		}, nil)
		return src, func() {}, err
	case "-":
		return runner.NewReaderSource(r.stdin), func() {}, nil
	default:
		f, err := os.Open(r.config.Input)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open input: %w", err)
		}
		return runner.NewReaderSource(f), func() { _ = f.Close() }, nil
	}
}
