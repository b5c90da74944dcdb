package runner

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Runner drives one reporting run: it feeds a Source through the plugins
type Runner struct {
	rc       *RunContext
	plugins  *PluginManager
	source   Source
	resolver NodeResolver
}

// NewRunner creates a runner
func NewRunner(rc *RunContext, plugins *PluginManager, source Source, resolver NodeResolver) (*Runner, error) {
	if rc == nil {
		return nil, fmt.Errorf("run context cannot be nil")
	}
	if plugins == nil {
		return nil, fmt.Errorf("plugin manager cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("source cannot be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}
	return &Runner{rc: rc, plugins: plugins, source: source, resolver: resolver}, nil
}

// Run executes the run and returns its summary.
// A go test exit caused by failing tests is not an error; the summary carries the failures.
func (r *Runner) Run(ctx context.Context) (*types.RunSummary, error) {
	tracer := otel.Tracer("op-reporter")
	ctx, span := tracer.Start(ctx, "run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", r.rc.RunID))

	if err := r.plugins.RunStart(r.rc); err != nil {
		span.SetStatus(codes.Error, err.Error())
		// Plugins that started must still be finished
		finishErr := r.plugins.RunFinish(r.rc, &types.RunSummary{RunID: r.rc.RunID})
		return nil, errors.Join(fmt.Errorf("failed to start run: %w", err), finishErr)
	}

	translator := NewEventTranslator(ctx, r.rc, r.plugins, r.resolver, tracer)
	streamErr := r.source.Stream(ctx, translator.HandleLine)

	summary, finishErr := translator.Finish()
	if err := r.plugins.RunFinish(r.rc, summary); err != nil {
		finishErr = errors.Join(finishErr, err)
	}

	var exitErr *GoTestExitError
	if errors.As(streamErr, &exitErr) && exitErr.Code == 1 && summary.HasFailures() {
		r.rc.Log.Debug("go test reported failures", "failed", summary.Failed, "packages_failed", len(summary.PackagesFailed))
		streamErr = nil
	}

	span.SetAttributes(
		attribute.Int("passed", summary.Passed),
		attribute.Int("failed", summary.Failed),
		attribute.Int("skipped", summary.Skipped),
	)
	if err := errors.Join(streamErr, finishErr); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}
	if summary.HasFailures() {
		span.SetStatus(codes.Error, "tests failed")
	}
	return summary, nil
}
