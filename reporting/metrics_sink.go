package reporting

import (
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const MetricsSinkName = "metrics"

var (
	_ runner.TestReportHook = (*MetricsSink)(nil)
	_ runner.RunFinishHook  = (*MetricsSink)(nil)
)

// Metricer records test results
type Metricer interface {
	RecordTestReport(report *types.TestReport)
	RecordRun(passed, failed, skipped int, duration time.Duration)
}

// MetricsSink forwards reports and the run summary to a Metricer
type MetricsSink struct {
	m Metricer
}

func NewMetricsSink(m Metricer) *MetricsSink {
	return &MetricsSink{m: m}
}

func (s *MetricsSink) OnTestReport(rc *runner.RunContext, report *types.TestReport) error {
	s.m.RecordTestReport(report)
	return nil
}

func (s *MetricsSink) OnRunFinish(rc *runner.RunContext, summary *types.RunSummary) error {
	s.m.RecordRun(summary.Passed, summary.Failed, summary.Skipped, summary.Duration)
	return nil
}
