package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	MetricsNamespace = "op_reporter"
)

var (
	validOutcomes        = []types.Outcome{types.OutcomePassed, types.OutcomeFailed, types.OutcomeSkipped}
	nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z ]+`)
)

// Metrics holds the reporter's collectors on their own registry
type Metrics struct {
	log      log.Logger
	registry *prometheus.Registry

	errorsTotal   *prometheus.CounterVec
	testsTotal    *prometheus.CounterVec
	xfailTotal    prometheus.Counter
	packagesTotal *prometheus.CounterVec
	testDuration  prometheus.Histogram
	runResult     *prometheus.GaugeVec
	runDuration   prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry
func NewMetrics(lgr log.Logger) *Metrics {
	registry := opmetrics.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		log:      lgr,
		registry: registry,
		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "errors_total",
			Help:      "Count of errors",
		}, []string{
			"error",
		}),
		testsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "tests_total",
			Help:      "Count of finished tests by outcome",
		}, []string{
			"outcome",
		}),
		xfailTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "xfail_total",
			Help:      "Count of tests matched by an expected-failure rule",
		}),
		packagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "packages_total",
			Help:      "Count of finished test packages by outcome",
		}, []string{
			"outcome",
		}),
		testDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "test_duration_seconds",
			Help:      "Duration of individual tests",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60, 300},
		}),
		runResult: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_results",
			Help:      "Number of tests per outcome in the last run",
		}, []string{
			"outcome",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run",
		}),
	}
}

// Registry returns the registry the collectors are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func (m *Metrics) RecordError(error string) {
	m.log.Debug("metric inc", "m", "errors_total", "error", error)
	m.errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func (m *Metrics) RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	m.RecordError(fmt.Sprintf("%s.%s", label, errToLabel(err)))
}

// RecordTestReport counts call reports as tests and teardown reports as packages
func (m *Metrics) RecordTestReport(report *types.TestReport) {
	if !isValidOutcome(report.Outcome) {
		m.log.Error("RecordTestReport - invalid outcome", "outcome", report.Outcome)
		return
	}
	switch report.When {
	case types.PhaseCall:
		m.testsTotal.WithLabelValues(string(report.Outcome)).Inc()
		m.testDuration.Observe(report.Duration.Seconds())
		if report.WasXFail {
			m.xfailTotal.Inc()
		}
	case types.PhaseTeardown:
		m.packagesTotal.WithLabelValues(string(report.Outcome)).Inc()
	}
}

// RecordRun sets the gauges describing the last run
func (m *Metrics) RecordRun(passed, failed, skipped int, duration time.Duration) {
	m.runResult.WithLabelValues(string(types.OutcomePassed)).Set(float64(passed))
	m.runResult.WithLabelValues(string(types.OutcomeFailed)).Set(float64(failed))
	m.runResult.WithLabelValues(string(types.OutcomeSkipped)).Set(float64(skipped))
	m.runDuration.Set(duration.Seconds())
}

func isValidOutcome(outcome types.Outcome) bool {
	return slices.Contains(validOutcomes, outcome)
}
