package runner

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const testModule = "example.com/mod"

// staticResolver strips the module prefix from package paths
type staticResolver struct{}

func (staticResolver) NodeID(pkg, test string) string {
	dir := strings.TrimPrefix(strings.TrimPrefix(pkg, testModule), "/")
	if dir == "" {
		dir = "mod"
	}
	return types.NodeID(dir, test)
}

func (r staticResolver) TestFile(pkg, test string) string {
	dir, _ := types.SplitNodeID(r.NodeID(pkg, ""))
	if test == "" {
		return dir
	}
	return dir + "/" + strings.ToLower(types.TopLevelTest(test)) + "_test.go"
}

// recordingPlugin records every hook call
type recordingPlugin struct {
	mu       sync.Mutex
	calls    []string
	started  []*types.TestItem
	reports  []*types.TestReport
	raw      []string
	summary  *types.RunSummary
	failOn   string
	failWith error
}

func (p *recordingPlugin) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	if p.failOn == call {
		return p.failWith
	}
	return nil
}

func (p *recordingPlugin) OnRunStart(rc *RunContext) error {
	return p.record("run_start")
}

func (p *recordingPlugin) OnTestStart(rc *RunContext, item *types.TestItem) error {
	p.started = append(p.started, item)
	return p.record("test_start")
}

func (p *recordingPlugin) OnTestReport(rc *RunContext, report *types.TestReport) error {
	p.reports = append(p.reports, report)
	return p.record("test_report")
}

func (p *recordingPlugin) OnRawEvent(rc *RunContext, line []byte) error {
	p.raw = append(p.raw, string(line))
	return p.record("raw_event")
}

func (p *recordingPlugin) OnRunFinish(rc *RunContext, summary *types.RunSummary) error {
	p.summary = summary
	return p.record("run_finish")
}

// callReports returns the call phase reports keyed by node ID
func (p *recordingPlugin) callReports() map[string]*types.TestReport {
	out := make(map[string]*types.TestReport)
	for _, r := range p.reports {
		if r.When == types.PhaseCall {
			out[r.NodeID] = r
		}
	}
	return out
}

// bufferPrinter collects printed lines
type bufferPrinter struct {
	lines []string
}

func (b *bufferPrinter) Print(args ...any) {
	b.lines = append(b.lines, logging.JoinArgs(args...))
}

func newTestRunContext(t interface{ TempDir() string }) (*RunContext, *bufferPrinter) {
	printer := &bufferPrinter{}
	rc := NewRunContext(t.TempDir(), logging.DefaultReportDir, log.NewLogger(log.DiscardHandler()), printer)
	return rc, printer
}
