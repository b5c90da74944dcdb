package reporting

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

type bufferPrinter struct {
	lines []string
}

func (b *bufferPrinter) Print(args ...any) {
	b.lines = append(b.lines, logging.JoinArgs(args...))
}

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func newRunContext(t *testing.T, root string) (*runner.RunContext, *bufferPrinter) {
	t.Helper()
	printer := &bufferPrinter{}
	return runner.NewRunContext(root, logging.DefaultReportDir, testLogger(), printer), printer
}

func callReport(nodeID string, outcome types.Outcome, d time.Duration) *types.TestReport {
	return &types.TestReport{NodeID: nodeID, When: types.PhaseCall, Outcome: outcome, Duration: d}
}
