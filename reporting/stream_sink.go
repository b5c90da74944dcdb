package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const StreamSinkName = "stream"

var (
	_ runner.TestStartHook  = (*StreamSink)(nil)
	_ runner.TestReportHook = (*StreamSink)(nil)
)

// StreamSink writes tagged status lines for the editor to a writer, usually stdout
type StreamSink struct {
	mu      sync.Mutex
	w       io.Writer
	current Update
}

func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) OnTestStart(rc *runner.RunContext, item *types.TestItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = RunningUpdate(item)
	return s.emit()
}

func (s *StreamSink) OnTestReport(rc *runner.RunContext, report *types.TestReport) error {
	if report.When != types.PhaseCall {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.NodeID != report.NodeID {
		// parallel tests interleave; start from the report rather than the last started test
		s.current = Update{NodeID: report.NodeID, File: report.Location}
	}
	s.current.Apply(report)
	return s.emit()
}

// Current returns a copy of the update last emitted
func (s *StreamSink) Current() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *StreamSink) emit() error {
	line, err := s.current.MarshalLine()
	if err != nil {
		return fmt.Errorf("failed to encode update for %s: %w", s.current.NodeID, err)
	}
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("failed to write update for %s: %w", s.current.NodeID, err)
	}
	logging.Flush(s.w)
	return nil
}
