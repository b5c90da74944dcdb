package reporting

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const CaptureSinkName = "capture"

var (
	_ runner.RunStartHook  = (*CaptureSink)(nil)
	_ runner.RunFinishHook = (*CaptureSink)(nil)
)

// CaptureSink copies everything the run prints into the session's case.log.
// It must be registered after the file sink so that the report dir line is
// printed before capture starts.
type CaptureSink struct {
	log      log.Logger
	capture  *logging.Capture
	previous logging.Printer
}

func NewCaptureSink(lgr log.Logger) *CaptureSink {
	return &CaptureSink{log: lgr}
}

// OnRunStart never fails the run: without a session or capture backend the
// run continues uncaptured.
func (s *CaptureSink) OnRunStart(rc *runner.RunContext) error {
	session, err := rc.Session()
	if err == nil {
		s.capture, err = logging.SetupCapture(session.Dir, rc.Printer())
	}
	if err != nil {
		s.log.Warn("Output capture disabled", "err", err)
		rc.Print(fmt.Sprintf("warning: output capture disabled: %v", err))
		return nil
	}
	for _, d := range s.capture.Degraded() {
		s.log.Warn("Output capture degraded", "err", d)
	}
	s.previous = rc.SetPrinter(s.capture)
	s.log.Debug("Capturing output", "file", session.Path(logging.CaseLogFilename))
	return nil
}

func (s *CaptureSink) OnRunFinish(rc *runner.RunContext, summary *types.RunSummary) error {
	if s.capture == nil {
		return nil
	}
	rc.SetPrinter(s.previous)
	if n := s.capture.Failures(); n > 0 {
		s.log.Warn("Some output was not captured", "messages", n)
	}
	err := s.capture.Close()
	s.capture = nil
	if err != nil {
		return fmt.Errorf("failed to close capture files: %w", err)
	}
	return nil
}

// Active reports whether output is currently captured
func (s *CaptureSink) Active() bool {
	return s.capture != nil
}
