package reporting

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const RawEventSinkName = "raw"

var (
	_ runner.RunStartHook  = (*RawEventSink)(nil)
	_ runner.RawEventHook  = (*RawEventSink)(nil)
	_ runner.RunFinishHook = (*RawEventSink)(nil)
)

// RawEventSink stores the unmodified go test -json stream in the session
// directory, so that tools like gotestsum can replay the run
type RawEventSink struct {
	log  log.Logger
	file *logging.AsyncFile
}

func NewRawEventSink(lgr log.Logger) *RawEventSink {
	return &RawEventSink{log: lgr}
}

func (s *RawEventSink) OnRunStart(rc *runner.RunContext) error {
	session, err := rc.Session()
	if err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	f, err := logging.NewAsyncFile(session.Path(logging.RawEventsFilename))
	if err != nil {
		return err
	}
	s.file = f
	return nil
}

func (s *RawEventSink) OnRawEvent(rc *runner.RunContext, line []byte) error {
	if s.file == nil {
		return nil
	}
	buf := make([]byte, 0, len(line)+1)
	buf = append(append(buf, line...), '\n')
	if _, err := s.file.Write(buf); err != nil {
		return fmt.Errorf("failed to write raw event: %w", err)
	}
	return nil
}

func (s *RawEventSink) OnRunFinish(rc *runner.RunContext, summary *types.RunSummary) error {
	if s.file == nil {
		return nil
	}
	name := s.file.Name()
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	s.log.Debug("Stored raw go test events", "file", name)
	return nil
}
