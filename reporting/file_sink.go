package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const FileSinkName = "file"

var (
	_ runner.RunStartHook   = (*FileSink)(nil)
	_ runner.TestReportHook = (*FileSink)(nil)
)

// FileSink writes one JSON record per finished test into the run's session
// directory
type FileSink struct {
	log     log.Logger
	namer   *Namer
	now     func() time.Time
	session *logging.Session
	written int
}

func NewFileSink(lgr log.Logger) *FileSink {
	return &FileSink{
		log:   lgr,
		namer: NewNamer(),
		now:   time.Now,
	}
}

func (s *FileSink) OnRunStart(rc *runner.RunContext) error {
	session, err := rc.Session()
	if err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	s.session = session
	s.log.Info("Writing test reports", "dir", session.Dir, "run_id", session.RunID)
	rc.Print("Report dir:", session.Dir)
	return nil
}

func (s *FileSink) OnTestReport(rc *runner.RunContext, report *types.TestReport) error {
	if report.When != types.PhaseCall {
		return nil
	}
	if s.session == nil {
		if err := s.OnRunStart(rc); err != nil {
			return err
		}
	}

	data, err := NewRecord(report, s.now()).Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode record for %s: %w", report.NodeID, err)
	}
	path := filepath.Join(s.session.Dir, s.namer.Filename(report.NodeID))
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	s.written++
	s.log.Debug("Wrote test report", "nodeid", report.NodeID, "file", path)
	return nil
}

// Dir returns the session directory, empty before the run started
func (s *FileSink) Dir() string {
	if s.session == nil {
		return ""
	}
	return s.session.Dir
}

// Written returns the number of record files written
func (s *FileSink) Written() int {
	return s.written
}

// writeFileAtomic replaces path with data so readers never see a partial file
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}
