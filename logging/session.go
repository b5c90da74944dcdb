package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultReportDir  = "report"
	SessionTimeFormat = "20060102_150405" // Whole-second local time, sorts lexically
	CaseLogFilename   = "case.log"
	CaseJSONFilename  = "case.jsonl"
	RawEventsFilename = "raw_go_events.log"
)

// Session owns the output directory of one test run:
// <root>/<report-dir>/<YYYYMMDD_HHMMSS>
type Session struct {
	RootDir   string
	ReportDir string
	Dir       string
	RunID     string
	Started   time.Time
}

// NewSession creates the report directory and the session directory below it.
// Both creations are idempotent, so two sessions started within the same second
// share a directory.
func NewSession(rootDir, reportDirName string, started time.Time, runID string) (*Session, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("rootDir cannot be empty")
	}
	if reportDirName == "" {
		reportDirName = DefaultReportDir
	}
	if runID == "" {
		runID = uuid.New().String()
	}

	reportDir := reportDirName
	if !filepath.IsAbs(reportDir) {
		reportDir = filepath.Join(rootDir, reportDirName)
	}
	sessionDir := filepath.Join(reportDir, started.Local().Format(SessionTimeFormat))

	for _, dir := range []string{reportDir, sessionDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Session{
		RootDir:   rootDir,
		ReportDir: reportDir,
		Dir:       sessionDir,
		RunID:     runID,
		Started:   started,
	}, nil
}

// Path returns the path of a file inside the session directory
func (s *Session) Path(name string) string {
	return filepath.Join(s.Dir, name)
}
