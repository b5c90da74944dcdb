package runner

import (
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/ethereum-optimism/infra/op-reporter/logging"
)

// RunContext is the state of one run, handed to every hook
type RunContext struct {
	RootDir   string
	ReportDir string // Report directory, relative to RootDir unless absolute
	RunID     string
	Started   time.Time
	Log       log.Logger
	XFail     *XFailRules

	printer logging.Printer
	session *logging.Session
}

// NewRunContext creates the context of a run starting now
func NewRunContext(rootDir, reportDir string, lgr log.Logger, printer logging.Printer) *RunContext {
	if lgr == nil {
		lgr = log.New()
	}
	return &RunContext{
		RootDir:   rootDir,
		ReportDir: reportDir,
		RunID:     uuid.New().String(),
		Started:   time.Now(),
		Log:       lgr,
		XFail:     &XFailRules{},
		printer:   printer,
	}
}

// Session returns the run's session, creating its directories on first use
func (rc *RunContext) Session() (*logging.Session, error) {
	if rc.session != nil {
		return rc.session, nil
	}
	session, err := logging.NewSession(rc.RootDir, rc.ReportDir, rc.Started, rc.RunID)
	if err != nil {
		return nil, err
	}
	rc.session = session
	return session, nil
}

// HasSession reports whether a plugin created the session
func (rc *RunContext) HasSession() bool {
	return rc.session != nil
}

// Printer returns the output primitive currently in effect
func (rc *RunContext) Printer() logging.Printer {
	return rc.printer
}

// SetPrinter injects a new output primitive and returns the previous one
func (rc *RunContext) SetPrinter(p logging.Printer) logging.Printer {
	prev := rc.printer
	rc.printer = p
	return prev
}

// Print prints through the current printer
func (rc *RunContext) Print(args ...any) {
	if rc.printer != nil {
		rc.printer.Print(args...)
	}
}
