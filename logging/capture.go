package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
)

var _ Printer = (*Capture)(nil)

type captureBackend struct {
	name    string
	handler slog.Handler
	closer  io.Closer
}

// Capture duplicates everything printed during a run into the session's log
// files while passing it through to the console unchanged.
type Capture struct {
	console  Printer
	backends []captureBackend
	degraded []error
	failures int
}

// SetupCapture opens <sessionDir>/case.log and attaches the log backends to it.
// The plain backend writes human readable lines to case.log; the structured one
// writes JSON records to case.jsonl. A backend that fails to attach is recorded
// in Degraded; setup fails only when the log file cannot be opened or no
// backend is left.
func SetupCapture(sessionDir string, console Printer) (*Capture, error) {
	if console == nil {
		return nil, fmt.Errorf("console printer cannot be nil")
	}

	logPath := filepath.Join(sessionDir, CaseLogFilename)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture log %s: %w", logPath, err)
	}

	c := &Capture{console: console}

	attach := func(name string, open func() (captureBackend, error)) {
		b, err := open()
		if err != nil {
			c.degraded = append(c.degraded, fmt.Errorf("%s backend: %w", name, err))
			return
		}
		b.name = name
		c.backends = append(c.backends, b)
	}

	attach("plain", func() (captureBackend, error) {
		return captureBackend{
			handler: log.NewTerminalHandlerWithLevel(logFile, log.LevelDebug, false),
			closer:  logFile,
		}, nil
	})
	attach("structured", func() (captureBackend, error) {
		jsonPath := filepath.Join(sessionDir, CaseJSONFilename)
		f, err := os.OpenFile(jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return captureBackend{}, err
		}
		return captureBackend{
			handler: log.JSONHandlerWithLevel(f, log.LevelDebug),
			closer:  f,
		}, nil
	})

	if len(c.backends) == 0 {
		_ = logFile.Close()
		return nil, fmt.Errorf("no capture backend attached: %w", errors.Join(c.degraded...))
	}
	return c, nil
}

// Print logs the joined arguments at debug level, then passes the original
// arguments to the console.
func (c *Capture) Print(args ...any) {
	if err := c.logMessage(JoinArgs(args...)); err != nil {
		c.failures++
	}
	c.console.Print(args...)
}

func (c *Capture) logMessage(msg string) error {
	ctx := context.Background()
	record := slog.NewRecord(time.Now(), log.LevelDebug, stripansi.Strip(msg), 0)

	var errs []error
	for _, b := range c.backends {
		if !b.handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := b.handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("%s backend: %w", b.name, err))
		}
	}
	return errors.Join(errs...)
}

// Degraded returns the errors of backends that failed to attach
func (c *Capture) Degraded() []error {
	return c.degraded
}

// Failures returns how many messages could not be logged
func (c *Capture) Failures() int {
	return c.failures
}

// Close closes the log files
func (c *Capture) Close() error {
	var errs []error
	for _, b := range c.backends {
		if b.closer != nil {
			errs = append(errs, b.closer.Close())
		}
	}
	c.backends = nil
	return errors.Join(errs...)
}
