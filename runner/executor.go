package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum/go-ethereum/log"
)

var (
	_ Source = (*GoTestSource)(nil)
	_ Source = (*ReaderSource)(nil)
)

// Source produces the lines of a go test -json event stream
type Source interface {
	// Stream calls handle for every line until the stream ends or handle fails
	Stream(ctx context.Context, handle func(line []byte) error) error
}

// CmdBuilder creates the command for a go test invocation and a cleanup func
type CmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// GoTestExitError is returned when go test exits non-zero
type GoTestExitError struct {
	Code   int
	Stderr string
}

func (e *GoTestExitError) Error() string {
	msg := fmt.Sprintf("go test exited with code %d", e.Code)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// GoTestConfig configures a go test invocation
type GoTestConfig struct {
	Dir      string
	GoBinary string
	Packages []string
	Run      string
	Timeout  time.Duration
	Log      log.Logger
}

// GoTestSource runs go test -json and streams its stdout
type GoTestSource struct {
	cfg        GoTestConfig
	cmdBuilder CmdBuilder
}

// NewGoTestSource creates a source running go test in cfg.Dir
func NewGoTestSource(cfg GoTestConfig, cmdBuilder CmdBuilder) (*GoTestSource, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if cfg.GoBinary == "" {
		cfg.GoBinary = DefaultGoBinary
	}
	if len(cfg.Packages) == 0 {
		cfg.Packages = []string{AllPackagesPattern}
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cmdBuilder == nil {
		cmdBuilder = defaultCmdBuilder(cfg.Dir)
	}
	return &GoTestSource{cfg: cfg, cmdBuilder: cmdBuilder}, nil
}

// Args returns the go test arguments
func (s *GoTestSource) Args() []string {
	args := []string{TestCommand, JSONFlag, VerboseFlag, CountFlag, DisableCache}
	if s.cfg.Timeout > 0 {
		args = append(args, TimeoutFlag, s.cfg.Timeout.String())
	}
	if s.cfg.Run != "" {
		args = append(args, RunFlag, s.cfg.Run)
	}
	return append(args, s.cfg.Packages...)
}

func (s *GoTestSource) Stream(ctx context.Context, handle func(line []byte) error) error {
	args := s.Args()
	cmd, cleanup := s.cmdBuilder(ctx, s.cfg.GoBinary, args...)
	defer cleanup()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stderr := newTailBuffer(64 * 1024)
	cmd.Stderr = stderr

	s.cfg.Log.Info("Running go test", "dir", s.cfg.Dir, "args", strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", s.cfg.GoBinary, err)
	}

	streamErr := readLines(stdout, handle)
	if streamErr != nil {
		// Stop the child and drain so Wait does not block on a full pipe
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()
	if streamErr != nil {
		return streamErr
	}

	if waitErr != nil {
		exitErr := &exec.ExitError{}
		if errors.As(waitErr, &exitErr) {
			return &GoTestExitError{Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return fmt.Errorf("go test failed: %w", waitErr)
	}
	return nil
}

func defaultCmdBuilder(dir string) CmdBuilder {
	return func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
		cmd := exec.CommandContext(ctx, name, arg...)
		cmd.Dir = dir
		cmd.Env = telemetry.InstrumentEnvironment(ctx, os.Environ())
		return cmd, func() {}
	}
}

// ReaderSource streams a previously recorded event stream
type ReaderSource struct {
	r io.Reader
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Stream(ctx context.Context, handle func(line []byte) error) error {
	return readLines(s.r, func(line []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return handle(line)
	})
}

// readLines reads newline separated lines of any length
func readLines(r io.Reader, handle func(line []byte) error) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if herr := handle(line); herr != nil {
				return herr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read test output: %w", err)
		}
	}
}
