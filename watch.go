package reporter

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-reporter/watch"
)

var _ cliapp.Lifecycle = &watcher{}

// watcher renders run progress live, either from the report directory or from
// tagged status lines on stdin
type watcher struct {
	config   *Config
	renderer *watch.Renderer
	stdin    io.Reader

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	mu  sync.Mutex
	err error

	shutdownCallback func(error)
}

func NewWatcher(config *Config, shutdownCallback func(error), opts ...Option) (*watcher, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}
	s := defaultStreams(opts)
	return &watcher{
		config:           config,
		renderer:         watch.NewRenderer(s.stdout),
		stdin:            s.stdin,
		shutdownCallback: shutdownCallback,
	}, nil
}

func (w *watcher) Start(ctx context.Context) error {
	w.running.Store(true)
	runCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		var err error
		if w.config.Stdin {
			w.config.Log.Info("Rendering status lines from stdin")
			err = watch.RenderStream(runCtx, w.config.Log, w.stdin, w.renderer)
		} else {
			dir := w.config.ReportPath()
			w.config.Log.Info("Watching report directory", "dir", dir)
			err = watch.NewWatcher(w.config.Log, dir, w.renderer).Run(runCtx)
		}
		if err != nil {
			w.config.Log.Error("Watch failed", "error", err)
			err = NewRuntimeError(err)
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
		}
		// Only an error or the end of stdin gets here before Stop
		if runCtx.Err() == nil {
			w.shutdownCallback(err)
		}
	}()
	return nil
}

func (w *watcher) Stop(ctx context.Context) error {
	if !w.running.Swap(false) {
		return nil
	}
	w.cancel()

	// A blocked stdin read cannot be interrupted, so a stdin watcher is not awaited
	if w.config.Stdin {
		return nil
	}
	select {
	case <-w.done:
		return w.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the error the watcher stopped with, if any
func (w *watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *watcher) Stopped() bool {
	return !w.running.Load()
}
