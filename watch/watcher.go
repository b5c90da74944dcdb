package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher follows the newest session directory of a report directory and
// renders every record file written into it
type Watcher struct {
	log       log.Logger
	reportDir string
	renderer  *Renderer

	mu       sync.Mutex
	session  string
	rendered map[string]RecordView // last rendered record per file
	ready    chan struct{}
}

func NewWatcher(lgr log.Logger, reportDir string, renderer *Renderer) *Watcher {
	return &Watcher{
		log:       lgr,
		reportDir: reportDir,
		renderer:  renderer,
		rendered:  make(map[string]RecordView),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once the watcher is subscribed to file events
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Session returns the session directory currently followed
func (w *Watcher) Session() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session
}

// Run watches until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.reportDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.reportDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.reportDir, err)
	}

	latest, err := LatestSession(w.reportDir)
	if err != nil {
		return err
	}
	if latest != "" {
		if err := w.follow(watcher, latest); err != nil {
			return err
		}
	} else {
		w.log.Info("Waiting for a test run", "dir", w.reportDir)
	}
	close(w.ready)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if err := w.handleEvent(watcher, event); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("File watcher error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) error {
	dir, name := filepath.Split(event.Name)
	dir = filepath.Clean(dir)

	if dir == filepath.Clean(w.reportDir) {
		if event.Has(fsnotify.Create) && IsSessionDir(name) && event.Name > w.Session() {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				return w.follow(watcher, event.Name)
			}
		}
		return nil
	}

	if dir != w.Session() || !strings.HasSuffix(name, ".json") {
		return nil
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
		w.processFile(event.Name)
	}
	return nil
}

// follow switches to a new session directory and renders the records already in it
func (w *Watcher) follow(watcher *fsnotify.Watcher, sessionDir string) error {
	if prev := w.Session(); prev != "" {
		_ = watcher.Remove(prev)
	}
	if err := watcher.Add(sessionDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", sessionDir, err)
	}
	w.mu.Lock()
	w.session = sessionDir
	w.mu.Unlock()
	w.rendered = make(map[string]RecordView)
	w.log.Info("Following test run", "dir", sessionDir)
	w.renderer.Line(fmt.Sprintf("Report dir: %s", sessionDir))

	files, err := RecordFiles(sessionDir)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	for _, f := range files {
		w.processFile(f)
	}
	return nil
}

func (w *Watcher) processFile(path string) {
	rec, err := ReadRecord(path)
	if err != nil {
		// partial writes and foreign files are expected; the next event retries
		w.log.Debug("Skipping record", "file", path, "err", err)
		return
	}
	if prev, ok := w.rendered[path]; ok && prev == rec {
		return
	}
	w.rendered[path] = rec
	w.renderer.Result(rec.NodeID, rec.Outcome, rec.Duration, "")
}
