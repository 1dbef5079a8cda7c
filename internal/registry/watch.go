package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounceDelay = 250 * time.Millisecond

// fileWatcher calls onChange, debounced, whenever the watched file is
// written, created, renamed or removed. The parent directory is watched so
// that editors replacing the file atomically are noticed.
type fileWatcher struct {
	logger   *zap.Logger
	path     string
	fsw      *fsnotify.Watcher
	onChange func()
	delay    time.Duration

	mu    sync.Mutex
	timer *time.Timer

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func watchFile(logger *zap.Logger, path string, delay time.Duration, onChange func()) (*fileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("abs accounts path: %w", err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure accounts dir exists: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &fileWatcher{
		logger:   logger,
		path:     abs,
		fsw:      fsw,
		onChange: onChange,
		delay:    delay,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run()
	}()
	return w, nil
}

func (w *fileWatcher) run() {
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != w.path || evt.Op == fsnotify.Chmod {
				continue
			}
			w.schedule()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("accounts_watch_error", zap.Error(err))
		}
	}
}

func (w *fileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.onChange)
}

// Close stops watching. A pending debounced call is dropped.
func (w *fileWatcher) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() { close(w.done) })
	err := w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
