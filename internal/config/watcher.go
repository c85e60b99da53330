package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"testplan/pkg/logging"
)

// DefaultDebounceInterval is the time to wait after the last change to
// config.yaml before reloading it. Editors often write a file in several steps.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher reloads config.yaml when it changes and hands the new
// configuration to OnChange. Invalid files are logged and ignored.
type Watcher struct {
	mu sync.Mutex

	configPath string
	debounce   time.Duration
	onChange   func(Config)

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	running   bool

	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a watcher for the config.yaml inside configPath.
// A zero debounce uses DefaultDebounceInterval.
func NewWatcher(configPath string, debounce time.Duration, onChange func(Config)) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &Watcher{
		configPath: configPath,
		debounce:   debounce,
		onChange:   onChange,
	}
}

// Start begins watching. The directory is watched rather than the file so
// that atomic renames by editors are seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.configPath); err != nil {
		watcher.Close()
		return err
	}

	w.fsWatcher = watcher
	w.stopCh = make(chan struct{})
	w.running = true

	go w.processEvents(watcher.Events, watcher.Errors, w.stopCh)

	logging.Info("Config", "Watching %s for changes", FilePath(w.configPath))
	return nil
}

func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFileName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("Config", "Config file changed: %s (%s)", event.Name, event.Op)
			w.triggerReloadDebounced()

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("Config", err, "fsnotify error")
		}
	}
}

func (w *Watcher) triggerReloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return
	}

	cfg, err := Load(w.configPath)
	if err != nil {
		logging.Warn("Config", "Ignoring invalid configuration change: %v", err)
		return
	}
	if w.onChange != nil {
		w.onChange(cfg)
	}
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false
	close(w.stopCh)

	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	err := w.fsWatcher.Close()
	w.fsWatcher = nil
	logging.Debug("Config", "Stopped config watcher")
	return err
}

// ApplyLogLevel is an OnChange callback that updates the process log level.
func ApplyLogLevel(cfg Config) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return
	}
	if level.SlogLevel() != logging.CurrentLevel() {
		logging.SetLevel(level)
		logging.Info("Config", "Log level changed to %s", level)
	}
}
