package config

import (
	"context"
	"path/filepath"
	"time"

	"infraops/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the bursts of events editors produce for a
// single save.
const debounceWindow = 250 * time.Millisecond

// Watcher notices edits to the configuration files and invokes a callback
// with the name of the changed file.
type Watcher struct {
	configPath string
	onChange   func(filename string)
	watcher    *fsnotify.Watcher
}

// NewWatcher watches the configuration directory. onChange receives the
// base name of the changed file (config.yaml, services.yaml or
// workflows.yaml); changes to other files in the directory are ignored.
func NewWatcher(configPath string, onChange func(filename string)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(configPath); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return &Watcher{
		configPath: configPath,
		onChange:   onChange,
		watcher:    fsWatcher,
	}, nil
}

// Run delivers change notifications until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	logging.Info("ConfigWatcher", "Watching %s for configuration changes", w.configPath)

	pending := map[string]bool{}
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(event.Name)
			switch name {
			case configFileName, servicesFileName, workflowsFileName:
				pending[name] = true
				if timer == nil {
					timer = time.NewTimer(debounceWindow)
				} else {
					timer.Reset(debounceWindow)
				}
				fire = timer.C
			}

		case <-fire:
			fire = nil
			for name := range pending {
				logging.Info("ConfigWatcher", "%s changed, reloading", name)
				w.onChange(name)
			}
			pending = map[string]bool{}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("ConfigWatcher", "Watch error: %v", err)
		}
	}
}
