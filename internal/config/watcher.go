/**
 * Config: file watcher
 * @description: watches the configs directory and re-loads the
 *               configuration when the active file changes; registered
 *               callbacks receive the old and new configuration
 * @func: ConfigWatcher, ReloadCallback
 */
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadCallback is invoked after a successful reload.
type ReloadCallback func(oldConfig, newConfig *Config) error

// ConfigWatcher watches the configuration directory for changes.
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	env        string
	callbacks  []ReloadCallback
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewConfigWatcher creates a watcher for the given configs directory.
func NewConfigWatcher(configPath, env string) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ConfigWatcher{
		watcher:    watcher,
		configPath: configPath,
		env:        env,
		callbacks:  make([]ReloadCallback, 0),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}, nil
}

// OnReload registers a callback to run after each successful reload.
func (cw *ConfigWatcher) OnReload(cb ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, cb)
}

// Start begins watching. Events are debounced because editors commonly
// emit several write events for one save.
func (cw *ConfigWatcher) Start() error {
	if cw.configPath == "" {
		cw.configPath = getDefaultConfigPath()
	}
	if err := cw.watcher.Add(cw.configPath); err != nil {
		return fmt.Errorf("failed to add config path to watcher: %w", err)
	}
	go cw.watchLoop()
	return nil
}

// Stop shuts the watcher down and waits for the loop to exit.
func (cw *ConfigWatcher) Stop() {
	cw.cancel()
	_ = cw.watcher.Close()
	<-cw.done
}

func (cw *ConfigWatcher) watchLoop() {
	defer close(cw.done)

	var debounce *time.Timer
	activeFile := filepath.Base(getConfigFileName(cw.configPath, cw.env))

	for {
		select {
		case <-cw.ctx.Done():
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != activeFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(200*time.Millisecond, cw.reload)
		case _, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// reload re-reads the configuration; a file that fails to load or
// validate keeps the previous configuration in place.
func (cw *ConfigWatcher) reload() {
	oldConfig := GlobalConfig
	newConfig, err := LoadConfig(cw.configPath, cw.env)
	if err != nil {
		// Keep serving with the last good config.
		GlobalConfig = oldConfig
		return
	}

	cw.mu.RLock()
	callbacks := make([]ReloadCallback, len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	for _, cb := range callbacks {
		if err := cb(oldConfig, newConfig); err != nil {
			// Callback failures do not roll the config back; they are
			// the callback's own concern to report.
			continue
		}
	}
}
