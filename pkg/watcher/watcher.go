// Package watcher re-triggers analysis when the topology file or the
// configuration file changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/meshchurn/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeTopology ChangeType = iota
	ChangeTypeConfig
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeTopology:
		return "topology"
	case ChangeTypeConfig:
		return "config"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a topology file and the optional config files next
// to the process for changes.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]ChangeType // cleaned absolute path to type
	events  chan ChangeEvent
	once    sync.Once
}

// NewFileWatcher creates a watcher for the topology file at input. Each
// config path is watched too when its directory exists.
func NewFileWatcher(input string, configs ...string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher: watcher,
		files:   make(map[string]ChangeType),
		events:  make(chan ChangeEvent, 100),
	}
	if err := fw.track(input, ChangeTypeTopology); err != nil {
		watcher.Close()
		return nil, err
	}
	for _, path := range configs {
		if err := fw.track(path, ChangeTypeConfig); err != nil {
			logging.Warn("failed to watch config file", "path", path, "error", err)
		}
	}
	return fw, nil
}

// track records path and watches its directory. Editors commonly replace
// files by renaming, which a watch on the file itself would not survive.
func (fw *FileWatcher) track(path string, kind ChangeType) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	abs = filepath.Clean(abs)
	dir := filepath.Dir(abs)

	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fw.files[abs] = kind
	return nil
}

// Start begins watching for file changes
func (fw *FileWatcher) Start(ctx context.Context) error {
	for path, kind := range fw.files {
		logging.Info("watching file", "path", path, "type", kind)
	}
	go fw.processEvents(ctx)
	return nil
}

// processEvents forwards writes, creations and renames of tracked files
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			kind, tracked := fw.files[filepath.Clean(event.Name)]
			if !tracked {
				continue
			}

			logging.Debug("file changed", "path", event.Name, "op", event.Op.String())
			select {
			case fw.events <- ChangeEvent{Type: kind, Paths: []string{event.Name}, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events. Once started, it is closed
// when the watcher stops.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	var err error
	fw.once.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
