package trigger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const requestSuffix = ".install"

// Watcher turns "<session>.install" files dropped into a directory into registry triggers.
// Every request file is consumed once.
type Watcher struct {
	dir      string
	registry *Registry
}

func NewWatcher(dir string, registry *Registry) *Watcher {
	return &Watcher{
		dir:      dir,
		registry: registry,
	}
}

// RequestPath returns the file that triggers session id in dir
func RequestPath(dir, id string) string {
	return filepath.Join(dir, id+requestSuffix)
}

// Request drops a trigger file for session id into dir
func Request(dir, id string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create trigger directory: %w", err)
	}
	return os.WriteFile(RequestPath(dir, id), nil, 0o600)
}

// Run watches the directory until ctx is done. Requests present before the call are handled first.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return fmt.Errorf("create trigger directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warnf("failed to close watcher: %v", err)
		}
	}()

	// Watch the directory, the request files do not exist yet
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	log.Infof("start watching install requests in %s", w.dir)

	w.scan()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if strings.HasSuffix(event.Name, requestSuffix) {
				w.handle(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

func (w *Watcher) scan() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Warnf("failed to list %s: %v", w.dir, err)
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), requestSuffix) {
			w.handle(filepath.Join(w.dir, entry.Name()))
		}
	}
}

func (w *Watcher) handle(path string) {
	// removing first makes the request one-shot, a Create followed by Write is seen once
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to consume install request %s: %v", path, err)
		}
		return
	}

	id := strings.TrimSuffix(filepath.Base(path), requestSuffix)
	if err := w.registry.Trigger(id); err != nil {
		log.Warnf("install request for session %s rejected: %v", id, err)
	}
}
