package notify

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher consumes event files from {dataPath}/events. Each file is handed to
// the handler at most once and deleted; when several processes watch the same
// directory, whichever deletes a file first delivers it.
type Watcher struct {
	dir    string
	handle func(Event)
}

// NewWatcher creates a watcher delivering events to handle.
func NewWatcher(dataPath string, handle func(Event)) *Watcher {
	return &Watcher{dir: filepath.Join(dataPath, "events"), handle: handle}
}

// Drain delivers the event files already present in name (and so time) order
// and returns how many were delivered.
func (w *Watcher) Drain() (int, error) {
	entries, err := os.ReadDir(w.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && isEventFile(e.Name()) && w.consume(filepath.Join(w.dir, e.Name())) {
			n++
		}
	}
	return n, nil
}

// Run delivers pending events, then new ones as they arrive, until ctx is
// done. Handlers run on the calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	// Subscribe before draining so nothing written in between is missed.
	if err := fsw.Add(w.dir); err != nil {
		return err
	}
	if _, err := w.Drain(); err != nil {
		return err
	}
	log.Printf("notify: watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				if isEventFile(ev.Name) {
					w.consume(ev.Name)
				}
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

// isEventFile skips the dot-prefixed temp files the writer renames from.
func isEventFile(path string) bool {
	base := filepath.Base(path)
	return !strings.HasPrefix(base, ".") && strings.HasSuffix(base, ".event")
}

// consume reads, deletes and delivers one event file. It reports false when
// another consumer got there first or the file is not a valid event.
func (w *Watcher) consume(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if os.Remove(path) != nil {
		return false
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil || evt.Type == "" {
		log.Printf("notify: dropping malformed event %s", filepath.Base(path))
		return false
	}
	if w.handle != nil {
		w.handle(evt)
	}
	return true
}
