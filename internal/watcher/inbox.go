package watcher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/insightpilot/insightpilot/internal/logger"
	"github.com/insightpilot/insightpilot/pkg/models"
)

// maxRecordSize bounds how much of an inbox file is read
const maxRecordSize = 1 << 20

// InboxWatcher watches a directory for saved records written as JSON files.
// Each file is emitted once it has been quiet for the debounce interval.
// Files already present when the watcher starts are emitted too.
type InboxWatcher struct {
	dir        string
	debounce   time.Duration
	sink       Sink
	log        *logger.Logger
	watcher    *fsnotify.Watcher
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	pending    map[string]time.Time
	pendingMux sync.Mutex
}

// NewInboxWatcher creates a watcher for dir
func NewInboxWatcher(dir string, debounce time.Duration, sink Sink, log *logger.Logger) *InboxWatcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &InboxWatcher{
		dir:      dir,
		debounce: debounce,
		sink:     sink,
		log:      logger.OrNop(log).With("component", "inbox", "dir", dir),
		stopChan: make(chan struct{}),
		pending:  make(map[string]time.Time),
	}
}

// Start creates the inbox if needed and begins watching it
func (w *InboxWatcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch inbox: %w", err)
	}
	w.watcher = watcher

	w.enqueueExisting()

	w.wg.Add(2)
	go w.watch()
	go w.debounceLoop()

	return nil
}

// Stop stops the watcher and waits for its goroutines
func (w *InboxWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		if w.watcher != nil {
			w.watcher.Close()
		}
	})
	w.wg.Wait()
}

func (w *InboxWatcher) enqueueExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("failed to list inbox", "error", err)
		return
	}

	w.pendingMux.Lock()
	defer w.pendingMux.Unlock()
	for _, e := range entries {
		if !e.IsDir() && isRecordFile(e.Name()) {
			w.pending[filepath.Join(w.dir, e.Name())] = time.Time{}
		}
	}
}

func (w *InboxWatcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isRecordFile(filepath.Base(event.Name)) {
				continue
			}

			w.pendingMux.Lock()
			w.pending[event.Name] = time.Now()
			w.pendingMux.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("inbox watcher error", "error", err)
		}
	}
}

func (w *InboxWatcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			for _, path := range w.ready() {
				if !w.emit(path) {
					return
				}
			}
		}
	}
}

// ready removes and returns the paths that have been quiet long enough
func (w *InboxWatcher) ready() []string {
	w.pendingMux.Lock()
	defer w.pendingMux.Unlock()

	now := time.Now()
	var paths []string
	for path, lastSeen := range w.pending {
		if now.Sub(lastSeen) >= w.debounce {
			paths = append(paths, path)
			delete(w.pending, path)
		}
	}
	return paths
}

// emit reads path and hands it to the sink. It returns false once the
// watcher is stopping.
func (w *InboxWatcher) emit(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// moved or removed before we got to it
		return true
	}

	item := Item{Path: path}
	item.Record, item.Err = readRecord(path, info)
	if item.Err == nil {
		w.log.Debug("inbox record", "file", filepath.Base(path), "kind", item.Record.Kind)
	}

	select {
	case w.sink <- item:
		return true
	case <-w.stopChan:
		return false
	}
}

func readRecord(path string, info os.FileInfo) (models.Record, error) {
	var rec models.Record
	if info.Size() > maxRecordSize {
		return rec, fmt.Errorf("record file too large: %d bytes", info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.Record{}, fmt.Errorf("failed to decode record: %w", err)
	}

	if rec.Kind == "" {
		rec.Kind = models.RecordKindEvent
	}
	if !rec.Kind.Valid() {
		return models.Record{}, fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	if rec.ID == "" {
		rec.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return rec, nil
}

// isRecordFile skips editor temp files and hidden files
func isRecordFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".json")
}
