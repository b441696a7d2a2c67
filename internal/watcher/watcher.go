// Package watcher turns fsnotify notifications on a template tree into raw
// {Type, PathKind, Path} events. Listeners see every event as it happens;
// handlers receive debounced, per-path deduplicated batches.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/piza/prejst/internal/logging"
)

// FileWatcher watches a directory tree for changes
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	listeners []Listener
	handlers  []ChangeHandler
	dirs      map[string]struct{}
	logger    logging.Logger
	mutex     sync.RWMutex
}

// Event is a raw change notification
type Event struct {
	Type     EventType
	PathKind PathKind
	Path     string
	ModTime  time.Time
	Size     int64
}

// EventType is the raw notification type.
type EventType string

const (
	EventTypeCreate  EventType = "create"
	EventTypeUpdated EventType = "updated"
	EventTypeDelete  EventType = "delete"
	EventTypeOther   EventType = "other"
)

func (e EventType) String() string {
	return string(e)
}

// PathKind tells files and directories apart.
type PathKind string

const (
	KindFile      PathKind = "file"
	KindDirectory PathKind = "directory"
)

// FileFilter determines if a file event should be reported
type FileFilter func(path string) bool

// Listener receives each event as it arrives
type Listener func(event Event)

// ChangeHandler handles a debounced batch of events
type ChangeHandler func(events []Event) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay   time.Duration
	events  chan Event
	output  chan []Event
	timer   *time.Timer
	pending []Event
	mutex   sync.Mutex
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounceDelay time.Duration, logger logging.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}

	debouncer := &Debouncer{
		delay:   debounceDelay,
		events:  make(chan Event, 100),
		output:  make(chan []Event, 10),
		pending: make([]Event, 0),
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: debouncer,
		filters:   make([]FileFilter, 0),
		listeners: make([]Listener, 0),
		handlers:  make([]ChangeHandler, 0),
		dirs:      make(map[string]struct{}),
		logger:    logger.WithComponent("watcher"),
	}

	return fw, nil
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddListener adds an undebounced event listener
func (fw *FileWatcher) AddListener(listener Listener) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.listeners = append(fw.listeners, listener)
}

// AddHandler adds a debounced change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath adds a single directory to watch
func (fw *FileWatcher) AddPath(path string) error {
	cleanPath, err := validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if err := fw.watcher.Add(cleanPath); err != nil {
		return err
	}
	fw.trackDir(cleanPath)
	return nil
}

// AddRecursive adds a directory and all subdirectories to watch. Directories
// whose name starts with a dot and the excluded paths are skipped.
func (fw *FileWatcher) AddRecursive(root string, exclude ...string) error {
	cleanRoot, err := validatePath(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	skip := make(map[string]struct{}, len(exclude))
	for _, p := range exclude {
		if abs, err := filepath.Abs(p); err == nil {
			skip[abs] = struct{}{}
		}
	}

	return filepath.WalkDir(cleanRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		if path != cleanRoot && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if _, ok := skip[path]; ok {
			return filepath.SkipDir
		}

		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn(context.Background(), err, "Skipping directory", "path", path)
			return nil
		}
		fw.trackDir(path)
		return nil
	})
}

// validatePath cleans path to an absolute directory.
func validatePath(path string) (string, error) {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", path)
	}

	return absPath, nil
}

func (fw *FileWatcher) trackDir(path string) {
	fw.mutex.Lock()
	fw.dirs[path] = struct{}{}
	fw.mutex.Unlock()
}

// forgetDir drops path and reports whether it was a watched directory.
func (fw *FileWatcher) forgetDir(path string) bool {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()

	if _, ok := fw.dirs[path]; !ok {
		return false
	}
	prefix := path + string(filepath.Separator)
	for dir := range fw.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(fw.dirs, dir)
		}
	}
	return true
}

// Start starts the file watcher
func (fw *FileWatcher) Start(ctx context.Context) error {
	// Start debouncer
	go fw.debouncer.start(ctx)

	// Start event processor
	go fw.processEvents(ctx)

	// Start main watcher loop
	go fw.watchLoop(ctx)

	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	fw.debouncer.stop()

	return fw.watcher.Close()
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(ctx, event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(ctx context.Context, event fsnotify.Event) {
	ev, ok := fw.translate(ctx, event)
	if !ok {
		return
	}

	fw.mutex.RLock()
	filters := fw.filters
	listeners := fw.listeners
	fw.mutex.RUnlock()

	if ev.PathKind == KindFile {
		for _, filter := range filters {
			if !filter(ev.Path) {
				return
			}
		}
	}

	for _, listener := range listeners {
		listener(ev)
	}

	// Send to debouncer
	select {
	case fw.debouncer.events <- ev:
	default:
		// Channel full, skip this event
	}
}

// translate converts an fsnotify event into an Event. New directories are
// added to the watch list so their contents are reported too.
func (fw *FileWatcher) translate(ctx context.Context, event fsnotify.Event) (Event, bool) {
	if event.Name == "" {
		return Event{}, false
	}

	ev := Event{Path: event.Name, PathKind: KindFile}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		ev.Type = EventTypeDelete
		if fw.forgetDir(event.Name) {
			ev.PathKind = KindDirectory
		}
		return ev, true
	case event.Has(fsnotify.Create):
		ev.Type = EventTypeCreate
	case event.Has(fsnotify.Write):
		ev.Type = EventTypeUpdated
	default:
		ev.Type = EventTypeOther
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Gone before it could be inspected.
		return ev, true
	}
	ev.ModTime = info.ModTime()
	ev.Size = info.Size()

	if info.IsDir() {
		ev.PathKind = KindDirectory
		if ev.Type == EventTypeCreate && !strings.HasPrefix(filepath.Base(event.Name), ".") {
			if err := fw.AddRecursive(event.Name); err != nil {
				fw.logger.Warn(ctx, err, "Failed to watch new directory", "path", event.Name)
			}
		}
	}

	return ev, true
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					// Log error but continue processing
					fw.logger.Error(ctx, err, "File watcher handler error")
				}
			}
		}
	}
}

// Debouncer implementation
func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) addEvent(event Event) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	// Add event to pending list
	d.pending = append(d.pending, event)

	// Reset timer
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.flush()
	})
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Deduplicate by path, keeping the last event and first-seen order
	index := make(map[string]int, len(d.pending))
	events := make([]Event, 0, len(d.pending))
	for _, event := range d.pending {
		if i, ok := index[event.Path]; ok {
			events[i] = event
			continue
		}
		index[event.Path] = len(events)
		events = append(events, event)
	}

	// Send debounced events
	select {
	case d.output <- events:
	default:
		// Channel full, skip
	}

	// Clear pending events
	d.pending = d.pending[:0]
}

var templateExt = regexp.MustCompile(`(?i)\.(html|htm|jst)$`)

// TemplateFilter accepts template sources.
func TemplateFilter(path string) bool {
	return templateExt.MatchString(path)
}

// NoHiddenFilter rejects files whose name starts with a dot, such as editor
// swap files.
func NoHiddenFilter(path string) bool {
	return !strings.HasPrefix(filepath.Base(path), ".")
}

// ExcludeDirFilter rejects paths inside dir.
func ExcludeDirFilter(dir string) FileFilter {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	prefix := abs + string(filepath.Separator)
	return func(path string) bool {
		p, err := filepath.Abs(path)
		if err != nil {
			return true
		}
		return p != abs && !strings.HasPrefix(p, prefix)
	}
}
