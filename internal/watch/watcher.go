// Package watch re-checks C# files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/standardbeagle/ila/internal/debug"
	"github.com/standardbeagle/ila/internal/workspace"
)

// Batch is the result of one debounced re-check.
type Batch struct {
	Changed []string
	Removed []string
	Result  *workspace.CheckResult
	Err     error
	Elapsed time.Duration
}

// Watcher monitors a project tree and re-checks it after changes settle.
// Every re-check covers the whole tree so findings depending on base classes
// in other files stay accurate.
type Watcher struct {
	runner   *workspace.Runner
	scanner  *workspace.FileScanner
	roots    []string
	debounce time.Duration
	onBatch  func(Batch)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending map[string]fsnotify.Op
	timer   *time.Timer
	kick    chan struct{}

	statsMu sync.RWMutex
	stats   Stats
}

// Stats are counters of a running watcher.
type Stats struct {
	EventsProcessed int64
	Batches         int64
	ErrorCount      int64
	LastBatch       time.Time
}

// New creates a watcher over roots. onBatch is called from the watcher's
// goroutine, never concurrently with itself.
func New(runner *workspace.Runner, roots []string, onBatch func(Batch)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		roots = []string{runner.Config().Project.Root}
	}
	return &Watcher{
		runner:   runner,
		scanner:  workspace.NewFileScanner(runner.Config()),
		roots:    roots,
		debounce: time.Duration(runner.Config().Watch.DebounceMs) * time.Millisecond,
		onBatch:  onBatch,
		watcher:  fw,
		pending:  make(map[string]fsnotify.Op),
		kick:     make(chan struct{}, 1),
	}, nil
}

// Run watches until ctx is cancelled. It runs an initial check first.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for _, root := range w.roots {
		if err := w.addWatches(root); err != nil {
			return fmt.Errorf("failed to add watches starting from %s: %w", root, err)
		}
	}
	debug.Log(debug.ComponentWatch, "watching %v\n", w.roots)

	w.check(ctx, nil, nil)

	w.wg.Add(1)
	go w.processEvents(ctx)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.stopTimer()
			return nil
		case <-w.kick:
			changed, removed := w.drain()
			if len(changed)+len(removed) > 0 {
				w.check(ctx, changed, removed)
			}
		}
	}
}

// Stats returns the current counters.
func (w *Watcher) Stats() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	return w.stats
}

// addWatches adds every non-excluded directory under root.
func (w *Watcher) addWatches(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(root))
	}

	visitedDirs := make(map[string]bool)
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil || visitedDirs[realPath] {
			return filepath.SkipDir
		}
		visitedDirs[realPath] = true

		if path != root && w.scanner.ShouldIgnoreDirectory(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to add watch for %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.incrementStats(0, 0, 1)
			debug.Log(debug.ComponentWatch, "watcher error: %v\n", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	debug.Log(debug.ComponentWatch, "event %v for %s\n", event.Op, path)

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		if event.Op&fsnotify.Create != 0 && !w.scanner.ShouldIgnoreDirectory(path) {
			if err := w.watcher.Add(path); err != nil {
				log.Printf("Warning: failed to add watch for new directory %s: %v", path, err)
			}
		}
		return
	}
	if !w.scanner.ShouldProcessFile(path) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	w.pending[path] |= event.Op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.signal)
	w.mu.Unlock()
	w.incrementStats(1, 0, 0)
}

func (w *Watcher) signal() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// drain takes the pending events, split by whether the file still exists.
func (w *Watcher) drain() (changed, removed []string) {
	w.mu.Lock()
	events := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.mu.Unlock()

	for path := range events {
		if _, err := os.Stat(path); err != nil {
			removed = append(removed, path)
		} else {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	sort.Strings(removed)
	return changed, removed
}

func (w *Watcher) check(ctx context.Context, changed, removed []string) {
	start := time.Now()
	b := Batch{Changed: changed, Removed: removed}

	files, err := w.scanner.Scan(w.roots...)
	if err == nil {
		b.Result, err = w.runner.Check(ctx, files)
	}
	if ctx.Err() != nil {
		return
	}
	b.Err = err
	b.Elapsed = time.Since(start)

	errs := int64(0)
	if err != nil {
		errs = 1
	}
	w.incrementStats(0, 1, errs)
	if w.onBatch != nil {
		w.onBatch(b)
	}
}

func (w *Watcher) incrementStats(events, batches, errors int64) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.EventsProcessed += events
	w.stats.ErrorCount += errors
	if batches > 0 {
		w.stats.Batches += batches
		w.stats.LastBatch = time.Now()
	}
}
