// Package watcher regenerates stubs as native sources change.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gnana997/nativestub/pkg/definition"
	"github.com/gnana997/nativestub/pkg/scanner"
)

// Pipeline is the part of *scanner.Scanner the watcher drives.
type Pipeline interface {
	Forget(path string)
	ExtractFile(ctx context.Context, path string, warnings *definition.Warnings) (*definition.ModuleDefinition, error)
	WriteStub(m definition.ModuleDefinition, opts scanner.GenerateOptions, warnings *definition.Warnings) (string, error)
}

// Options configures a FileWatcher.
type Options struct {
	// DebounceMs groups rapid changes to one file. Defaults to 200.
	DebounceMs int
	Scan       scanner.ScanConfig
	Generate   scanner.GenerateOptions
	// OnUpdate, if set, is called after every regeneration or removal.
	OnUpdate func(Update)
}

// Update describes the outcome of handling one changed file.
type Update struct {
	Source   string
	Module   string
	Stub     string
	Removed  bool
	Warnings []definition.Warning
	Err      error
}

// FileWatcher watches a source tree and regenerates the stub of each
// changed file.
//
// **Features:**
//   - Debouncing - Groups rapid changes to one file into a single run
//   - Selective - Only the changed file is re-extracted
//   - Sequential - Regenerations never overlap
//
// **Usage:**
//
//	fw, err := watcher.New(scanner, opts, logger)
//	if err != nil {
//	    return err
//	}
//	if err := fw.Start(ctx, root); err != nil {
//	    return err
//	}
//	defer fw.Stop()
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	pipeline Pipeline
	options  Options
	logger   *slog.Logger
	root     string
	ctx      context.Context

	// Debouncing
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// runMu serializes regenerations and guards stubs.
	runMu sync.Mutex
	stubs map[string]string

	// Lifecycle
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// New creates a FileWatcher.
func New(pipeline Pipeline, options Options, logger *slog.Logger) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if options.DebounceMs <= 0 {
		options.DebounceMs = 200
	}

	return &FileWatcher{
		watcher:        w,
		pipeline:       pipeline,
		options:        options,
		logger:         logger,
		debounceTimers: make(map[string]*time.Timer),
		stubs:          make(map[string]string),
		stopChan:       make(chan struct{}),
	}, nil
}

// Track records that source produced stub, so removing source removes the
// stub. Used to seed the watcher with an initial generation run.
func (fw *FileWatcher) Track(source, stub string) {
	fw.runMu.Lock()
	defer fw.runMu.Unlock()
	fw.stubs[source] = stub
}

// Start begins watching rootPath and every non-excluded directory below it.
// Events are handled in the background until Stop is called or ctx ends.
func (fw *FileWatcher) Start(ctx context.Context, rootPath string) error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return fmt.Errorf("watcher already stopped")
	}
	fw.mu.Unlock()

	root, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("failed to resolve root path: %w", err)
	}
	fw.root = root
	fw.ctx = ctx

	if err := fw.watcher.Add(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	fw.addTree(root)

	fw.logger.Info("file watcher started", "root", root)

	go fw.eventLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = fw.Stop()
		case <-fw.stopChan:
		}
	}()
	return nil
}

// Stop stops the file watcher.
//
// **Thread Safety:** Safe to call multiple times (idempotent).
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stopped {
		return nil
	}

	fw.stopped = true
	close(fw.stopChan)

	fw.debounceMu.Lock()
	for _, timer := range fw.debounceTimers {
		timer.Stop()
	}
	fw.debounceTimers = make(map[string]*time.Timer)
	fw.debounceMu.Unlock()

	err := fw.watcher.Close()
	fw.logger.Info("file watcher stopped")
	return err
}

// addTree watches every directory under dir that is not excluded.
func (fw *FileWatcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if scanner.Excluded(fw.root, path, fw.options.Scan) {
			return filepath.SkipDir
		}
		if path != fw.root {
			if err := fw.watcher.Add(path); err != nil {
				fw.logger.Warn("failed to watch directory", "path", path, "error", err)
			}
		}
		return nil
	})
}

func (fw *FileWatcher) eventLoop() {
	for {
		select {
		case <-fw.stopChan:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Error("file watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !scanner.Excluded(fw.root, path, fw.options.Scan) {
				fw.addTree(path)
			}
			return
		}
	}

	if !scanner.Matches(fw.root, path, fw.options.Scan) {
		return
	}

	fw.logger.Debug("file event", "op", event.Op.String(), "file", path)

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		fw.debounce(path, fw.regenerate)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		fw.debounce(path, fw.remove)
	}
}

// debounce schedules fn after the debounce delay. A newer event for the
// same file replaces the pending one.
func (fw *FileWatcher) debounce(path string, fn func(string)) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if timer, exists := fw.debounceTimers[path]; exists {
		timer.Stop()
	}

	fw.debounceTimers[path] = time.AfterFunc(
		time.Duration(fw.options.DebounceMs)*time.Millisecond,
		func() {
			fw.debounceMu.Lock()
			delete(fw.debounceTimers, path)
			fw.debounceMu.Unlock()

			select {
			case <-fw.stopChan:
				return
			default:
			}
			fn(path)
		},
	)
}

func (fw *FileWatcher) regenerate(path string) {
	fw.runMu.Lock()
	defer fw.runMu.Unlock()

	start := time.Now()
	var warnings definition.Warnings
	update := Update{Source: path}

	fw.pipeline.Forget(path)
	def, err := fw.pipeline.ExtractFile(fw.ctx, path, &warnings)
	switch {
	case err != nil:
		update.Err = err
		fw.logger.Error("extraction failed", "file", path, "error", err)
	case def == nil:
		fw.logger.Debug("no module definition", "file", path)
		update.Removed = fw.removeStubLocked(path)
	default:
		update.Module = def.Name
		stub, err := fw.pipeline.WriteStub(*def, fw.options.Generate, &warnings)
		if err != nil {
			update.Err = err
			break
		}
		if prev, ok := fw.stubs[path]; ok && prev != stub {
			_ = os.Remove(prev)
		}
		fw.stubs[path] = stub
		update.Stub = stub
		fw.logger.Info("stub regenerated",
			"file", path,
			"module", def.Name,
			"stub", stub,
			"ms", time.Since(start).Milliseconds())
	}

	update.Warnings = warnings.Items()
	fw.notify(update)
}

func (fw *FileWatcher) remove(path string) {
	if _, err := os.Stat(path); err == nil {
		// Recreated before the timer fired, as editors do on atomic save.
		fw.regenerate(path)
		return
	}

	fw.runMu.Lock()
	defer fw.runMu.Unlock()

	fw.pipeline.Forget(path)
	if fw.removeStubLocked(path) {
		fw.notify(Update{Source: path, Removed: true})
	}
}

// removeStubLocked deletes the stub generated from path, if any.
// runMu must be held.
func (fw *FileWatcher) removeStubLocked(path string) bool {
	stub, ok := fw.stubs[path]
	if !ok {
		return false
	}
	delete(fw.stubs, path)
	if err := os.Remove(stub); err != nil && !os.IsNotExist(err) {
		fw.logger.Warn("failed to remove stale stub", "stub", stub, "error", err)
	}
	fw.logger.Info("stub removed", "file", path, "stub", stub)
	return true
}

func (fw *FileWatcher) notify(u Update) {
	if fw.options.OnUpdate != nil {
		fw.options.OnUpdate(u)
	}
}

// Stats contains file watcher statistics.
type Stats struct {
	PendingRegenerations int
	TrackedStubs         int
	IsRunning            bool
}

// GetStats returns file watcher statistics.
func (fw *FileWatcher) GetStats() Stats {
	fw.debounceMu.Lock()
	pending := len(fw.debounceTimers)
	fw.debounceMu.Unlock()

	fw.runMu.Lock()
	tracked := len(fw.stubs)
	fw.runMu.Unlock()

	fw.mu.Lock()
	running := !fw.stopped
	fw.mu.Unlock()

	return Stats{
		PendingRegenerations: pending,
		TrackedStubs:         tracked,
		IsRunning:            running,
	}
}
