// FileCache serves source bytes for offset/length lookups using
// memory-mapped files.
//
// Declaration trees address identifiers by byte span, so every extraction
// pass slices the same file many times. Files are mapped once on first
// access and stay mapped until Invalidate or Close.
//
// Falls back to os.ReadFile when mmap fails (e.g. special filesystems).
package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// FileCache provides read-only access to source file bytes.
//
// Thread-safe: the watcher and the MCP server may read concurrently.
type FileCache interface {
	// Get returns the file contents, loading them on first access.
	Get(filePath string) (*MappedFile, error)

	// FetchSpan returns length bytes starting at offset.
	FetchSpan(filePath string, offset, length int) (string, error)

	// Invalidate drops a cached file so the next Get reloads it.
	Invalidate(filePath string)

	// Size returns number of currently cached files.
	Size() int

	// Stats returns current cache metrics.
	Stats() FileCacheStats

	// Close unmaps all files and releases resources.
	Close() error
}

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles is the maximum number of files to keep cached. 0 = unlimited.
	MaxFiles int

	// Logger for warnings. If nil, uses slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig returns the limits used by the CLI.
func DefaultFileCacheConfig() *FileCacheConfig {
	return &FileCacheConfig{
		MaxFiles: 10000,
	}
}

// MappedFile is one cached source file.
type MappedFile struct {
	Path string

	// Data is the mapped region, or a heap copy for fallback entries.
	// Nil for empty files.
	Data mmap.MMap

	// file is nil for fallback entries.
	file   *os.File
	mapped bool
}

// FileCacheStats tracks cache activity.
type FileCacheStats struct {
	FilesLoaded  int64
	FilesCached  int
	CacheHits    int64
	CacheMisses  int64
	MmapFailures int64
}

// NewFileCache creates a new FileCache with the given config.
//
// If config is nil, uses DefaultFileCacheConfig().
func NewFileCache(config *FileCacheConfig) FileCache {
	if config == nil {
		config = DefaultFileCacheConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &fileCacheImpl{
		config: config,
		logger: logger,
		files:  make(map[string]*MappedFile),
	}
}

type fileCacheImpl struct {
	config *FileCacheConfig
	logger *slog.Logger

	mu    sync.RWMutex
	files map[string]*MappedFile
	stats FileCacheStats
}

// Get returns the cached file or maps it on first access.
func (fc *fileCacheImpl) Get(filePath string) (*MappedFile, error) {
	fc.mu.RLock()
	mf, ok := fc.files[filePath]
	fc.mu.RUnlock()
	if ok {
		fc.mu.Lock()
		fc.stats.CacheHits++
		fc.mu.Unlock()
		return mf, nil
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	// Double-check: another goroutine might have loaded it while we waited.
	if mf, ok := fc.files[filePath]; ok {
		fc.stats.CacheHits++
		return mf, nil
	}
	fc.stats.CacheMisses++

	if fc.config.MaxFiles > 0 && len(fc.files) >= fc.config.MaxFiles {
		return nil, fmt.Errorf("file cache limit reached: %d files", fc.config.MaxFiles)
	}

	mf, err := fc.load(filePath)
	if err != nil {
		return nil, err
	}
	fc.files[filePath] = mf
	fc.stats.FilesLoaded++
	return mf, nil
}

// load maps a file, falling back to a plain read. Must hold mu.
func (fc *fileCacheImpl) load(filePath string) (*MappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file %q: %w", filePath, err)
	}

	// Can't mmap zero bytes.
	if stat.Size() == 0 {
		file.Close()
		return &MappedFile{Path: filePath}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, using fallback", "file", filePath, "error", err)
		fc.stats.MmapFailures++
		file.Close()

		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("mmap failed and fallback failed for %q: mmap error: %v, read error: %w",
				filePath, err, readErr)
		}
		return &MappedFile{Path: filePath, Data: mmap.MMap(raw)}, nil
	}

	return &MappedFile{Path: filePath, Data: data, file: file, mapped: true}, nil
}

// FetchSpan slices [offset, offset+length) out of the file.
func (fc *fileCacheImpl) FetchSpan(filePath string, offset, length int) (string, error) {
	mf, err := fc.Get(filePath)
	if err != nil {
		return "", err
	}
	if offset < 0 || length < 0 || offset+length > len(mf.Data) {
		return "", fmt.Errorf("invalid span [%d,+%d) for %q of size %d",
			offset, length, filePath, len(mf.Data))
	}
	return string(mf.Data[offset : offset+length]), nil
}

// Invalidate unmaps and forgets one file.
func (fc *fileCacheImpl) Invalidate(filePath string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if mf, ok := fc.files[filePath]; ok {
		if err := release(mf); err != nil {
			fc.logger.Warn("failed to release file", "path", filePath, "error", err)
		}
		delete(fc.files, filePath)
	}
}

// Size returns number of currently cached files.
func (fc *fileCacheImpl) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.files)
}

// Stats returns current cache metrics.
func (fc *fileCacheImpl) Stats() FileCacheStats {
	fc.mu.RLock()
	defer fc.mu.RUnlock()

	stats := fc.stats
	stats.FilesCached = len(fc.files)
	return stats
}

// Close unmaps all files and releases resources.
func (fc *fileCacheImpl) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error
	for path, mf := range fc.files {
		if err := release(mf); err != nil {
			fc.logger.Warn("failed to release file", "path", path, "error", err)
			errs = append(errs, fmt.Errorf("release %q: %w", path, err))
		}
	}
	fc.files = make(map[string]*MappedFile)

	fc.logger.Debug("file cache closed",
		"files_loaded", fc.stats.FilesLoaded,
		"cache_hits", fc.stats.CacheHits,
		"cache_misses", fc.stats.CacheMisses,
		"mmap_failures", fc.stats.MmapFailures)

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func release(mf *MappedFile) error {
	if mf.mapped && mf.Data != nil {
		if err := mf.Data.Unmap(); err != nil {
			return err
		}
	}
	if mf.file != nil {
		return mf.file.Close()
	}
	return nil
}
