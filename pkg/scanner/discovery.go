package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DiscoverFiles walks rootDir applying include/exclude globs from cfg.
// Patterns match slash-separated paths relative to rootDir. Returns a sorted
// slice of absolute file paths for deterministic output.
func DiscoverFiles(rootDir string, cfg ScanConfig) ([]string, error) {
	if err := validatePatterns("exclude", cfg.Exclude); err != nil {
		return nil, err
	}
	if err := validatePatterns("include", cfg.Include); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var files []string

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Continue walking on errors.
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if relPath != "." && matchAny(cfg.Exclude, relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if len(cfg.Include) > 0 && !matchAny(cfg.Include, relPath) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether the file at path, under rootDir, passes cfg.
func Matches(rootDir, path string, cfg ScanConfig) bool {
	relPath, ok := relSlash(rootDir, path)
	if !ok || matchAny(cfg.Exclude, relPath) {
		return false
	}
	return len(cfg.Include) == 0 || matchAny(cfg.Include, relPath)
}

// Excluded reports whether path, under rootDir, matches an exclude pattern.
// Paths outside rootDir are excluded.
func Excluded(rootDir, path string, cfg ScanConfig) bool {
	relPath, ok := relSlash(rootDir, path)
	if !ok {
		return true
	}
	return relPath != "." && matchAny(cfg.Exclude, relPath)
}

func relSlash(rootDir, path string) (string, bool) {
	relPath, err := filepath.Rel(rootDir, path)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(relPath), true
}

func validatePatterns(kind string, patterns []string) error {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid %s pattern: %s", kind, pattern)
		}
	}
	return nil
}

func matchAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		if m, _ := doublestar.PathMatch(pattern, relPath); m {
			return true
		}
	}
	return false
}
