// Package source loads native source files and resolves byte spans to text.
package source

import (
	"fmt"
	"strings"

	"github.com/gnana997/nativestub/pkg/util"
)

// SpanReader returns length bytes of a file starting at offset.
// util.FileCache satisfies it.
type SpanReader interface {
	FetchSpan(filePath string, offset, length int) (string, error)
}

// File is a source path plus the reader its spans come from.
type File struct {
	Path  string
	spans SpanReader
}

// New wraps already-loaded content.
func New(path, content string) *File {
	return &File{Path: path, spans: memory(content)}
}

// Text returns the bytes in [offset, offset+length).
func (f *File) Text(offset, length int) (string, error) {
	return f.spans.FetchSpan(f.Path, offset, length)
}

// Identifier returns the span text with surrounding whitespace and string
// quotes removed, so `"Calculator"` and `Calculator` read the same.
func (f *File) Identifier(offset, length int) (string, error) {
	text, err := f.Text(offset, length)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	return text, nil
}

// memory serves spans of an in-memory source text.
type memory string

func (m memory) FetchSpan(filePath string, offset, length int) (string, error) {
	if offset < 0 || length < 0 || offset+length > len(m) {
		return "", fmt.Errorf("invalid span [%d,+%d) for %q of size %d",
			offset, length, filePath, len(m))
	}
	return string(m[offset : offset+length]), nil
}

// Loader opens files through the shared mmap cache.
type Loader struct {
	cache util.FileCache
}

// NewLoader creates a Loader backed by cache.
func NewLoader(cache util.FileCache) *Loader {
	return &Loader{cache: cache}
}

// Load maps the file and returns a File whose spans are sliced from the
// mapping. Spans reflect the cached content until the path is invalidated.
func (l *Loader) Load(path string) (*File, error) {
	if _, err := l.cache.Get(path); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &File{Path: path, spans: l.cache}, nil
}

// Reload drops any cached mapping of path before loading it again.
func (l *Loader) Reload(path string) (*File, error) {
	l.cache.Invalidate(path)
	return l.Load(path)
}
